package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"time"

	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/models"
	"github.com/wfunc/battleship/room"
	"github.com/wfunc/battleship/services"
)

// ServiceName is the name clients use, e.g. "MatchService.GetMatchState".
const ServiceName = "MatchService"

// callTimeout bounds every RPC against the room or the archive.
const callTimeout = 5 * time.Second

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr and serves service.
func NewServer(addr string, service *MatchService) (*Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName(ServiceName, service); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      srv,
	}, nil
}

// Addr is the bound listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start serves connections until Stop is called.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// StatusSource reports on the match currently being played.
type StatusSource interface {
	CurrentStatus(ctx context.Context) (room.Status, error)
}

// MatchService is the struct that exposes RPC methods.
type MatchService struct {
	status  StatusSource
	matches *services.MatchService
}

func NewMatchService(status StatusSource, matches *services.MatchService) *MatchService {
	return &MatchService{status: status, matches: matches}
}

type GetMatchStateArgs struct{}

type MatchStateReply struct {
	MatchID          string
	Phase            string
	CurrentTurn      int
	ConnectedPlayers int
	GameOver         bool
	Winner           int
	EndReason        string
	Remaining        [2]int
	Registered       [2]bool
	ShotsFired       [2]int
	StartedAt        time.Time
}

// GetMatchState reports the live match.
func (ms *MatchService) GetMatchState(args *GetMatchStateArgs, reply *MatchStateReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	st, err := ms.status.CurrentStatus(ctx)
	if err != nil {
		return err
	}
	g := st.Game
	*reply = MatchStateReply{
		MatchID:          st.MatchID,
		Phase:            st.Phase.String(),
		CurrentTurn:      g.CurrentTurn,
		ConnectedPlayers: g.ConnectedPlayers,
		GameOver:         g.GameOver,
		Winner:           g.Winner,
		EndReason:        g.EndReason.String(),
		Remaining:        g.Remaining,
		Registered:       g.Registered,
		ShotsFired:       g.ShotsFired,
		StartedAt:        st.StartedAt,
	}
	return nil
}

type GetMatchHistoryArgs struct {
	Limit int
}

type MatchHistoryReply struct {
	Records []models.MatchRecord
}

// GetMatchHistory lists archived matches, newest first.
func (ms *MatchService) GetMatchHistory(args *GetMatchHistoryArgs, reply *MatchHistoryReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	records, err := ms.matches.History(ctx, args.Limit)
	if err != nil {
		return err
	}
	reply.Records = records
	return nil
}

type GetMatchArgs struct {
	MatchID string
}

type MatchReply struct {
	Record models.MatchRecord
}

func (ms *MatchService) GetMatch(args *GetMatchArgs, reply *MatchReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	record, err := ms.matches.Lookup(ctx, args.MatchID)
	if err != nil {
		return err
	}
	reply.Record = *record
	return nil
}

type GetStatsArgs struct{}

type StatsReply struct {
	Stats models.MatchStats
}

func (ms *MatchService) GetStats(args *GetStatsArgs, reply *StatsReply) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	stats, err := ms.matches.Stats(ctx)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}
