package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/wfunc/battleship/broadcast"
	"github.com/wfunc/battleship/config"
	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/monitor"
	"github.com/wfunc/battleship/network"
	"github.com/wfunc/battleship/room"
	"github.com/wfunc/battleship/services"
	"github.com/wfunc/battleship/session"
	"github.com/wfunc/battleship/state"
	"github.com/wfunc/battleship/timer"

	battleship_rpc "github.com/wfunc/battleship/rpc"
)

// HealthService is the gRPC health name that tracks whether the current
// match can still be played.
const HealthService = "battleship.Match"

const (
	datagramSize  = 1024
	leaveTimeout  = 5 * time.Second
	sampleTimeout = time.Second
)

type GameServer struct {
	cfg            config.ServerConfig
	rooms          *room.Manager
	sessionManager *session.Manager
	matches        *services.MatchService
	monitor        *monitor.Monitor
	upgrader       websocket.Upgrader
	health         *health.Server
	timers         *timer.TimerManager
	tracer         trace.Tracer

	tcpListener  net.Listener
	udpConn      net.PacketConn
	httpListener net.Listener
	httpServer   *http.Server
	grpcListener net.Listener
	grpcServer   *grpc.Server
	rpcServer    *battleship_rpc.Server
	broadcaster  *broadcast.UDPBroadcaster

	baseCtx      context.Context
	conns        sync.WaitGroup
	shutdownOnce sync.Once
}

func NewGameServer(cfg config.ServerConfig, rooms *room.Manager, matches *services.MatchService, mon *monitor.Monitor) *GameServer {
	return &GameServer{
		cfg:            cfg,
		rooms:          rooms,
		sessionManager: session.NewManager(),
		matches:        matches,
		monitor:        mon,
		health:         health.NewServer(),
		tracer:         otel.Tracer("github.com/wfunc/battleship/server"),
		baseCtx:        context.Background(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
}

// Listen binds every configured socket. TCP and UDP are required; the
// HTTP, RPC and gRPC endpoints are skipped when their address is empty.
func (s *GameServer) Listen() (err error) {
	defer func() {
		if err != nil {
			s.closeListeners()
		}
	}()

	if s.tcpListener, err = net.Listen("tcp", s.cfg.TCPAddress); err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.cfg.TCPAddress, err)
	}
	if s.udpConn, err = net.ListenPacket("udp", s.cfg.UDPAddress); err != nil {
		return fmt.Errorf("listen udp %s: %w", s.cfg.UDPAddress, err)
	}
	s.broadcaster = broadcast.NewUDPBroadcaster(s.udpConn)

	if s.cfg.HTTPAddress != "" {
		if s.httpListener, err = net.Listen("tcp", s.cfg.HTTPAddress); err != nil {
			return fmt.Errorf("listen http %s: %w", s.cfg.HTTPAddress, err)
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	if s.cfg.RPCAddress != "" {
		service := battleship_rpc.NewMatchService(s.rooms, s.matches)
		if s.rpcServer, err = battleship_rpc.NewServer(s.cfg.RPCAddress, service); err != nil {
			return fmt.Errorf("listen rpc %s: %w", s.cfg.RPCAddress, err)
		}
	}

	if s.cfg.GRPCAddress != "" {
		if s.grpcListener, err = net.Listen("tcp", s.cfg.GRPCAddress); err != nil {
			return fmt.Errorf("listen grpc %s: %w", s.cfg.GRPCAddress, err)
		}
		s.grpcServer = grpc.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
		s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	return nil
}

func (s *GameServer) TCPAddr() net.Addr { return s.tcpListener.Addr() }
func (s *GameServer) UDPAddr() net.Addr { return s.udpConn.LocalAddr() }

func (s *GameServer) HTTPAddr() net.Addr {
	if s.httpListener == nil {
		return nil
	}
	return s.httpListener.Addr()
}

func (s *GameServer) RPCAddr() net.Addr {
	if s.rpcServer == nil {
		return nil
	}
	return s.rpcServer.Addr()
}

func (s *GameServer) GRPCAddr() net.Addr {
	if s.grpcListener == nil {
		return nil
	}
	return s.grpcListener.Addr()
}

// Start binds and serves until ctx is cancelled.
func (s *GameServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs every listener until ctx is cancelled or one of them fails.
func (s *GameServer) Serve(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.baseCtx = ctx

	interval := time.Duration(s.cfg.SampleInterval) * time.Millisecond
	s.timers = timer.NewTimerManager(0)
	if interval > 0 {
		s.timers.AddTimer(0, interval, s.sample)
	}

	g.Go(func() error { return s.acceptLoop(ctx) })
	g.Go(func() error { return s.registrationLoop(ctx) })

	if s.httpServer != nil {
		g.Go(func() error {
			logger.Log.Infof("WebSocket endpoint listening on %s", s.httpListener.Addr())
			if err := s.httpServer.Serve(s.httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve http: %w", err)
			}
			return nil
		})
	}
	if s.rpcServer != nil {
		g.Go(func() error {
			s.rpcServer.Start()
			return nil
		})
	}
	if s.grpcServer != nil {
		g.Go(func() error {
			logger.Log.Infof("gRPC health listening on %s", s.grpcListener.Addr())
			if err := s.grpcServer.Serve(s.grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("serve grpc: %w", err)
			}
			return nil
		})
	}
	if s.cfg.MetricsAddress != "" {
		g.Go(func() error { return s.monitor.Serve(ctx, s.cfg.MetricsAddress) })
	}

	g.Go(func() error {
		<-ctx.Done()
		s.Shutdown()
		return nil
	})

	err := g.Wait()
	s.conns.Wait()
	return err
}

// Shutdown stops every listener and disconnects every player.
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		logger.Log.Info("Shutting down game server")
		if s.timers != nil {
			s.timers.Stop()
		}
		s.health.Shutdown()
		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.httpServer.Shutdown(ctx)
			cancel()
		}
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.rpcServer != nil {
			s.rpcServer.Stop()
		}
		if s.broadcaster != nil {
			s.broadcaster.Close()
		}
		s.closeListeners()
		s.sessionManager.CloseAll()
		s.rooms.CloseAll()
	})
}

func (s *GameServer) closeListeners() {
	if s.tcpListener != nil {
		s.tcpListener.Close()
	}
	if s.udpConn != nil {
		s.udpConn.Close()
	}
	if s.httpListener != nil {
		s.httpListener.Close()
	}
	if s.grpcListener != nil {
		s.grpcListener.Close()
	}
}

func (s *GameServer) acceptLoop(ctx context.Context) error {
	logger.Log.Infof("Game server listening on %s", s.tcpListener.Addr())
	for {
		conn, err := s.tcpListener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Log.Errorf("Accept error: %v", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(ctx, network.NewTCPConnection(conn), "tcp")
		}()
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.conns.Add(1)
	defer s.conns.Done()
	s.handleConnection(s.baseCtx, network.NewWSConnection(conn), "ws")
}

// handleConnection is the per-player worker. It only blocks on its own
// stream; every game decision happens in the room.
func (s *GameServer) handleConnection(ctx context.Context, conn network.Connection, transport string) {
	sess := session.NewSession(uuid.New().String(), conn, transport)
	s.sessionManager.Add(sess)

	logger.Log.Infof("New %s connection from %s, session ID: %s", transport, conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		conn.Close()
	}()
	if ctx.Err() != nil {
		return
	}

	r, ordinal, _, err := s.rooms.Join(ctx, sess)
	if err != nil {
		if errors.Is(err, game.ErrSessionFull) {
			conn.SendLine(network.MsgServerFull)
		} else {
			logger.Log.Errorf("Session %s could not join: %v", sess.GetID(), err)
		}
		return
	}
	sess.Ordinal = ordinal
	s.monitor.IncOnlinePlayers()

	defer func() {
		s.monitor.DecOnlinePlayers()
		leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		if err := r.Leave(leaveCtx, ordinal); err != nil && !errors.Is(err, room.ErrRoomClosed) {
			logger.Log.Warnf("Player %d could not leave match %s: %v", ordinal, r.ID, err)
		}
	}()

	for {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		sess.Touch()
		if !s.handleLine(ctx, sess, r, line) {
			return
		}
	}
}

// handleLine answers one command and reports whether to keep reading.
func (s *GameServer) handleLine(ctx context.Context, sess *session.Session, r *room.Room, line string) bool {
	start := time.Now()
	defer func() { s.monitor.ObserveCommandLatency(time.Since(start)) }()

	cmd, err := network.ParseCommand(line)
	switch {
	case errors.Is(err, network.ErrMalformedCommand):
		s.monitor.IncCommandsReceived("malformed")
		return s.send(sess, network.MsgUsage)
	case err != nil:
		s.monitor.IncCommandsReceived("unknown")
		return s.send(sess, network.MsgUnrecognized)
	}

	switch cmd.Kind {
	case network.CmdExit:
		s.monitor.IncCommandsReceived("exit")
		s.send(sess, network.MsgGoodbye)
		return false
	case network.CmdFire:
		s.monitor.IncCommandsReceived("fire")
		return s.fire(ctx, sess, r, cmd)
	}
	return true
}

func (s *GameServer) fire(ctx context.Context, sess *session.Session, r *room.Room, cmd network.Command) bool {
	ctx, span := s.tracer.Start(ctx, "server.Fire", trace.WithAttributes(
		attribute.String("session.id", sess.GetID()),
		attribute.String("transport", sess.Transport),
	))
	defer span.End()

	reply, err := r.Fire(ctx, sess.Ordinal, cmd.X, cmd.Y)
	if err != nil {
		if errors.Is(err, room.ErrRoomClosed) {
			return s.send(sess, game.ErrGameOver.Error())
		}
		logger.Log.Warnf("Fire from session %s failed: %v", sess.GetID(), err)
		return false
	}

	// The shooter hears first; the opponent's datagram never delays it.
	if !s.send(sess, reply.Text) {
		return false
	}
	if reply.Notice != nil {
		err := s.broadcaster.Notify(*reply.Notice)
		s.monitor.ObserveNotification(err)
		if err != nil {
			logger.Log.Warnf("Notification to player %d failed: %v", reply.Notice.Ordinal, err)
		}
	}
	return true
}

func (s *GameServer) send(sess *session.Session, text string) bool {
	if err := sess.Send(text); err != nil {
		logger.Log.Infof("Send to session %s failed: %v", sess.GetID(), err)
		return false
	}
	return true
}

// registrationLoop is the single worker reading the UDP socket.
func (s *GameServer) registrationLoop(ctx context.Context) error {
	logger.Log.Infof("Registration endpoint listening on %s", s.udpConn.LocalAddr())
	buf := make([]byte, datagramSize)
	for {
		n, addr, err := s.udpConn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Log.Warnf("Registration read error: %v", err)
			continue
		}

		ack := network.MsgRegisterOK
		if err := s.register(ctx, string(buf[:n]), addr); err != nil {
			logger.Log.Infof("Registration from %s rejected: %v", addr, err)
			ack = network.FormatError(err)
		}
		if err := s.broadcaster.Reply(addr, ack); err != nil {
			logger.Log.Warnf("Registration ack to %s failed: %v", addr, err)
		}
	}
}

func (s *GameServer) register(ctx context.Context, datagram string, addr net.Addr) error {
	reg, err := network.ParseRegister(datagram)
	if err != nil {
		return err
	}
	return s.rooms.Register(ctx, reg, addr)
}

// sample refreshes the match gauges and the health status.
func (s *GameServer) sample() {
	ctx, cancel := context.WithTimeout(s.baseCtx, sampleTimeout)
	defer cancel()

	st, err := s.rooms.CurrentStatus(ctx)
	if err != nil {
		return
	}
	s.monitor.ObserveSnapshot(st.Phase, st.Game)

	status := grpc_health_v1.HealthCheckResponse_SERVING
	if st.Phase == state.Finished {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(HealthService, status)
}
