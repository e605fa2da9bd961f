// room/room.go
package room

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wfunc/battleship/board"
	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/models"
	"github.com/wfunc/battleship/network"
	"github.com/wfunc/battleship/state"
)

var ErrRoomClosed = errors.New("room closed")

// recordTimeout bounds archiving a finished match.
const recordTimeout = 10 * time.Second

type announcement struct {
	player Player
	text   string
}

// Options are the optional collaborators of a room.
type Options struct {
	// Settings are copied into the match record.
	Settings game.Config
	Recorder Recorder
	Observer Observer
}

// Status is a point-in-time view of a room.
type Status struct {
	MatchID   string
	Phase     state.Phase
	Game      game.Snapshot
	CreatedAt time.Time
	StartedAt time.Time
}

// Room owns one match. A single goroutine runs every request against the
// session, so the session and state machine are never shared. Lines for
// players are queued while a request runs and sent by the caller once
// the loop has moved on.
type Room struct {
	ID        string
	CreatedAt time.Time

	session   *game.Session
	machine   *state.BaseStateMachine
	players   [game.Players]Player
	outbox    []announcement
	settings  game.Config
	startedAt time.Time
	endedAt   time.Time

	recorder Recorder
	observer Observer
	tracer   trace.Tracer
	pending  sync.WaitGroup

	requests  chan func()
	closeChan chan struct{}
	closeOnce sync.Once
}

// NewRoom 创建一个新房间
func NewRoom(id string, sess *game.Session, opts Options) *Room {
	r := &Room{
		ID:        id,
		CreatedAt: time.Now(),
		session:   sess,
		settings:  opts.Settings,
		recorder:  opts.Recorder,
		observer:  opts.Observer,
		tracer:    otel.Tracer("github.com/wfunc/battleship/room"),
		requests:  make(chan func()),
		closeChan: make(chan struct{}),
	}

	// 初始化状态机，将房间自身(room)作为上下文传入
	r.machine = state.NewMatchMachine(r)
	if r.observer != nil {
		r.observer.ObservePhase(state.AwaitingPlayers)
	}

	go r.loop()
	return r
}

// --- 实现 state.MatchContext 接口 ---

func (r *Room) GetID() string {
	return r.ID
}

func (r *Room) Session() *game.Session {
	return r.session
}

func (r *Room) ChangeState(newState state.State) error {
	return r.machine.ChangeState(newState)
}

func (r *Room) Announce(ordinal int, text string) {
	if ordinal < 0 || ordinal >= game.Players || r.players[ordinal] == nil {
		return
	}
	r.outbox = append(r.outbox, announcement{player: r.players[ordinal], text: text})
}

// MatchFinished archives the match in the background.
func (r *Room) MatchFinished() {
	r.endedAt = time.Now()
	if r.recorder == nil {
		return
	}
	record := r.matchRecord()
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.recorder.Record(ctx, record); err != nil {
			logger.Log.Errorf("Failed to archive match %s: %v", r.ID, err)
		}
	}()
}

func (r *Room) matchRecord() *models.MatchRecord {
	snap := r.session.Snapshot()
	record := &models.MatchRecord{
		MatchID:    r.ID,
		BoardSize:  r.session.Board(0).Size(),
		ShipCount:  r.settings.ShipCount,
		ShipLength: r.settings.ShipLength,
		Winner:     snap.Winner,
		EndReason:  snap.EndReason.String(),
		Shots:      snap.ShotsFired,
		StartedAt:  r.startedAt,
		EndedAt:    r.endedAt,
	}
	for i := 0; i < game.Players; i++ {
		for _, c := range r.session.Fleet(i) {
			record.Fleets[i] = append(record.Fleets[i], models.Cell{Row: c.Row, Col: c.Col})
		}
	}
	return record
}

// --- 房间核心逻辑 ---

// Join seats a player in the lowest free slot and queues the welcome,
// the player's ordinal and the player's fleet.
func (r *Room) Join(ctx context.Context, p Player) (int, []board.Coordinate, error) {
	var (
		ordinal int
		fleet   []board.Coordinate
		joinErr error
	)
	err := r.do(ctx, func() {
		ordinal, joinErr = r.session.Join()
		if joinErr != nil {
			return
		}
		r.players[ordinal] = p
		fleet = r.session.Fleet(ordinal)
		r.Announce(ordinal, network.MsgWelcome)
		r.Announce(ordinal, network.FormatPlayer(ordinal, r.ID))
		r.Announce(ordinal, network.FormatBoard(fleet))
		logger.Log.Infof("Player %s joined match %s as player %d", p.GetID(), r.ID, ordinal)
	})
	if err != nil {
		return -1, nil, err
	}
	if joinErr != nil {
		return -1, nil, joinErr
	}
	return ordinal, fleet, nil
}

// Leave releases a slot. Leaving a match in progress forfeits it.
func (r *Room) Leave(ctx context.Context, ordinal int) error {
	return r.do(ctx, func() {
		if ordinal < 0 || ordinal >= game.Players || r.players[ordinal] == nil {
			return
		}
		r.machine.GetCurrentState().HandleLeave(ordinal)
		r.session.Leave(ordinal)
		r.players[ordinal] = nil
		logger.Log.Infof("Player %d left match %s", ordinal, r.ID)
	})
}

// Fire runs a shot for ordinal. A rejected shot is reported in
// Reply.Err, not in the returned error.
func (r *Room) Fire(ctx context.Context, ordinal, x, y int) (game.Reply, error) {
	ctx, span := r.tracer.Start(ctx, "room.Fire", trace.WithAttributes(
		attribute.String("match.id", r.ID),
		attribute.Int("player", ordinal),
		attribute.Int("x", x),
		attribute.Int("y", y),
	))
	defer span.End()

	var reply game.Reply
	err := r.do(ctx, func() {
		reply = r.machine.GetCurrentState().HandleFire(ordinal, x, y)
		if reply.Admitted() && r.observer != nil {
			r.observer.ObserveShot(reply.Outcome)
		}
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return game.Reply{}, err
	}
	if reply.Admitted() {
		span.SetAttributes(attribute.String("outcome", reply.Outcome.String()))
	} else {
		span.SetAttributes(attribute.String("rejected", reply.Err.Error()))
	}
	return reply, nil
}

// Register records the notification endpoint of ordinal.
func (r *Room) Register(ctx context.Context, ordinal int, addr net.Addr) error {
	var regErr error
	err := r.do(ctx, func() {
		regErr = r.session.RegisterEndpoint(ordinal, addr)
		if regErr == nil {
			logger.Log.Infof("Player %d of match %s registered %s", ordinal, r.ID, addr)
			if r.observer != nil {
				r.observer.ObserveRegistration()
			}
		}
	})
	if err != nil {
		return err
	}
	return regErr
}

// SeatedFrom reports whether slot ordinal is held by a player connected
// from host.
func (r *Room) SeatedFrom(ctx context.Context, ordinal int, host string) (bool, error) {
	var seated bool
	err := r.do(ctx, func() {
		if ordinal < 0 || ordinal >= game.Players || r.players[ordinal] == nil {
			return
		}
		seated = hostOf(r.players[ordinal].RemoteAddr()) == host
	})
	return seated, err
}

// hostOf strips the port from addr.
func hostOf(addr net.Addr) string {
	switch a := addr.(type) {
	case nil:
		return ""
	case *net.TCPAddr:
		return a.IP.String()
	case *net.UDPAddr:
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// Snapshot returns the current status of the room.
func (r *Room) Snapshot(ctx context.Context) (Status, error) {
	var st Status
	err := r.do(ctx, func() {
		st = Status{
			MatchID:   r.ID,
			Phase:     r.machine.GetCurrentState().Phase(),
			Game:      r.session.Snapshot(),
			CreatedAt: r.CreatedAt,
			StartedAt: r.startedAt,
		}
	})
	return st, err
}

// do runs fn on the room loop, then lets the current phase react and
// finally delivers whatever was announced. Giving up through ctx does
// not cancel a request the loop has already accepted; its lines are
// still delivered once it completes.
func (r *Room) do(ctx context.Context, fn func()) error {
	done := make(chan []announcement, 1)
	req := func() {
		fn()
		r.update()
		out := r.outbox
		r.outbox = nil
		done <- out
	}

	select {
	case r.requests <- req:
	case <-r.closeChan:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case out := <-done:
		r.deliver(out)
		return nil
	case <-ctx.Done():
		go func() {
			r.deliver(<-done)
		}()
		return ctx.Err()
	}
}

func (r *Room) deliver(out []announcement) {
	for _, a := range out {
		if err := a.player.Send(a.text); err != nil {
			logger.Log.Warnf("Failed to send to %s: %v", a.player.GetID(), err)
		}
	}
}

// update 驱动状态机更新
func (r *Room) update() {
	before := r.machine.GetCurrentState().Phase()
	r.machine.GetCurrentState().OnUpdate()
	after := r.machine.GetCurrentState().Phase()
	if before == after {
		return
	}
	if after == state.InProgress {
		r.startedAt = time.Now()
	}
	if r.observer != nil {
		r.observer.ObservePhase(after)
	}
}

// loop 是房间的主循环
func (r *Room) loop() {
	for {
		select {
		case req := <-r.requests:
			req()
			// A finished match with nobody left has nothing more to do.
			if r.machine.GetCurrentState().Phase() == state.Finished && r.session.ConnectedPlayers() == 0 {
				r.stop()
				return
			}
		case <-r.closeChan:
			return
		}
	}
}

func (r *Room) stop() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Done is closed once the room stops accepting requests.
func (r *Room) Done() <-chan struct{} {
	return r.closeChan
}

// Close stops the room loop and waits for a pending archive write.
func (r *Room) Close() {
	r.stop()
	r.pending.Wait()
}
