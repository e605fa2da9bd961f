// room/manager.go
package room

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/wfunc/battleship/board"
	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/network"
)

var (
	ErrUnknownMatch = errors.New("unknown match")
	// ErrAmbiguousRegistration means the sender's host holds the slot in
	// more than one match.
	ErrAmbiguousRegistration = errors.New("slot held in several matches, use REGISTER <player> <match>")
)

// Factory builds the room for the next match.
type Factory func() (*Room, error)

// Manager 管理所有房间. One room is current and takes new players; a
// finished room stays tracked until its last player leaves.
type Manager struct {
	rooms   map[string]*Room
	current *Room
	factory Factory
	closed  bool
	mutex   sync.RWMutex
}

func NewRoomManager(factory Factory) *Manager {
	return &Manager{
		rooms:   make(map[string]*Room),
		factory: factory,
	}
}

// Current returns the room accepting players, creating it on first use.
func (m *Manager) Current() (*Room, error) {
	m.mutex.RLock()
	r := m.current
	m.mutex.RUnlock()
	if r != nil {
		return r, nil
	}
	return m.rotate(nil)
}

// rotate replaces old as the current room. It is a no-op when another
// caller already rotated.
func (m *Manager) rotate(old *Room) (*Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return nil, ErrRoomClosed
	}
	if m.current != old {
		return m.current, nil
	}
	r, err := m.factory()
	if err != nil {
		return nil, err
	}
	m.current = r
	m.rooms[r.ID] = r
	go m.untrackWhenDone(r)
	if old != nil {
		logger.Log.Infof("Match %s replaced by %s", old.ID, r.ID)
	}
	return r, nil
}

func (m *Manager) untrackWhenDone(r *Room) {
	<-r.Done()
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.rooms, r.ID)
	if m.current == r {
		m.current = nil
	}
}

// Join seats p in the current match. A finished match that has a free
// slot hands over to a fresh one.
func (m *Manager) Join(ctx context.Context, p Player) (*Room, int, []board.Coordinate, error) {
	r, err := m.Current()
	if err != nil {
		return nil, -1, nil, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		ordinal, fleet, err := r.Join(ctx, p)
		if err == nil {
			return r, ordinal, fleet, nil
		}
		if !errors.Is(err, game.ErrGameOver) && !errors.Is(err, ErrRoomClosed) {
			return nil, -1, nil, err
		}
		if r, err = m.rotate(r); err != nil {
			return nil, -1, nil, err
		}
	}
	return nil, -1, nil, game.ErrSessionFull
}

// Register records a notification endpoint in the match the datagram
// names. A short-form registration goes to the match whose slot is held
// by a player connected from the sender's host, or to the current match
// when no such player exists.
func (m *Manager) Register(ctx context.Context, reg network.Registration, addr net.Addr) error {
	if reg.MatchID != "" {
		r, ok := m.GetRoom(reg.MatchID)
		if !ok {
			return fmt.Errorf("match %s: %w", reg.MatchID, ErrUnknownMatch)
		}
		return r.Register(ctx, reg.Ordinal, addr)
	}

	r, err := m.seatedRoom(ctx, reg.Ordinal, hostOf(addr))
	if err != nil {
		return err
	}
	if r == nil {
		if r, err = m.Current(); err != nil {
			return err
		}
	}
	return r.Register(ctx, reg.Ordinal, addr)
}

// seatedRoom finds the one tracked room where host holds slot ordinal.
// It returns nil when there is none.
func (m *Manager) seatedRoom(ctx context.Context, ordinal int, host string) (*Room, error) {
	m.mutex.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.RUnlock()

	var found *Room
	for _, r := range rooms {
		seated, err := r.SeatedFrom(ctx, ordinal, host)
		if errors.Is(err, ErrRoomClosed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !seated {
			continue
		}
		if found != nil {
			return nil, ErrAmbiguousRegistration
		}
		found = r
	}
	return found, nil
}

// CurrentStatus reports on the current match.
func (m *Manager) CurrentStatus(ctx context.Context) (Status, error) {
	r, err := m.Current()
	if err != nil {
		return Status{}, err
	}
	return r.Snapshot(ctx)
}

// GetRoom 从管理器中获取一个房间
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	r, exists := m.rooms[id]
	return r, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// CloseAll closes every room and stops creating new ones, used on
// shutdown.
func (m *Manager) CloseAll() {
	m.mutex.Lock()
	m.closed = true
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mutex.Unlock()

	for _, r := range rooms {
		r.Close()
	}
}
