package room

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/network"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	n := 0
	m := NewRoomManager(func() (*Room, error) {
		n++
		sess, err := game.NewSession(fixedSettings(), nil)
		if err != nil {
			return nil, err
		}
		return NewRoom(fmt.Sprintf("match-%d", n), sess, Options{Settings: fixedSettings()}), nil
	})
	t.Cleanup(m.CloseAll)
	return m
}

func TestManager_JoinFillsCurrentRoom(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	r0, n0, _, err := m.Join(ctx, &MockPlayer{id: "a"})
	if err != nil || n0 != 0 {
		t.Fatalf("join a: %d %v", n0, err)
	}
	r1, n1, _, err := m.Join(ctx, &MockPlayer{id: "b"})
	if err != nil || n1 != 1 || r1 != r0 {
		t.Fatalf("join b: %d %v, same room %v", n1, err, r1 == r0)
	}
	if _, _, _, err := m.Join(ctx, &MockPlayer{id: "c"}); !errors.Is(err, game.ErrSessionFull) {
		t.Errorf("expected ErrSessionFull, got %v", err)
	}

	got, ok := m.GetRoom(r0.ID)
	if !ok || got != r0 || m.Count() != 1 {
		t.Errorf("expected one tracked room %s", r0.ID)
	}
}

func TestManager_RotatesAfterFinishedMatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	old, _, _, _ := m.Join(ctx, &MockPlayer{id: "a"})
	m.Join(ctx, &MockPlayer{id: "b"})

	// Player 1 forfeits; player 0 stays seated in the finished match.
	old.Leave(ctx, 1)

	r, ordinal, _, err := m.Join(ctx, &MockPlayer{id: "c"})
	if err != nil {
		t.Fatalf("join after finish: %v", err)
	}
	if r == old || ordinal != 0 {
		t.Errorf("expected slot 0 of a new room, got room %s slot %d", r.ID, ordinal)
	}

	st, err := m.CurrentStatus(ctx)
	if err != nil || st.MatchID != r.ID {
		t.Errorf("expected current status of %s, got %+v %v", r.ID, st, err)
	}

	// The old room goes away once its last player leaves.
	old.Leave(ctx, 0)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := m.GetRoom(old.ID); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("finished room still tracked")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func registered(t *testing.T, r *Room) [game.Players]bool {
	t.Helper()
	st, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot %s: %v", r.ID, err)
	}
	return st.Game.Registered
}

func TestManager_RegisterFollowsMatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	host := func(last byte, port int) *net.TCPAddr {
		return &net.TCPAddr{IP: net.IPv4(10, 0, 0, last), Port: port}
	}
	udp := func(last byte) *net.UDPAddr {
		return &net.UDPAddr{IP: net.IPv4(10, 0, 0, last), Port: 7000}
	}

	// Match 1 ends by forfeit with its player 0 still seated.
	old, _, _, _ := m.Join(ctx, &MockPlayer{id: "a", addr: host(1, 5001)})
	m.Join(ctx, &MockPlayer{id: "b", addr: host(9, 5002)})
	old.Leave(ctx, 1)

	cur, n, _, err := m.Join(ctx, &MockPlayer{id: "c", addr: host(2, 5003)})
	if err != nil || cur == old || n != 0 {
		t.Fatalf("join c: room %v slot %d err %v", cur, n, err)
	}
	m.Join(ctx, &MockPlayer{id: "d", addr: host(3, 5004)})

	// Keyed by match ID.
	if err := m.Register(ctx, network.Registration{Ordinal: 0, MatchID: cur.ID}, udp(2)); err != nil {
		t.Fatalf("register c: %v", err)
	}
	if err := m.Register(ctx, network.Registration{Ordinal: 0, MatchID: old.ID}, udp(1)); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if got := registered(t, old); !got[0] {
		t.Errorf("expected slot 0 of %s registered", old.ID)
	}

	// Short form: only the new match has slot 1 held from 10.0.0.3.
	if err := m.Register(ctx, network.Registration{Ordinal: 1}, udp(3)); err != nil {
		t.Fatalf("short-form register d: %v", err)
	}

	reply, err := cur.Fire(ctx, 0, 9, 9)
	if err != nil || reply.Notice == nil || reply.Notice.Endpoint.String() != udp(3).String() {
		t.Fatalf("expected notice for d at %s, got %+v %v", udp(3), reply.Notice, err)
	}
	// a's registration must not have replaced c's endpoint.
	reply, err = cur.Fire(ctx, 1, 9, 9)
	if err != nil || reply.Notice == nil || reply.Notice.Endpoint.String() != udp(2).String() {
		t.Errorf("expected notice for c at %s, got %+v %v", udp(2), reply.Notice, err)
	}

	if err := m.Register(ctx, network.Registration{Ordinal: 0, MatchID: "nope"}, udp(2)); !errors.Is(err, ErrUnknownMatch) {
		t.Errorf("expected ErrUnknownMatch, got %v", err)
	}
}

func TestManager_ShortRegisterNeedsOneMatch(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7000}

	// Nobody seated yet: the current match takes it.
	if err := m.Register(ctx, network.Registration{Ordinal: 0}, from); err != nil {
		t.Fatalf("register before join: %v", err)
	}

	old, _, _, _ := m.Join(ctx, &MockPlayer{id: "a", addr: local})
	m.Join(ctx, &MockPlayer{id: "b", addr: local})
	old.Leave(ctx, 1)
	cur, _, _, _ := m.Join(ctx, &MockPlayer{id: "c", addr: local})

	// Slot 1 is held nowhere, so the current match takes it.
	if err := m.Register(ctx, network.Registration{Ordinal: 1}, from); err != nil {
		t.Fatalf("register slot 1: %v", err)
	}
	if got := registered(t, old); got[1] {
		t.Errorf("slot 1 of finished match %s should stay unregistered", old.ID)
	}
	if got := registered(t, cur); !got[1] {
		t.Errorf("expected slot 1 of %s registered", cur.ID)
	}

	// Slot 0 is held from the same host in both matches.
	m.Join(ctx, &MockPlayer{id: "d", addr: local})
	if err := m.Register(ctx, network.Registration{Ordinal: 0}, from); !errors.Is(err, ErrAmbiguousRegistration) {
		t.Errorf("expected ErrAmbiguousRegistration, got %v", err)
	}
	if got := registered(t, cur); got[0] {
		t.Errorf("slot 0 of %s registered despite ambiguity", cur.ID)
	}
}
