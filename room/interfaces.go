package room

import (
	"context"
	"net"

	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/models"
	"github.com/wfunc/battleship/state"
)

// Player is the primary stream of a seated player. session.Session
// implements it.
type Player interface {
	GetID() string
	Send(text string) error
	// RemoteAddr routes short-form registrations to the match the
	// sender is seated in.
	RemoteAddr() net.Addr
}

// Recorder archives a finished match. It is called off the room loop.
type Recorder interface {
	Record(ctx context.Context, record *models.MatchRecord) error
}

// Observer receives match events for metrics. Calls happen on the room
// loop and must not block.
type Observer interface {
	ObserveShot(outcome game.Outcome)
	ObservePhase(phase state.Phase)
	ObserveRegistration()
}
