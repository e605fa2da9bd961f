// state/interfaces.go
package state

import "github.com/wfunc/battleship/game"

// MatchContext is what a phase needs from the room that owns it.
// Defined here to break the import cycle between room and state.
type MatchContext interface {
	GetID() string
	Session() *game.Session
	ChangeState(newState State) error
	// Announce queues a line for a player's primary stream.
	Announce(ordinal int, text string)
	// MatchFinished is called once when the match reaches its last phase.
	MatchFinished()
}
