// game/errors.go
package game

import "errors"

// Rejections of a fire carry the text the player sees on the wire.
var (
	ErrNotYourTurn     = errors.New("not your turn")
	ErrGameOver        = errors.New("game is over")
	ErrAwaitingPlayers = errors.New("waiting for opponent")
	ErrInvalidPlayer   = errors.New("invalid player")
	ErrSessionFull     = errors.New("session is full")
)
