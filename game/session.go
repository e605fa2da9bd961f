// game/session.go
package game

import (
	"fmt"
	"math/rand"
	"net"

	"github.com/wfunc/battleship/board"
)

// Players is the fixed number of slots in a match.
const Players = 2

// Config describes the board and fleet of a new session.
type Config struct {
	BoardSize         int
	ShipCount         int
	ShipLength        int
	PlacementAttempts int
	// FixedLayout places the demo fleet instead of a random one.
	FixedLayout bool
}

// DefaultConfig is the classic 10x10 board with three ships of length 3.
func DefaultConfig() Config {
	return Config{
		BoardSize:         10,
		ShipCount:         3,
		ShipLength:        3,
		PlacementAttempts: board.DefaultPlacementAttempts,
	}
}

// Slot is the per-player part of a session.
type Slot struct {
	Connected  bool
	Registered bool
	Endpoint   net.Addr
	ShotsFired int
}

// Session is the authoritative state of one match. It is not safe for
// concurrent use; room.Room owns it and serializes every call.
type Session struct {
	boards           [Players]*board.Board
	slots            [Players]Slot
	currentTurn      int
	connectedPlayers int
	gameOver         bool
	winner           int
	endReason        EndReason
}

// NewSession builds both boards and places a fleet on each.
func NewSession(cfg Config, rng *rand.Rand) (*Session, error) {
	var boards [Players]*board.Board
	for i := range boards {
		b, err := board.NewBoard(cfg.BoardSize)
		if err != nil {
			return nil, fmt.Errorf("create board %d: %w", i, err)
		}
		if cfg.FixedLayout {
			err = placeFixedFleet(b, i)
		} else {
			err = board.RandomizePlacement(b, rng, cfg.ShipCount, cfg.ShipLength, cfg.PlacementAttempts)
		}
		if err != nil {
			return nil, fmt.Errorf("place fleet for player %d: %w", i, err)
		}
		boards[i] = b
	}
	return NewSessionWithBoards(boards[0], boards[1]), nil
}

// NewSessionWithBoards wraps boards that already carry their fleets.
func NewSessionWithBoards(b0, b1 *board.Board) *Session {
	return &Session{
		boards: [Players]*board.Board{b0, b1},
		winner: -1,
	}
}

// placeFixedFleet reproduces the demo layout: one horizontal ship for
// player 0 and one vertical ship for player 1.
func placeFixedFleet(b *board.Board, ordinal int) error {
	if ordinal == 0 {
		return board.PlaceShip(b, board.Coordinate{Row: 2, Col: 3}, board.Horizontal, 3)
	}
	return board.PlaceShip(b, board.Coordinate{Row: 5, Col: 1}, board.Vertical, 3)
}

func validOrdinal(ordinal int) bool {
	return ordinal >= 0 && ordinal < Players
}

// Opponent returns the other slot index.
func Opponent(ordinal int) int {
	return 1 - ordinal
}

// Join takes the lowest free slot.
func (s *Session) Join() (int, error) {
	if s.gameOver {
		return -1, ErrGameOver
	}
	for i := range s.slots {
		if !s.slots[i].Connected {
			s.slots[i].Connected = true
			s.connectedPlayers++
			return i, nil
		}
	}
	return -1, ErrSessionFull
}

// Leave marks a slot as disconnected. Registration is kept.
func (s *Session) Leave(ordinal int) {
	if !validOrdinal(ordinal) || !s.slots[ordinal].Connected {
		return
	}
	s.slots[ordinal].Connected = false
	s.connectedPlayers--
}

// Forfeit ends the match in favour of the player who stayed.
func (s *Session) Forfeit(leaver int) {
	if s.gameOver || !validOrdinal(leaver) {
		return
	}
	s.gameOver = true
	s.winner = Opponent(leaver)
	s.endReason = Forfeit
}

// RegisterEndpoint records where notifications for a player go. Later
// calls replace earlier ones.
func (s *Session) RegisterEndpoint(ordinal int, endpoint net.Addr) error {
	if !validOrdinal(ordinal) {
		return fmt.Errorf("register slot %d: %w", ordinal, ErrInvalidPlayer)
	}
	s.slots[ordinal].Registered = true
	s.slots[ordinal].Endpoint = endpoint
	return nil
}

// ResolveFire applies a shot from shooter at (x, y) on the opponent's
// board. Callers must have admitted the shot first.
func (s *Session) ResolveFire(shooter, x, y int) Outcome {
	target := s.boards[Opponent(shooter)]
	if !target.InBounds(x, y) {
		return OutOfRange
	}
	state, err := target.Strike(x, y)
	if err != nil {
		return AlreadyFired
	}
	if state == board.Miss {
		return Miss
	}
	if !board.HasRemainingShips(target) {
		s.gameOver = true
		s.winner = shooter
		s.endReason = FleetSunk
		return WinningHit
	}
	return Hit
}

// AdvanceTurn applies the turn policy to an outcome.
func (s *Session) AdvanceTurn(o Outcome) {
	if o.PassesTurn() {
		s.currentTurn = Opponent(s.currentTurn)
	}
}

// Admit checks whether shooter may fire now.
func (s *Session) Admit(shooter int) error {
	if !validOrdinal(shooter) {
		return ErrInvalidPlayer
	}
	if s.gameOver {
		return ErrGameOver
	}
	if shooter != s.currentTurn {
		return ErrNotYourTurn
	}
	return nil
}

// Fire runs a whole command: admission, resolution, turn update and the
// opponent notification.
func (s *Session) Fire(shooter, x, y int) Reply {
	if err := s.Admit(shooter); err != nil {
		return Reject(err)
	}
	outcome := s.ResolveFire(shooter, x, y)
	s.slots[shooter].ShotsFired++
	s.AdvanceTurn(outcome)

	reply := Reply{Text: outcome.ShooterText(), Outcome: outcome}
	if n, ok := s.NotificationFor(shooter, x, y, outcome); ok {
		reply.Notice = &n
	}
	return reply
}

// NotificationFor composes the message for the shooter's opponent. It
// reports false when the opponent never registered an endpoint.
func (s *Session) NotificationFor(shooter, x, y int, o Outcome) (Notice, bool) {
	opp := Opponent(shooter)
	slot := s.slots[opp]
	if !slot.Registered {
		return Notice{}, false
	}
	return Notice{
		Ordinal:  opp,
		Endpoint: slot.Endpoint,
		Text:     fmt.Sprintf("Opponent fired at (%d,%d): %s", x, y, o.OpponentText()),
	}, true
}

// Fleet lists the occupied cells of the player's own board.
func (s *Session) Fleet(ordinal int) []board.Coordinate {
	if !validOrdinal(ordinal) {
		return nil
	}
	return board.FleetCoordinates(s.boards[ordinal])
}

// Board returns the board owned by ordinal.
func (s *Session) Board(ordinal int) *board.Board {
	if !validOrdinal(ordinal) {
		return nil
	}
	return s.boards[ordinal]
}

// Slot returns a copy of the slot; an invalid ordinal yields the zero Slot.
func (s *Session) Slot(ordinal int) Slot {
	if !validOrdinal(ordinal) {
		return Slot{}
	}
	return s.slots[ordinal]
}

// CurrentTurn is the ordinal allowed to fire next.
func (s *Session) CurrentTurn() int { return s.currentTurn }

// ConnectedPlayers counts the occupied slots.
func (s *Session) ConnectedPlayers() int { return s.connectedPlayers }

// GameOver never reverts once true.
func (s *Session) GameOver() bool { return s.gameOver }

// Winner is the winning ordinal, or -1 while the match is undecided.
func (s *Session) Winner() int { return s.winner }

// EndReason says how the match ended.
func (s *Session) EndReason() EndReason { return s.endReason }

// Snapshot is a copy of the session counters, safe to hand to other
// goroutines.
type Snapshot struct {
	CurrentTurn      int
	ConnectedPlayers int
	GameOver         bool
	Winner           int
	EndReason        EndReason
	Remaining        [Players]int
	Registered       [Players]bool
	ShotsFired       [Players]int
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		CurrentTurn:      s.currentTurn,
		ConnectedPlayers: s.connectedPlayers,
		GameOver:         s.gameOver,
		Winner:           s.winner,
		EndReason:        s.endReason,
	}
	for i := 0; i < Players; i++ {
		snap.Remaining[i] = s.boards[i].Count(board.Occupied)
		snap.Registered[i] = s.slots[i].Registered
		snap.ShotsFired[i] = s.slots[i].ShotsFired
	}
	return snap
}
