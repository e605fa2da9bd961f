// game/outcome.go
package game

// Outcome is the closed result of an admitted fire.
type Outcome int

const (
	Hit Outcome = iota + 1
	Miss
	AlreadyFired
	WinningHit
	OutOfRange
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "Hit"
	case Miss:
		return "Miss"
	case AlreadyFired:
		return "AlreadyFired"
	case WinningHit:
		return "WinningHit"
	case OutOfRange:
		return "OutOfRange"
	default:
		return "None"
	}
}

// ShooterText is the line sent back to the player who fired.
func (o Outcome) ShooterText() string {
	switch o {
	case Hit:
		return "HIT"
	case Miss:
		return "MISS"
	case AlreadyFired:
		return "Already fired"
	case WinningHit:
		return "HIT and sunk. You win!"
	case OutOfRange:
		return "MISS (out of range)"
	default:
		return ""
	}
}

// OpponentText describes the shot from the target's side.
func (o Outcome) OpponentText() string {
	switch o {
	case Hit:
		return "Hit"
	case Miss:
		return "Miss"
	case AlreadyFired:
		return "Already fired"
	case WinningHit:
		return "Hit and sunk. You lose!"
	case OutOfRange:
		return "Miss (out of range)"
	default:
		return ""
	}
}

// PassesTurn reports whether the turn moves to the other player. Only a
// Miss or an out of range shot gives up the turn.
func (o Outcome) PassesTurn() bool {
	return o == Miss || o == OutOfRange
}

// EndReason records why a match finished.
type EndReason int

const (
	NotEnded EndReason = iota
	FleetSunk
	Forfeit
)

func (r EndReason) String() string {
	switch r {
	case FleetSunk:
		return "fleet_sunk"
	case Forfeit:
		return "forfeit"
	default:
		return "not_ended"
	}
}
