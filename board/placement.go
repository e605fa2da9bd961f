// board/placement.go
package board

import (
	"errors"
	"fmt"
	"math/rand"
)

// Orientation of a ship on the board.
type Orientation int

const (
	Horizontal Orientation = iota
	Vertical
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "Horizontal"
	case Vertical:
		return "Vertical"
	default:
		return "Unknown"
	}
}

// DefaultPlacementAttempts bounds RandomizePlacement when the caller passes
// a non-positive limit.
const DefaultPlacementAttempts = 10000

// ErrPlacementExhausted is returned when the attempt budget runs out
// before the whole fleet is placed.
var ErrPlacementExhausted = errors.New("ship placement attempts exhausted")

// shipCells returns the cells a ship would cover, or false if any of them
// falls off the board.
func (b *Board) shipCells(origin Coordinate, o Orientation, length int) ([]Coordinate, bool) {
	cells := make([]Coordinate, length)
	for i := 0; i < length; i++ {
		c := origin
		if o == Horizontal {
			c.Col += i
		} else {
			c.Row += i
		}
		if !b.InBounds(c.Row, c.Col) {
			return nil, false
		}
		cells[i] = c
	}
	return cells, true
}

// PlaceShip puts a single ship on the board. Either every cell is
// committed or none is.
func PlaceShip(b *Board, origin Coordinate, o Orientation, length int) error {
	if length < 1 {
		return ErrInvalidFleet
	}
	cells, ok := b.shipCells(origin, o, length)
	if !ok {
		return fmt.Errorf("ship at %s %s length %d: %w", origin, o, length, ErrOutOfBounds)
	}
	for _, c := range cells {
		if b.cells[c.Row][c.Col] != Empty {
			return fmt.Errorf("ship at %s %s length %d: %w", origin, o, length, ErrCellOccupied)
		}
	}
	for _, c := range cells {
		b.cells[c.Row][c.Col] = Occupied
	}
	return nil
}

// RandomizePlacement places shipCount ships of shipLength cells at random
// origins and orientations. Every sample counts against maxAttempts; when
// the budget is spent ErrPlacementExhausted is returned and the board
// keeps only the ships placed so far.
func RandomizePlacement(b *Board, rng *rand.Rand, shipCount, shipLength, maxAttempts int) error {
	if shipCount < 1 || shipLength < 1 {
		return ErrInvalidFleet
	}
	if shipLength > b.size || shipCount*shipLength > b.size*b.size-b.Count(Occupied) {
		return fmt.Errorf("%d ships of length %d on %dx%d: %w", shipCount, shipLength, b.size, b.size, ErrFleetTooLarge)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPlacementAttempts
	}

	placed := 0
	for attempt := 0; placed < shipCount; attempt++ {
		if attempt >= maxAttempts {
			return fmt.Errorf("placed %d of %d ships: %w", placed, shipCount, ErrPlacementExhausted)
		}
		origin := Coordinate{Row: rng.Intn(b.size), Col: rng.Intn(b.size)}
		o := Orientation(rng.Intn(2))
		if err := PlaceShip(b, origin, o, shipLength); err != nil {
			continue
		}
		placed++
	}
	return nil
}
