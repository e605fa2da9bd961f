// board/board.go
package board

import (
	"errors"
	"fmt"
)

// CellState is the state of a single grid cell.
type CellState uint8

const (
	Empty CellState = iota
	Occupied
	Hit
	Miss
)

func (c CellState) String() string {
	switch c {
	case Empty:
		return "Empty"
	case Occupied:
		return "Occupied"
	case Hit:
		return "Hit"
	case Miss:
		return "Miss"
	default:
		return "Unknown"
	}
}

var (
	ErrInvalidSize   = errors.New("board size must be positive")
	ErrOutOfBounds   = errors.New("coordinate out of bounds")
	ErrCellResolved  = errors.New("cell already resolved")
	ErrCellOccupied  = errors.New("cell already occupied")
	ErrInvalidFleet  = errors.New("ship count and length must be positive")
	ErrFleetTooLarge = errors.New("fleet does not fit on board")
)

// Coordinate addresses a cell by row and column.
type Coordinate struct {
	Row int
	Col int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Board is a square grid of cells owned by one player.
type Board struct {
	size  int
	cells [][]CellState
}

// NewBoard creates an empty board of the given side length.
func NewBoard(size int) (*Board, error) {
	if size < 1 {
		return nil, ErrInvalidSize
	}
	cells := make([][]CellState, size)
	for i := range cells {
		cells[i] = make([]CellState, size)
	}
	return &Board{size: size, cells: cells}, nil
}

// Size returns the side length of the board.
func (b *Board) Size() int {
	return b.size
}

// InBounds reports whether (row, col) lies on the board.
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.size && col >= 0 && col < b.size
}

// Cell returns the state at (row, col). Out of bounds cells read as Empty.
func (b *Board) Cell(row, col int) CellState {
	if !b.InBounds(row, col) {
		return Empty
	}
	return b.cells[row][col]
}

// Strike applies a shot to (row, col). It performs the only two legal
// transitions, Occupied->Hit and Empty->Miss, and returns the new state.
// A cell that is already Hit or Miss is left untouched and ErrCellResolved
// is returned.
func (b *Board) Strike(row, col int) (CellState, error) {
	if !b.InBounds(row, col) {
		return Empty, ErrOutOfBounds
	}
	switch b.cells[row][col] {
	case Occupied:
		b.cells[row][col] = Hit
	case Empty:
		b.cells[row][col] = Miss
	default:
		return b.cells[row][col], ErrCellResolved
	}
	return b.cells[row][col], nil
}

// Count returns how many cells are in the given state.
func (b *Board) Count(state CellState) int {
	n := 0
	for _, row := range b.cells {
		for _, c := range row {
			if c == state {
				n++
			}
		}
	}
	return n
}

// HasRemainingShips reports whether at least one Occupied cell is left.
func HasRemainingShips(b *Board) bool {
	for _, row := range b.cells {
		for _, c := range row {
			if c == Occupied {
				return true
			}
		}
	}
	return false
}

// FleetCoordinates lists every Occupied cell in row-major order.
func FleetCoordinates(b *Board) []Coordinate {
	var coords []Coordinate
	for r, row := range b.cells {
		for c, cell := range row {
			if cell == Occupied {
				coords = append(coords, Coordinate{Row: r, Col: c})
			}
		}
	}
	return coords
}
