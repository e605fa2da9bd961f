package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wfunc/battleship/board"
)

// Fixed protocol lines.
const (
	MsgWelcome      = "Welcome to Battleship. Use 'FIRE x y' to fire."
	MsgServerFull   = "Server full."
	MsgGoodbye      = "Goodbye."
	MsgUnrecognized = "unrecognized command"
	MsgUsage        = "usage: FIRE <x> <y>"
	MsgRegisterOK   = "OK"
)

// CommandKind identifies a client command.
type CommandKind int

const (
	CmdFire CommandKind = iota + 1
	CmdExit
)

// Command is a decoded client line.
type Command struct {
	Kind CommandKind
	X    int
	Y    int
}

var (
	ErrUnknownCommand    = errors.New(MsgUnrecognized)
	ErrMalformedCommand  = errors.New(MsgUsage)
	ErrMalformedRegister = errors.New("usage: REGISTER <player> [<match>]")
)

// ParseCommand decodes "FIRE <x> <y>" or "EXIT".
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}
	switch strings.ToUpper(fields[0]) {
	case "FIRE":
		if len(fields) != 3 {
			return Command{}, ErrMalformedCommand
		}
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return Command{}, ErrMalformedCommand
		}
		return Command{Kind: CmdFire, X: x, Y: y}, nil
	case "EXIT":
		return Command{Kind: CmdExit}, nil
	default:
		return Command{}, ErrUnknownCommand
	}
}

// FormatBoard lists a fleet as "BOARD x1 y1 x2 y2 ...".
func FormatBoard(fleet []board.Coordinate) string {
	var sb strings.Builder
	sb.WriteString("BOARD")
	for _, c := range fleet {
		fmt.Fprintf(&sb, " %d %d", c.Row, c.Col)
	}
	return sb.String()
}

// FormatPlayer tells a client which slot it holds in which match.
func FormatPlayer(ordinal int, matchID string) string {
	return fmt.Sprintf("PLAYER %d %s", ordinal, matchID)
}

// Registration is a decoded "REGISTER <player> [<match>]" datagram. An
// empty MatchID is the short form sent by clients that never learned it.
type Registration struct {
	Ordinal int
	MatchID string
}

// ParseRegister decodes a registration datagram.
func ParseRegister(datagram string) (Registration, error) {
	fields := strings.Fields(datagram)
	if len(fields) < 2 || len(fields) > 3 || !strings.EqualFold(fields[0], "REGISTER") {
		return Registration{}, ErrMalformedRegister
	}
	ordinal, err := strconv.Atoi(fields[1])
	if err != nil {
		return Registration{}, ErrMalformedRegister
	}
	reg := Registration{Ordinal: ordinal}
	if len(fields) == 3 {
		reg.MatchID = fields[2]
	}
	return reg, nil
}

// FormatError is the negative acknowledgement for a registration.
func FormatError(err error) string {
	return "ERR " + err.Error()
}
