package network

import (
	"errors"
	"testing"

	"github.com/wfunc/battleship/board"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line    string
		want    Command
		wantErr error
	}{
		{"FIRE 3 4", Command{Kind: CmdFire, X: 3, Y: 4}, nil},
		{"  fire 0   9 ", Command{Kind: CmdFire, X: 0, Y: 9}, nil},
		{"FIRE -1 12", Command{Kind: CmdFire, X: -1, Y: 12}, nil},
		{"EXIT", Command{Kind: CmdExit}, nil},
		{"FIRE 3", Command{}, ErrMalformedCommand},
		{"FIRE a b", Command{}, ErrMalformedCommand},
		{"FIRE 1 2 3", Command{}, ErrMalformedCommand},
		{"", Command{}, ErrUnknownCommand},
		{"SHOOT 1 2", Command{}, ErrUnknownCommand},
	}
	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("ParseCommand(%q) error = %v, want %v", tt.line, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestCommandErrorTexts(t *testing.T) {
	if ErrUnknownCommand.Error() != "unrecognized command" {
		t.Errorf("Unexpected text %q", ErrUnknownCommand.Error())
	}
	if ErrMalformedCommand.Error() != "usage: FIRE <x> <y>" {
		t.Errorf("Unexpected text %q", ErrMalformedCommand.Error())
	}
}

func TestFormatBoard(t *testing.T) {
	fleet := []board.Coordinate{{Row: 2, Col: 3}, {Row: 2, Col: 4}, {Row: 5, Col: 1}}
	if got := FormatBoard(fleet); got != "BOARD 2 3 2 4 5 1" {
		t.Errorf("FormatBoard = %q", got)
	}
	if got := FormatBoard(nil); got != "BOARD" {
		t.Errorf("FormatBoard(nil) = %q", got)
	}
}

func TestParseRegister(t *testing.T) {
	tests := []struct {
		datagram string
		want     Registration
	}{
		{"REGISTER 1\n", Registration{Ordinal: 1}},
		{"register 0 3f2a-match", Registration{Ordinal: 0, MatchID: "3f2a-match"}},
	}
	for _, tt := range tests {
		got, err := ParseRegister(tt.datagram)
		if err != nil || got != tt.want {
			t.Errorf("ParseRegister(%q) = %+v, %v, want %+v", tt.datagram, got, err, tt.want)
		}
	}
	for _, bad := range []string{"REGISTER", "REGISTER x", "HELLO 1", "REGISTER 1 m extra"} {
		if _, err := ParseRegister(bad); !errors.Is(err, ErrMalformedRegister) {
			t.Errorf("ParseRegister(%q) error = %v", bad, err)
		}
	}
}

func TestFormatPlayer(t *testing.T) {
	if got := FormatPlayer(1, "m-42"); got != "PLAYER 1 m-42" {
		t.Errorf("FormatPlayer = %q", got)
	}
}
