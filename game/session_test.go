package game

import (
	"errors"
	"math/rand"
	"net"
	"testing"

	"github.com/wfunc/battleship/board"
)

// newTestSession builds a session of the given size where each player has
// ships only at the listed cells.
func newTestSession(t *testing.T, size int, fleet0, fleet1 []board.Coordinate) *Session {
	t.Helper()
	boards := [Players]*board.Board{}
	for i, fleet := range [][]board.Coordinate{fleet0, fleet1} {
		b, err := board.NewBoard(size)
		if err != nil {
			t.Fatalf("NewBoard failed: %v", err)
		}
		for _, c := range fleet {
			if err := board.PlaceShip(b, c, board.Horizontal, 1); err != nil {
				t.Fatalf("PlaceShip %s failed: %v", c, err)
			}
		}
		boards[i] = b
	}
	s := NewSessionWithBoards(boards[0], boards[1])
	for i := 0; i < Players; i++ {
		if _, err := s.Join(); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}
	return s
}

func udpAddr(port int) net.Addr {
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}
}

func TestNewSession_PlacesFleets(t *testing.T) {
	s, err := NewSession(DefaultConfig(), rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	for i := 0; i < Players; i++ {
		if n := len(s.Fleet(i)); n != 9 {
			t.Errorf("Player %d: expected 9 fleet cells, got %d", i, n)
		}
	}
	if s.GameOver() || s.Winner() != -1 || s.CurrentTurn() != 0 {
		t.Errorf("Unexpected initial state: %+v", s.Snapshot())
	}
}

func TestNewSession_FixedLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FixedLayout = true
	s, err := NewSession(cfg, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	want0 := []board.Coordinate{{Row: 2, Col: 3}, {Row: 2, Col: 4}, {Row: 2, Col: 5}}
	want1 := []board.Coordinate{{Row: 5, Col: 1}, {Row: 6, Col: 1}, {Row: 7, Col: 1}}
	for i, want := range [][]board.Coordinate{want0, want1} {
		got := s.Fleet(i)
		if len(got) != len(want) {
			t.Fatalf("Player %d: expected %v, got %v", i, want, got)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("Player %d cell %d: expected %s, got %s", i, j, want[j], got[j])
			}
		}
	}
}

func TestNewSession_ImpossibleFleet(t *testing.T) {
	cfg := Config{BoardSize: 2, ShipCount: 3, ShipLength: 3}
	if _, err := NewSession(cfg, rand.New(rand.NewSource(1))); !errors.Is(err, board.ErrFleetTooLarge) {
		t.Fatalf("Expected ErrFleetTooLarge, got %v", err)
	}
}

func TestJoinLeave(t *testing.T) {
	b0, _ := board.NewBoard(3)
	b1, _ := board.NewBoard(3)
	s := NewSessionWithBoards(b0, b1)

	first, err := s.Join()
	if err != nil || first != 0 {
		t.Fatalf("Expected ordinal 0, got %d (%v)", first, err)
	}
	second, err := s.Join()
	if err != nil || second != 1 {
		t.Fatalf("Expected ordinal 1, got %d (%v)", second, err)
	}
	if _, err := s.Join(); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("Expected ErrSessionFull, got %v", err)
	}

	s.Leave(0)
	s.Leave(0)
	if s.ConnectedPlayers() != 1 {
		t.Fatalf("Expected 1 connected player, got %d", s.ConnectedPlayers())
	}
	again, err := s.Join()
	if err != nil || again != 0 {
		t.Fatalf("Expected the freed slot 0, got %d (%v)", again, err)
	}
}

func TestResolveFire_Outcomes(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 9, Col: 9}}, []board.Coordinate{{Row: 1, Col: 1}, {Row: 1, Col: 2}})

	tests := []struct {
		name string
		x, y int
		want Outcome
	}{
		{"miss", 0, 0, Miss},
		{"hit", 1, 1, Hit},
		{"refire miss", 0, 0, AlreadyFired},
		{"refire hit", 1, 1, AlreadyFired},
		{"negative", -1, 3, OutOfRange},
		{"too large", 3, 10, OutOfRange},
		{"winning", 1, 2, WinningHit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ResolveFire(0, tt.x, tt.y); got != tt.want {
				t.Errorf("ResolveFire(0, %d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}

	// The shooter's own board was never touched.
	if s.Board(0).Count(board.Empty) != 99 || s.Board(0).Count(board.Occupied) != 1 {
		t.Error("Shooter's own board was mutated")
	}
	if !s.GameOver() || s.Winner() != 0 || s.EndReason() != FleetSunk {
		t.Errorf("Expected player 0 to win by sinking the fleet, got %+v", s.Snapshot())
	}
}

func TestResolveFire_AtMostOneMutation(t *testing.T) {
	s, err := NewSession(Config{BoardSize: 4, ShipCount: 2, ShipLength: 2}, rand.New(rand.NewSource(3)))
	if err != nil {
		t.Fatal(err)
	}
	target := s.Board(1)
	for x := -1; x <= 4; x++ {
		for y := -1; y <= 4; y++ {
			for round := 0; round < 2; round++ {
				before := snapshotCells(target)
				outcome := s.ResolveFire(0, x, y)
				changed := diffCells(before, snapshotCells(target))
				if changed > 1 {
					t.Fatalf("Fire at (%d,%d) changed %d cells", x, y, changed)
				}
				if round == 1 && target.InBounds(x, y) && outcome != AlreadyFired {
					t.Fatalf("Second fire at (%d,%d): expected AlreadyFired, got %v", x, y, outcome)
				}
				if round == 1 && changed != 0 {
					t.Fatalf("Second fire at (%d,%d) mutated the board", x, y)
				}
			}
		}
	}
}

func snapshotCells(b *board.Board) []board.CellState {
	var cells []board.CellState
	for r := 0; r < b.Size(); r++ {
		for c := 0; c < b.Size(); c++ {
			cells = append(cells, b.Cell(r, c))
		}
	}
	return cells
}

func diffCells(a, b []board.CellState) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

func TestFire_TurnPolicy(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 0, Col: 0}, {Row: 0, Col: 1}}, []board.Coordinate{{Row: 4, Col: 4}, {Row: 4, Col: 5}})

	steps := []struct {
		shooter  int
		x, y     int
		want     Outcome
		nextTurn int
	}{
		{0, 4, 4, Hit, 0},
		{0, 4, 4, AlreadyFired, 0},
		{0, 12, 0, OutOfRange, 1},
		{1, 9, 9, Miss, 0},
		{0, 3, 3, Miss, 1},
		{1, 0, 0, Hit, 1},
		{1, 0, 1, WinningHit, 1},
	}
	for i, step := range steps {
		reply := s.Fire(step.shooter, step.x, step.y)
		if !reply.Admitted() {
			t.Fatalf("Step %d: unexpected rejection %v", i, reply.Err)
		}
		if reply.Outcome != step.want {
			t.Errorf("Step %d: expected %v, got %v", i, step.want, reply.Outcome)
		}
		if reply.Text != step.want.ShooterText() {
			t.Errorf("Step %d: expected text %q, got %q", i, step.want.ShooterText(), reply.Text)
		}
		if s.CurrentTurn() != step.nextTurn {
			t.Errorf("Step %d: expected turn %d, got %d", i, step.nextTurn, s.CurrentTurn())
		}
	}
}

func TestFire_NotYourTurn(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 0, Col: 0}}, []board.Coordinate{{Row: 4, Col: 4}})
	if err := s.RegisterEndpoint(0, udpAddr(9000)); err != nil {
		t.Fatal(err)
	}

	reply := s.Fire(1, 0, 0)
	if !errors.Is(reply.Err, ErrNotYourTurn) || reply.Text != "not your turn" {
		t.Fatalf("Expected not your turn, got %+v", reply)
	}
	if reply.Notice != nil {
		t.Error("Rejected commands must not notify")
	}
	if s.Board(0).Cell(0, 0) != board.Occupied || s.Slot(1).ShotsFired != 0 {
		t.Error("Rejected command mutated the session")
	}
}

func TestFire_WinningHitEndsGame(t *testing.T) {
	// A 2x2 board with one length-1 ship at (0,0) for the opponent.
	s := newTestSession(t, 2, []board.Coordinate{{Row: 1, Col: 1}}, []board.Coordinate{{Row: 0, Col: 0}})

	reply := s.Fire(0, 0, 0)
	if reply.Outcome != WinningHit || reply.Text != "HIT and sunk. You win!" {
		t.Fatalf("Expected WinningHit, got %+v", reply)
	}
	if s.CurrentTurn() != 0 {
		t.Errorf("Turn must stay with the winner, got %d", s.CurrentTurn())
	}
	if !s.GameOver() {
		t.Fatal("Expected game over")
	}

	for _, shooter := range []int{0, 1} {
		for _, c := range [][2]int{{0, 1}, {1, 1}, {7, 7}} {
			r := s.Fire(shooter, c[0], c[1])
			if !errors.Is(r.Err, ErrGameOver) || r.Text != "game is over" {
				t.Errorf("Player %d fire at %v: expected game is over, got %+v", shooter, c, r)
			}
		}
	}
	if s.Board(0).Cell(1, 1) != board.Occupied {
		t.Error("Fires after the end must not mutate")
	}
}

func TestFire_Notification(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 0, Col: 0}}, []board.Coordinate{{Row: 4, Col: 4}})

	reply := s.Fire(0, 5, 5)
	if reply.Outcome != Miss {
		t.Fatalf("Expected Miss, got %v", reply.Outcome)
	}
	if reply.Notice != nil {
		t.Fatal("No notification may be produced for an unregistered opponent")
	}
	if s.CurrentTurn() != 1 {
		t.Fatalf("Expected the turn to flip to 1, got %d", s.CurrentTurn())
	}

	addr := udpAddr(7000)
	if err := s.RegisterEndpoint(0, addr); err != nil {
		t.Fatal(err)
	}
	reply = s.Fire(1, 5, 5)
	if reply.Notice == nil {
		t.Fatal("Expected a notification for the registered opponent")
	}
	if reply.Notice.Text != "Opponent fired at (5,5): Miss" {
		t.Errorf("Unexpected notification text %q", reply.Notice.Text)
	}
	if reply.Notice.Ordinal != 0 || reply.Notice.Endpoint != addr {
		t.Errorf("Notification addressed to %d at %v", reply.Notice.Ordinal, reply.Notice.Endpoint)
	}
}

func TestRegisterEndpoint_LastWriteWins(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 0, Col: 0}}, []board.Coordinate{{Row: 4, Col: 4}})
	first, second := udpAddr(7000), udpAddr(7001)

	if err := s.RegisterEndpoint(1, first); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterEndpoint(1, second); err != nil {
		t.Fatal(err)
	}
	if got := s.Slot(1).Endpoint; got != second {
		t.Errorf("Expected the latest endpoint %v, got %v", second, got)
	}
	if err := s.RegisterEndpoint(2, first); !errors.Is(err, ErrInvalidPlayer) {
		t.Errorf("Expected ErrInvalidPlayer, got %v", err)
	}
}

func TestForfeit(t *testing.T) {
	s := newTestSession(t, 10, []board.Coordinate{{Row: 0, Col: 0}}, []board.Coordinate{{Row: 4, Col: 4}})
	s.Leave(1)
	s.Forfeit(1)

	if !s.GameOver() || s.Winner() != 0 || s.EndReason() != Forfeit {
		t.Fatalf("Expected player 0 to win by forfeit, got %+v", s.Snapshot())
	}
	if _, err := s.Join(); !errors.Is(err, ErrGameOver) {
		t.Errorf("Joining a finished session should fail with ErrGameOver, got %v", err)
	}
}

func TestOutcomeTexts(t *testing.T) {
	tests := []struct {
		o        Outcome
		shooter  string
		opponent string
		passes   bool
	}{
		{Hit, "HIT", "Hit", false},
		{Miss, "MISS", "Miss", true},
		{AlreadyFired, "Already fired", "Already fired", false},
		{WinningHit, "HIT and sunk. You win!", "Hit and sunk. You lose!", false},
		{OutOfRange, "MISS (out of range)", "Miss (out of range)", true},
	}
	for _, tt := range tests {
		if tt.o.ShooterText() != tt.shooter {
			t.Errorf("%v: shooter text %q", tt.o, tt.o.ShooterText())
		}
		if tt.o.OpponentText() != tt.opponent {
			t.Errorf("%v: opponent text %q", tt.o, tt.o.OpponentText())
		}
		if tt.o.PassesTurn() != tt.passes {
			t.Errorf("%v: PassesTurn = %v", tt.o, tt.o.PassesTurn())
		}
	}
}
