package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/wfunc/battleship/config"
	"github.com/wfunc/battleship/models"
)

func sampleRecord(id string, ended time.Time) *models.MatchRecord {
	return &models.MatchRecord{
		MatchID:    id,
		BoardSize:  10,
		ShipCount:  1,
		ShipLength: 3,
		Winner:     1,
		EndReason:  "fleet_sunk",
		Shots:      [2]int{4, 5},
		Fleets: [2][]models.Cell{
			{{Row: 2, Col: 3}, {Row: 2, Col: 4}, {Row: 2, Col: 5}},
			{{Row: 5, Col: 1}, {Row: 6, Col: 1}, {Row: 7, Col: 1}},
		},
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   ended,
	}
}

func exerciseDatabase(t *testing.T, db Database) {
	ctx := context.Background()
	base := time.UnixMilli(1_700_000_000_000).UTC()

	if _, err := db.LoadMatchRecord(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}

	for i, id := range []string{"a", "b", "c"} {
		if err := db.SaveMatchRecord(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	got, err := db.LoadMatchRecord(ctx, "b")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Winner != 1 || got.Shots != [2]int{4, 5} || got.EndReason != "fleet_sunk" {
		t.Errorf("unexpected record %+v", got)
	}
	if len(got.Fleets[1]) != 3 || got.Fleets[1][2] != (models.Cell{Row: 7, Col: 1}) {
		t.Errorf("fleets not preserved: %+v", got.Fleets)
	}
	if got.Duration() != time.Minute {
		t.Errorf("expected 1m duration, got %v", got.Duration())
	}

	list, err := db.ListMatchRecords(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].MatchID != "c" || list[1].MatchID != "b" {
		t.Errorf("expected newest first [c b], got %+v", list)
	}

	// Saving again overwrites the outcome.
	updated := sampleRecord("a", base)
	updated.Winner = 0
	updated.EndReason = "forfeit"
	if err := db.SaveMatchRecord(ctx, updated); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = db.LoadMatchRecord(ctx, "a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Winner != 0 || got.EndReason != "forfeit" {
		t.Errorf("expected overwrite, got %+v", got)
	}
}

func TestMemory(t *testing.T) {
	db := NewMemory()
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestSQLite(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "matches.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestSQLiteRequiresPath(t *testing.T) {
	if _, err := NewSQLite("  "); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestOpen(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "none"})
	if err != nil {
		t.Fatalf("open none: %v", err)
	}
	if _, ok := db.(*Memory); !ok {
		t.Errorf("expected *Memory, got %T", db)
	}

	db, err = Open(config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db")},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Close()

	if _, err := Open(config.DatabaseConfig{Driver: "mongo"}); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}
