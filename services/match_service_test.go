package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfunc/battleship/models"
	"github.com/wfunc/battleship/persistence"
)

type failingDB struct {
	persistence.Database
}

func (failingDB) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	return errors.New("disk full")
}

func TestMatchServiceRecordAndStats(t *testing.T) {
	svc := NewMatchService(persistence.NewMemory())
	ctx := context.Background()
	now := time.Now()

	records := []*models.MatchRecord{
		{MatchID: "m1", Winner: 0, EndReason: "fleet_sunk", Shots: [2]int{5, 4}, EndedAt: now},
		{MatchID: "m2", Winner: 1, EndReason: "forfeit", Shots: [2]int{1, 1}, EndedAt: now.Add(time.Second)},
		{MatchID: "m3", Winner: 1, EndReason: "fleet_sunk", Shots: [2]int{3, 3}, EndedAt: now.Add(2 * time.Second)},
	}
	for _, r := range records {
		if err := svc.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.MatchID, err)
		}
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalMatches != 3 || stats.Wins != [2]int{1, 2} || stats.Forfeits != 1 || stats.TotalShots != 17 {
		t.Errorf("unexpected stats %+v", stats)
	}

	history, err := svc.History(ctx, 1)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].MatchID != "m3" {
		t.Errorf("expected newest match m3, got %+v", history)
	}

	got, err := svc.Lookup(ctx, "m2")
	if err != nil || got.EndReason != "forfeit" {
		t.Errorf("lookup m2: %+v, %v", got, err)
	}
}

func TestMatchServiceRejectsInvalid(t *testing.T) {
	svc := NewMatchService(persistence.NewMemory())
	if err := svc.Record(context.Background(), nil); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
	if err := svc.Record(context.Background(), &models.MatchRecord{}); !errors.Is(err, ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestMatchServiceWrapsStorageError(t *testing.T) {
	svc := NewMatchService(failingDB{persistence.NewMemory()})
	err := svc.Record(context.Background(), &models.MatchRecord{MatchID: "x"})
	if err == nil || err.Error() != "archive match x: disk full" {
		t.Errorf("unexpected error %v", err)
	}
}
