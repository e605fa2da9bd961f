// services/match_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/models"
	"github.com/wfunc/battleship/persistence"
)

// statsWindow bounds how many archived matches Stats aggregates.
const statsWindow = 1000

var ErrInvalidRecord = errors.New("invalid match record")

type MatchService struct {
	db persistence.Database
}

func NewMatchService(db persistence.Database) *MatchService {
	return &MatchService{db: db}
}

// Record archives a finished match.
func (s *MatchService) Record(ctx context.Context, record *models.MatchRecord) error {
	if record == nil || record.MatchID == "" {
		return ErrInvalidRecord
	}
	if err := s.db.SaveMatchRecord(ctx, record); err != nil {
		return fmt.Errorf("archive match %s: %w", record.MatchID, err)
	}
	logger.Log.Infow("match archived",
		"match_id", record.MatchID,
		"winner", record.Winner,
		"reason", record.EndReason,
		"duration", record.Duration())
	return nil
}

// History returns the most recent matches, newest first.
func (s *MatchService) History(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	return s.db.ListMatchRecords(ctx, limit)
}

// Lookup returns one archived match.
func (s *MatchService) Lookup(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	return s.db.LoadMatchRecord(ctx, matchID)
}

// Stats aggregates the most recent archived matches.
func (s *MatchService) Stats(ctx context.Context) (models.MatchStats, error) {
	var stats models.MatchStats
	records, err := s.db.ListMatchRecords(ctx, statsWindow)
	if err != nil {
		return stats, err
	}
	for _, r := range records {
		stats.TotalMatches++
		if r.Winner == 0 || r.Winner == 1 {
			stats.Wins[r.Winner]++
		}
		if r.EndReason == "forfeit" {
			stats.Forfeits++
		}
		stats.TotalShots += r.Shots[0] + r.Shots[1]
	}
	return stats, nil
}
