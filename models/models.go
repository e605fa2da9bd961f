// models/models.go
package models

import (
	"time"
)

// Cell is one fleet cell in a match record.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MatchRecord is the archived summary of a finished match. Records are
// written once and never used to rebuild a session.
type MatchRecord struct {
	MatchID    string    `json:"match_id"`
	BoardSize  int       `json:"board_size"`
	ShipCount  int       `json:"ship_count"`
	ShipLength int       `json:"ship_length"`
	Winner     int       `json:"winner"`
	EndReason  string    `json:"end_reason"`
	Shots      [2]int    `json:"shots"`
	Fleets     [2][]Cell `json:"fleets"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// Duration of the match from start to end.
func (r *MatchRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// MatchStats aggregates archived matches.
type MatchStats struct {
	TotalMatches int    `json:"total_matches"`
	Wins         [2]int `json:"wins"`
	Forfeits     int    `json:"forfeits"`
	TotalShots   int    `json:"total_shots"`
}
