// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatchRecord 对局记录模型
type GormMatchRecord struct {
	gorm.Model
	MatchID      string    `gorm:"uniqueIndex;not null"`
	BoardSize    int       `gorm:"not null"`
	ShipCount    int       `gorm:"not null"`
	ShipLength   int       `gorm:"not null"`
	Winner       int       `gorm:"default:-1"`
	EndReason    string    `gorm:"not null"`
	ShotsPlayer0 int       `gorm:"default:0"`
	ShotsPlayer1 int       `gorm:"default:0"`
	Fleets       [2][]Cell `gorm:"serializer:json;type:jsonb"`
	StartedAt    time.Time
	EndedAt      time.Time `gorm:"index"`
}

func (GormMatchRecord) TableName() string {
	return "match_records"
}

// ToGorm converts an archive record to its table row.
func (r *MatchRecord) ToGorm() *GormMatchRecord {
	return &GormMatchRecord{
		MatchID:      r.MatchID,
		BoardSize:    r.BoardSize,
		ShipCount:    r.ShipCount,
		ShipLength:   r.ShipLength,
		Winner:       r.Winner,
		EndReason:    r.EndReason,
		ShotsPlayer0: r.Shots[0],
		ShotsPlayer1: r.Shots[1],
		Fleets:       r.Fleets,
		StartedAt:    r.StartedAt,
		EndedAt:      r.EndedAt,
	}
}

// Record converts a table row back to an archive record.
func (g *GormMatchRecord) Record() MatchRecord {
	return MatchRecord{
		MatchID:    g.MatchID,
		BoardSize:  g.BoardSize,
		ShipCount:  g.ShipCount,
		ShipLength: g.ShipLength,
		Winner:     g.Winner,
		EndReason:  g.EndReason,
		Shots:      [2]int{g.ShotsPlayer0, g.ShotsPlayer1},
		Fleets:     g.Fleets,
		StartedAt:  g.StartedAt,
		EndedAt:    g.EndedAt,
	}
}
