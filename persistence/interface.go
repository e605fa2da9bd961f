// persistence/interface.go
package persistence

import (
	"context"
	"errors"

	"github.com/wfunc/battleship/models"
)

// Database archives finished matches.
type Database interface {
	SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error
	LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error)
	// ListMatchRecords returns the most recent records first.
	ListMatchRecords(ctx context.Context, limit int) ([]models.MatchRecord, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownDriver  = errors.New("unknown database driver")
)
