// persistence/sqlite.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wfunc/battleship/models"
	// SQLite 驱动
	_ "modernc.org/sqlite"
)

// SQLite archives matches to a local file.
type SQLite struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}

// NewSQLite opens the database file at path, creating the schema if needed.
func NewSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            match_id TEXT PRIMARY KEY,
            board_size INTEGER NOT NULL,
            ship_count INTEGER NOT NULL,
            ship_length INTEGER NOT NULL,
            winner INTEGER NOT NULL DEFAULT -1,
            end_reason TEXT NOT NULL,
            shots_player0 INTEGER NOT NULL DEFAULT 0,
            shots_player1 INTEGER NOT NULL DEFAULT 0,
            fleets TEXT NOT NULL,
            started_at INTEGER NOT NULL DEFAULT 0,
            ended_at INTEGER NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_match_records_ended_at ON match_records(ended_at);
    `)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create match_records: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fleets, err := json.Marshal(record.Fleets)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO match_records (match_id, board_size, ship_count, ship_length, winner,
            end_reason, shots_player0, shots_player1, fleets, started_at, ended_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(match_id) DO UPDATE SET
            winner = excluded.winner,
            end_reason = excluded.end_reason,
            shots_player0 = excluded.shots_player0,
            shots_player1 = excluded.shots_player1,
            ended_at = excluded.ended_at
    `,
		record.MatchID, record.BoardSize, record.ShipCount, record.ShipLength, record.Winner,
		record.EndReason, record.Shots[0], record.Shots[1], string(fleets),
		toMillis(record.StartedAt), toMillis(record.EndedAt))
	if err != nil {
		return fmt.Errorf("save match %s: %w", record.MatchID, err)
	}
	return nil
}

func scanSQLiteRecord(row rowScanner) (*models.MatchRecord, error) {
	var (
		r                  models.MatchRecord
		fleets             string
		startedAt, endedAt int64
	)
	err := row.Scan(&r.MatchID, &r.BoardSize, &r.ShipCount, &r.ShipLength, &r.Winner,
		&r.EndReason, &r.Shots[0], &r.Shots[1], &fleets, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fleets), &r.Fleets); err != nil {
		return nil, fmt.Errorf("decode fleets: %w", err)
	}
	r.StartedAt = fromMillis(startedAt)
	r.EndedAt = fromMillis(endedAt)
	return &r, nil
}

func (s *SQLite) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectMatchColumns+` FROM match_records WHERE match_id = ?`, matchID)
	record, err := scanSQLiteRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return record, err
}

func (s *SQLite) ListMatchRecords(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectMatchColumns+` FROM match_records ORDER BY ended_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MatchRecord
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
