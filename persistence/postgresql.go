// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"
	"github.com/wfunc/battleship/models"
)

// PostgreSQL archives matches with plain SQL over lib/pq.
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS match_records (
            id SERIAL PRIMARY KEY,
            match_id VARCHAR(64) UNIQUE NOT NULL,
            board_size INT NOT NULL,
            ship_count INT NOT NULL,
            ship_length INT NOT NULL,
            winner INT NOT NULL DEFAULT -1,
            end_reason VARCHAR(32) NOT NULL,
            shots_player0 INT NOT NULL DEFAULT 0,
            shots_player1 INT NOT NULL DEFAULT 0,
            fleets JSONB NOT NULL,
            started_at TIMESTAMPTZ,
            ended_at TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("create match_records: %w", err)
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_match_records_ended_at ON match_records(ended_at);
    `)
	return err
}

func (p *PostgreSQL) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	fleets, err := json.Marshal(record.Fleets)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO match_records (match_id, board_size, ship_count, ship_length, winner,
            end_reason, shots_player0, shots_player1, fleets, started_at, ended_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (match_id)
        DO UPDATE SET winner = $5, end_reason = $6, shots_player0 = $7, shots_player1 = $8, ended_at = $11
    `
	_, err = p.db.ExecContext(ctx, query,
		record.MatchID, record.BoardSize, record.ShipCount, record.ShipLength, record.Winner,
		record.EndReason, record.Shots[0], record.Shots[1], fleets, record.StartedAt, record.EndedAt)
	return err
}

const selectMatchColumns = `match_id, board_size, ship_count, ship_length, winner,
    end_reason, shots_player0, shots_player1, fleets, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgresRecord(row rowScanner) (*models.MatchRecord, error) {
	var (
		r         models.MatchRecord
		fleets    []byte
		startedAt sql.NullTime
	)
	err := row.Scan(&r.MatchID, &r.BoardSize, &r.ShipCount, &r.ShipLength, &r.Winner,
		&r.EndReason, &r.Shots[0], &r.Shots[1], &fleets, &startedAt, &r.EndedAt)
	if err != nil {
		return nil, err
	}
	if startedAt.Valid {
		r.StartedAt = startedAt.Time
	}
	if err := json.Unmarshal(fleets, &r.Fleets); err != nil {
		return nil, fmt.Errorf("decode fleets: %w", err)
	}
	return &r, nil
}

func (p *PostgreSQL) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+selectMatchColumns+` FROM match_records WHERE match_id = $1`, matchID)
	record, err := scanPostgresRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	return record, err
}

func (p *PostgreSQL) ListMatchRecords(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+selectMatchColumns+` FROM match_records ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.MatchRecord
	for rows.Next() {
		record, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	return result, rows.Err()
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
