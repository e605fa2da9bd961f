// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wfunc/battleship/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
	return openGorm(postgres.Open(dsn))
}

func openGorm(dialector gorm.Dialector) (*GormPostgreSQL, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormMatchRecord{}); err != nil {
		return nil, fmt.Errorf("migrate match_records: %w", err)
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveMatchRecord(ctx context.Context, record *models.MatchRecord) error {
	row := record.ToGorm()
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"winner", "end_reason", "shots_player0", "shots_player1", "ended_at", "updated_at"}),
	}).Create(row).Error
}

func (p *GormPostgreSQL) LoadMatchRecord(ctx context.Context, matchID string) (*models.MatchRecord, error) {
	var row models.GormMatchRecord
	if err := p.db.WithContext(ctx).Where("match_id = ?", matchID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	record := row.Record()
	return &record, nil
}

func (p *GormPostgreSQL) ListMatchRecords(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.GormMatchRecord
	if err := p.db.WithContext(ctx).Order("ended_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]models.MatchRecord, 0, len(rows))
	for i := range rows {
		result = append(result, rows[i].Record())
	}
	return result, nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
