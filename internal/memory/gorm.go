package memory

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/docbot/docbot/internal/chat"
	"github.com/docbot/docbot/internal/model"
)

// GormStore persists turns in PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

// OpenGorm connects to PostgreSQL and migrates the turn table.
func OpenGorm(ctx context.Context, dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&model.Turn{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate turns: %w", err)
	}

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm connection. The schema must exist.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Append(ctx context.Context, turn model.Turn) error {
	return s.db.WithContext(ctx).Create(&turn).Error
}

func (s *GormStore) Recent(ctx context.Context, key chat.ConversationKey, limit int) ([]model.Turn, error) {
	var turns []model.Turn
	err := s.db.WithContext(ctx).
		Where("platform = ? AND user_id = ? AND chat_id = ?", key.Platform, key.UserID, key.ChatID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&turns).Error
	if err != nil {
		return nil, err
	}

	reverse(turns)
	return turns, nil
}

func (s *GormStore) Clear(ctx context.Context, key chat.ConversationKey) error {
	return s.db.WithContext(ctx).
		Where("platform = ? AND user_id = ? AND chat_id = ?", key.Platform, key.UserID, key.ChatID).
		Delete(&model.Turn{}).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
