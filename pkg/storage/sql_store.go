package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const defaultDBPath = "mirrorworld.db"

var _ TokenStore = (*SQLStore)(nil)

// SQLStore keeps tokens in a SQLite database.
type SQLStore struct {
	db *gorm.DB
}

// RefreshTokenDTO is the persisted row.
type RefreshTokenDTO struct {
	Key       string    `gorm:"column:storage_key;primaryKey"`
	Token     string    `gorm:"column:token;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (RefreshTokenDTO) TableName() string {
	return "refresh_tokens"
}

// NewSQLStore opens (or creates) the SQLite database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		path = defaultDBPath
	}

	dsn := fmt.Sprintf("file:%s?cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	return NewSQLStoreFromDB(db)
}

// NewSQLStoreFromDB uses an existing connection and migrates the schema.
func NewSQLStoreFromDB(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&RefreshTokenDTO{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var dto RefreshTokenDTO
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&dto).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	} else if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	return dto.Token, nil
}

func (s *SQLStore) Set(ctx context.Context, key, token string) error {
	dto := RefreshTokenDTO{Key: key, Token: token, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&dto).Error
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&RefreshTokenDTO{}).Error; err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
