package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"reader-sync/internal/domain"
)

// LocalPosition is the device-local cache row for one document.
type LocalPosition struct {
	DocumentID string  `gorm:"primaryKey;size:255"`
	Page       int     `gorm:"not null;default:0"`
	Locator    string  `gorm:"type:text"`
	Percentage float64 `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (LocalPosition) TableName() string {
	return "local_positions"
}

// SQLitePositionStore implements domain.PositionStore on top of gorm.
type SQLitePositionStore struct {
	db *gorm.DB
}

var _ domain.PositionStore = (*SQLitePositionStore)(nil)

func NewSQLitePositionStore(db *gorm.DB) *SQLitePositionStore {
	return &SQLitePositionStore{db: db}
}

// Get returns the cached position, or nil when the document was never read here.
func (s *SQLitePositionStore) Get(ctx context.Context, documentID string) (*domain.Position, error) {
	var row LocalPosition
	err := s.db.WithContext(ctx).Where("document_id = ?", documentID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local position: %w", err)
	}
	return &domain.Position{Page: row.Page, Locator: row.Locator, Percentage: row.Percentage}, nil
}

// Set overwrites the cached position.
func (s *SQLitePositionStore) Set(ctx context.Context, documentID string, pos domain.Position) error {
	row := LocalPosition{
		DocumentID: documentID,
		Page:       pos.Page,
		Locator:    pos.Locator,
		Percentage: pos.Percentage,
		UpdatedAt:  time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"page", "locator", "percentage", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write local position: %w", err)
	}
	return nil
}
