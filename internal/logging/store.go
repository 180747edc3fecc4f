package logging

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"gorm.io/gorm"
)

// LogStore persists and purges system log records.
type LogStore interface {
	SaveLogs(ctx context.Context, entries []models.SystemLog) error
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormLogStore keeps system logs in the system_logs table of any GORM dialect.
type GormLogStore struct {
	db *gorm.DB
}

func NewGormLogStore(db *gorm.DB) *GormLogStore {
	return &GormLogStore{db: db}
}

func (s *GormLogStore) SaveLogs(ctx context.Context, entries []models.SystemLog) error {
	return s.db.WithContext(ctx).CreateInBatches(entries, batchSize).Error
}

func (s *GormLogStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}
