package analytics

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dkschrei/ai-research-agent/internal/models"
	"github.com/dkschrei/ai-research-agent/internal/services/database"
)

// Store persists execution records through gorm.
type Store struct {
	db *gorm.DB
}

// NewStore creates a database-backed sink and migrates its schema.
func NewStore(db *database.DB) (*Store, error) {
	if err := db.DB.AutoMigrate(&models.ExecutionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate execution records: %w", err)
	}
	return &Store{db: db.DB}, nil
}

func (s *Store) Append(ctx context.Context, record *models.ExecutionRecord) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to append execution record: %w", err)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, record *models.ExecutionRecord) error {
	if record.ID == 0 {
		return fmt.Errorf("cannot complete an execution record that was never appended")
	}
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to complete execution record %d: %w", record.ID, err)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (*models.AnalyticsStats, error) {
	var stats models.AnalyticsStats

	if err := s.db.WithContext(ctx).Model(&models.ExecutionRecord{}).
		Count(&stats.TotalRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count execution records: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.ExecutionRecord{}).
		Where("success = ?", true).Count(&stats.SuccessRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count successful records: %w", err)
	}
	stats.FailedRequests = stats.TotalRequests - stats.SuccessRequests

	if stats.TotalRequests > 0 {
		var avg *float64
		if err := s.db.WithContext(ctx).Model(&models.ExecutionRecord{}).
			Select("AVG(latency_ms)").Scan(&avg).Error; err != nil {
			return nil, fmt.Errorf("failed to average latency: %w", err)
		}
		if avg != nil {
			stats.AvgLatencyMs = *avg
		}
	}

	return &stats, nil
}

func (s *Store) UsageByModel(ctx context.Context) ([]models.ModelUsage, error) {
	var usage []models.ModelUsage
	err := s.db.WithContext(ctx).Model(&models.ExecutionRecord{}).
		Select("model, COUNT(*) as requests").
		Group("model").
		Order("requests DESC").
		Scan(&usage).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate model usage: %w", err)
	}
	return usage, nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []models.ExecutionRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent execution records: %w", err)
	}
	return records, nil
}
