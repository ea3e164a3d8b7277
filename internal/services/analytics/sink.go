package analytics

import (
	"context"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// Sink receives execution records and answers aggregate queries over them.
// Append adds a new record to the log; Complete updates a previously
// appended record in place once its outcome is known. The log is
// append-only: completed records keep their identity, nothing is removed.
type Sink interface {
	Append(ctx context.Context, record *models.ExecutionRecord) error
	Complete(ctx context.Context, record *models.ExecutionRecord) error
	Stats(ctx context.Context) (*models.AnalyticsStats, error)
	UsageByModel(ctx context.Context) ([]models.ModelUsage, error)
	Recent(ctx context.Context, limit int) ([]models.ExecutionRecord, error)
}
