package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

// maxRecordsPerModel caps the in-memory history kept for each model so the
// log cannot grow without bound.
const maxRecordsPerModel = 100

// MemoryStore is an in-process sink used when no database is configured.
// Appends are safe under concurrent callers; each model keeps its most
// recent records up to a fixed cap.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint
	byModel map[string][]*models.ExecutionRecord
	byID    map[uint]*models.ExecutionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		byModel: make(map[string][]*models.ExecutionRecord),
		byID:    make(map[uint]*models.ExecutionRecord),
	}
}

func (m *MemoryStore) Append(_ context.Context, record *models.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record.ID = m.nextID
	m.nextID++

	stored := *record
	m.byID[stored.ID] = &stored

	history := append(m.byModel[record.Model], &stored)
	if len(history) > maxRecordsPerModel {
		evicted := history[0]
		delete(m.byID, evicted.ID)
		history = history[1:]
	}
	m.byModel[record.Model] = history
	return nil
}

func (m *MemoryStore) Complete(_ context.Context, record *models.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[record.ID]
	if !ok {
		return fmt.Errorf("execution record %d not found", record.ID)
	}
	*stored = *record
	return nil
}

func (m *MemoryStore) Stats(_ context.Context) (*models.AnalyticsStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.AnalyticsStats
	var totalLatency int64
	for _, history := range m.byModel {
		for _, r := range history {
			stats.TotalRequests++
			if r.Success {
				stats.SuccessRequests++
			} else {
				stats.FailedRequests++
			}
			totalLatency += int64(r.LatencyMs)
		}
	}
	if stats.TotalRequests > 0 {
		stats.AvgLatencyMs = float64(totalLatency) / float64(stats.TotalRequests)
	}
	return &stats, nil
}

func (m *MemoryStore) UsageByModel(_ context.Context) ([]models.ModelUsage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	usage := make([]models.ModelUsage, 0, len(m.byModel))
	for model, history := range m.byModel {
		usage = append(usage, models.ModelUsage{Model: model, Requests: int64(len(history))})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Requests != usage[j].Requests {
			return usage[i].Requests > usage[j].Requests
		}
		return usage[i].Model < usage[j].Model
	})
	return usage, nil
}

func (m *MemoryStore) Recent(_ context.Context, limit int) ([]models.ExecutionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	all := make([]models.ExecutionRecord, 0, len(m.byID))
	for _, r := range m.byID {
		all = append(all, *r)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID > all[j].ID
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
