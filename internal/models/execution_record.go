package models

import "time"

// ExecutionRecord is the outcome of dispatching one request to a chosen
// model. Every dispatch appends exactly one record; research jobs update
// their record in place when the background invocation finishes.
type ExecutionRecord struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RequestID    string     `gorm:"not null;size:100;index;default:''" json:"request_id,omitzero"`
	JobID        string     `gorm:"size:100;index;default:''" json:"job_id,omitzero"`
	TaskType     TaskType   `gorm:"not null;size:50;index;default:''" json:"task_type"`
	Complexity   Complexity `gorm:"not null;size:20;default:''" json:"complexity"`
	Model        string     `gorm:"not null;size:100;index;default:''" json:"model"`
	Reason       string     `gorm:"not null;size:255;default:''" json:"reason,omitzero"`
	Success      bool       `gorm:"not null;default:false" json:"success"`
	ErrorType    ErrorType  `gorm:"size:30;default:''" json:"error_type,omitzero"`
	ErrorMessage string     `gorm:"type:text;default:''" json:"error_message,omitzero"`
	LatencyMs    int        `gorm:"not null;default:0" json:"latency_ms"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at,omitzero"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (ExecutionRecord) TableName() string {
	return "execution_records"
}

// AnalyticsStats aggregates the execution log.
type AnalyticsStats struct {
	TotalRequests   int64   `json:"total_requests"`
	SuccessRequests int64   `json:"success_requests"`
	FailedRequests  int64   `json:"failed_requests"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
}

// ModelUsage is a per-model usage frequency row.
type ModelUsage struct {
	Model    string `json:"model"`
	Requests int64  `json:"requests"`
}
