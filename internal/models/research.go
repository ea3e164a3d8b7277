package models

import "time"

// JobStatus is a research job's lifecycle state. Transitions only move
// forward: submitted -> running -> completed | failed. Terminal states are
// entered exactly once and never left.
type JobStatus string

const (
	JobSubmitted JobStatus = "submitted"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobSubmitted:
		return next == JobRunning || next == JobFailed
	case JobRunning:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// ResearchJob is the caller-visible view of a background research job, keyed
// by its handle.
type ResearchJob struct {
	JobID       string          `json:"job_id"`
	Topic       string          `json:"topic"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitzero"`
	Result      *ResearchResult `json:"result,omitzero"`
	Error       string          `json:"error,omitzero"`
}

// ResearchResult is the completed output of a research job.
type ResearchResult struct {
	Report         string     `json:"report"`
	ModelUsed      string     `json:"model_used"`
	Complexity     Complexity `json:"complexity"`
	ProcessingTime float64    `json:"processing_time"`
	Timestamp      time.Time  `json:"timestamp"`
}
