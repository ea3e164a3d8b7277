package models

import "time"

// ChatRequest is a single chat submission. Complexity is an optional hint;
// Model is an optional manual override that must name a catalog entry.
type ChatRequest struct {
	Message    string `json:"message"`
	Model      string `json:"model,omitzero"`
	Complexity string `json:"complexity,omitzero"`
}

// ChatResponse carries the generated text plus routing and timing metadata.
type ChatResponse struct {
	Response     string    `json:"response"`
	ModelUsed    string    `json:"model_used"`
	Reason       string    `json:"reason,omitzero"`
	ResponseTime float64   `json:"response_time"`
	CacheTier    string    `json:"cache_tier,omitzero"`
	Timestamp    time.Time `json:"timestamp"`
}

// ResearchRequest submits a background research job.
type ResearchRequest struct {
	Topic      string `json:"topic"`
	Complexity string `json:"complexity,omitzero"`
	MaxSources int    `json:"max_sources,omitzero"`
}

// RecommendRequest asks the conductor to recommend a model for a free-text
// task description.
type RecommendRequest struct {
	TaskDescription string `json:"task_description"`
}
