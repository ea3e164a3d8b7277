package ollama

import "time"

// Message is a single chat turn sent to the runtime.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the runtime's chat invocation payload.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChatResponse is the runtime's chat reply.
type ChatResponse struct {
	Model         string    `json:"model"`
	Message       Message   `json:"message"`
	Done          bool      `json:"done"`
	TotalDuration int64     `json:"total_duration,omitzero"`
	EvalCount     int       `json:"eval_count,omitzero"`
	CreatedAt     time.Time `json:"created_at,omitzero"`
}

// ModelInfo describes a model the runtime has available on disk.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
}

// LoadedModel describes a model currently resident in the runtime's memory.
type LoadedModel struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SizeVRAM  int64     `json:"size_vram,omitzero"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type tagsResponse struct {
	Models []ModelInfo `json:"models"`
}

type psResponse struct {
	Models []LoadedModel `json:"models"`
}
