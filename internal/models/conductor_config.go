package models

// ModelEntry is one catalog entry as it appears in YAML. Baseline latency is
// declared in milliseconds and converted to a duration when the catalog is
// built.
type ModelEntry struct {
	Name              string   `yaml:"name" json:"name"`
	Strength          Strength `yaml:"strength" json:"strength"`
	BaselineLatencyMs int      `yaml:"baseline_latency_ms" json:"baseline_latency_ms"`
	QualityScore      int      `yaml:"quality_score,omitempty" json:"quality_score,omitzero"`
	SizeGB            float64  `yaml:"size_gb,omitempty" json:"size_gb,omitzero"`
	MaxContext        int      `yaml:"max_context,omitempty" json:"max_context,omitzero"`
}

// ConductorConfig configures the model conductor's catalog and policy.
type ConductorConfig struct {
	Models []ModelEntry `yaml:"models" json:"models"`
	// DefaultComplexModel is the designated model for "complex" requests
	// that carry no disambiguating category. When empty, the reasoning
	// model with the lowest baseline latency is used.
	DefaultComplexModel string `yaml:"default_complex_model,omitempty" json:"default_complex_model,omitzero"`
	// MaxMemoryGB bounds how much model weight the runtime may hold
	// resident at once. Zero disables memory gating.
	MaxMemoryGB float64 `yaml:"max_memory_gb,omitempty" json:"max_memory_gb,omitzero"`
}

// RuntimeConfig configures the local inference runtime client. Timeout and
// breaker thresholds are caller-supplied; no retry policy exists.
type RuntimeConfig struct {
	BaseURL        string                `yaml:"base_url" json:"base_url"`
	TimeoutMs      int                   `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitzero"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker,omitempty" json:"circuit_breaker,omitzero"`
	RedisURL       string                `yaml:"redis_url,omitempty" json:"redis_url,omitzero"`
}

// CircuitBreakerConfig holds per-model breaker thresholds.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold,omitempty" json:"failure_threshold,omitzero"`
	SuccessThreshold int `yaml:"success_threshold,omitempty" json:"success_threshold,omitzero"`
	TimeoutMs        int `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitzero"`
	ResetAfterMs     int `yaml:"reset_after_ms,omitempty" json:"reset_after_ms,omitzero"`
}

// ResearchConfig configures the background research job pool.
type ResearchConfig struct {
	Workers    int `yaml:"workers,omitempty" json:"workers,omitzero"`
	QueueSize  int `yaml:"queue_size,omitempty" json:"queue_size,omitzero"`
	MaxSources int `yaml:"max_sources,omitempty" json:"max_sources,omitzero"`
}
