package models

// Cache backend types
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Cache hit tiers reported to callers
const (
	CacheTierSemanticExact   = "semantic_exact"
	CacheTierSemanticSimilar = "semantic_similar"
)

// CacheConfig configures the semantic chat-response cache.
type CacheConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	Backend           string  `yaml:"backend,omitempty" json:"backend,omitzero"`
	RedisURL          string  `yaml:"redis_url,omitempty" json:"redis_url,omitzero"`
	Capacity          int     `yaml:"capacity,omitempty" json:"capacity,omitzero"`
	SemanticThreshold float64 `yaml:"semantic_threshold,omitempty" json:"semantic_threshold,omitzero"`
	OpenAIAPIKey      string  `yaml:"openai_api_key,omitempty" json:"-"`
	EmbeddingModel    string  `yaml:"embedding_model,omitempty" json:"embedding_model,omitzero"`
}
