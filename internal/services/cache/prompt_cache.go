package cache

import (
	"context"
	"fmt"

	"github.com/botirk38/semanticcache"
	"github.com/botirk38/semanticcache/options"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/dkschrei/ai-research-agent/internal/models"
)

const (
	defaultSemanticThreshold = 0.9
	defaultCapacity          = 1000
	defaultEmbeddingModel    = "text-embedding-3-large"
)

// PromptCache caches chat responses keyed by prompt, with exact match tried
// first and semantic similarity second.
type PromptCache struct {
	cache             *semanticcache.SemanticCache[string, models.ChatResponse]
	semanticThreshold float32
}

// NewPromptCache builds the cache from configuration. Returns an error when
// the cache is disabled or misconfigured; callers treat a nil cache as
// cache-off.
func NewPromptCache(cfg *models.CacheConfig) (*PromptCache, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, fmt.Errorf("prompt cache not configured")
	}

	threshold := cfg.SemanticThreshold
	if threshold == 0 {
		threshold = defaultSemanticThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid semantic threshold %.2f; must be in (0.0, 1.0]", threshold)
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("embedding API key not set in cache configuration")
	}

	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = defaultEmbeddingModel
	}

	backend := cfg.Backend
	if backend == "" {
		backend = models.CacheBackendMemory
	}

	var sc *semanticcache.SemanticCache[string, models.ChatResponse]
	var err error

	switch backend {
	case models.CacheBackendMemory:
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = defaultCapacity
		}
		fiberlog.Debugf("PromptCache: using in-memory LRU backend with capacity=%d", capacity)
		sc, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.ChatResponse](cfg.OpenAIAPIKey, embedModel),
			options.WithLRUBackend[string, models.ChatResponse](capacity),
		)
	case models.CacheBackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis URL not set in cache configuration")
		}
		fiberlog.Debug("PromptCache: using redis backend")
		sc, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.ChatResponse](cfg.OpenAIAPIKey, embedModel),
			options.WithRedisBackend[string, models.ChatResponse](cfg.RedisURL, 0),
		)
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s (supported: redis, memory)", backend)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create semantic cache: %w", err)
	}

	fiberlog.Info("PromptCache: semantic cache created")
	return &PromptCache{
		cache:             sc,
		semanticThreshold: float32(threshold),
	}, nil
}

// Lookup tries an exact key match first, then semantic similarity. The
// returned tier names which level hit.
func (pc *PromptCache) Lookup(ctx context.Context, prompt, requestID string) (*models.ChatResponse, string, bool) {
	if hit, found, err := pc.cache.Get(ctx, prompt); found && err == nil {
		fiberlog.Infof("[%s] PromptCache: exact cache hit", requestID)
		return &hit, models.CacheTierSemanticExact, true
	} else if err != nil {
		fiberlog.Errorf("[%s] PromptCache: error during exact lookup: %v", requestID, err)
	}

	if match, err := pc.cache.Lookup(ctx, prompt, pc.semanticThreshold); err == nil && match != nil {
		fiberlog.Infof("[%s] PromptCache: semantic cache hit", requestID)
		return &match.Value, models.CacheTierSemanticSimilar, true
	} else if err != nil {
		fiberlog.Errorf("[%s] PromptCache: error during semantic lookup: %v", requestID, err)
	}

	fiberlog.Debugf("[%s] PromptCache: cache miss", requestID)
	return nil, "", false
}

// Store caches a chat response under its prompt, fire-and-forget.
func (pc *PromptCache) Store(ctx context.Context, prompt string, response *models.ChatResponse, requestID string) {
	fiberlog.Debugf("[%s] PromptCache: storing response (fire-and-forget, model: %s)", requestID, response.ModelUsed)
	pc.cache.SetAsync(ctx, prompt, prompt, *response)
}

// Close releases the cache's backing resources.
func (pc *PromptCache) Close() error {
	if pc.cache != nil {
		return pc.cache.Close()
	}
	return nil
}
