// Package config provides the research agent server and its fluent
// configuration builder.
package config

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/dkschrei/ai-research-agent/internal/config"
	"github.com/dkschrei/ai-research-agent/internal/models"
)

// Builder provides a fluent interface for building agent configurations.
type Builder struct {
	cfg             *config.Config
	middlewares     []fiber.Handler
	rateLimitConfig *models.RateLimitConfig
	timeoutConfig   *models.TimeoutConfig
}

// New creates a new configuration builder with minimal defaults. The model
// catalog starts empty and must be populated with AddModel before Run will
// accept the configuration.
func New() *Builder {
	return &Builder{
		cfg: &config.Config{
			Server: models.ServerConfig{
				Port:           "8080",
				AllowedOrigins: "*",
				Environment:    "development",
				LogLevel:       "info",
			},
			Runtime: models.RuntimeConfig{
				BaseURL: "http://localhost:11434",
			},
		},
		middlewares: []fiber.Handler{},
	}
}

// Port sets the server port.
func (b *Builder) Port(port string) *Builder {
	b.cfg.Server.Port = port
	return b
}

// AllowedOrigins sets CORS allowed origins.
func (b *Builder) AllowedOrigins(origins string) *Builder {
	b.cfg.Server.AllowedOrigins = origins
	return b
}

// Environment sets the environment (development/production).
func (b *Builder) Environment(env string) *Builder {
	b.cfg.Server.Environment = env
	return b
}

// LogLevel sets the logging level (trace, debug, info, warn, error, fatal).
func (b *Builder) LogLevel(level string) *Builder {
	b.cfg.Server.LogLevel = level
	return b
}

// AddModel adds a model to the conductor's catalog.
func (b *Builder) AddModel(entry models.ModelEntry) *Builder {
	b.cfg.Conductor.Models = append(b.cfg.Conductor.Models, entry)
	return b
}

// DefaultComplexModel designates the model used for complex requests with
// no disambiguating category.
func (b *Builder) DefaultComplexModel(name string) *Builder {
	b.cfg.Conductor.DefaultComplexModel = name
	return b
}

// MaxMemoryGB bounds how much model weight may be resident at once.
func (b *Builder) MaxMemoryGB(gb float64) *Builder {
	b.cfg.Conductor.MaxMemoryGB = gb
	return b
}

// WithRuntime configures the local inference runtime client.
func (b *Builder) WithRuntime(cfg models.RuntimeConfig) *Builder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	b.cfg.Runtime = cfg
	return b
}

// WithResearch configures the background research job pool.
func (b *Builder) WithResearch(cfg models.ResearchConfig) *Builder {
	b.cfg.Research = cfg
	return b
}

// WithPromptCache enables semantic chat-response caching.
func (b *Builder) WithPromptCache(cfg models.CacheConfig) *Builder {
	if cfg.SemanticThreshold == 0 {
		cfg.SemanticThreshold = 0.9
	}
	b.cfg.Cache = &cfg
	return b
}

// WithDatabase enables the persisted analytics store.
func (b *Builder) WithDatabase(cfg models.DatabaseConfig) *Builder {
	b.cfg.Database = &cfg
	return b
}

// WithRateLimit configures rate limiting middleware.
func (b *Builder) WithRateLimit(max int, expiration time.Duration, keyFunc ...func(*fiber.Ctx) string) *Builder {
	cfg := &models.RateLimitConfig{
		Max:        max,
		Expiration: expiration,
	}
	if len(keyFunc) > 0 {
		cfg.KeyFunc = keyFunc[0]
	}
	b.rateLimitConfig = cfg
	return b
}

// WithTimeout configures request timeout middleware.
func (b *Builder) WithTimeout(timeout time.Duration) *Builder {
	b.timeoutConfig = &models.TimeoutConfig{Timeout: timeout}
	return b
}

// WithMiddleware adds a custom middleware.
func (b *Builder) WithMiddleware(middleware fiber.Handler) *Builder {
	b.middlewares = append(b.middlewares, middleware)
	return b
}

// GetMiddlewares returns all configured middlewares.
func (b *Builder) GetMiddlewares() []fiber.Handler {
	return b.middlewares
}

// GetRateLimitConfig returns the rate limit configuration.
func (b *Builder) GetRateLimitConfig() *models.RateLimitConfig {
	return b.rateLimitConfig
}

// GetTimeoutConfig returns the timeout configuration.
func (b *Builder) GetTimeoutConfig() *models.TimeoutConfig {
	return b.timeoutConfig
}

// Build returns the constructed configuration.
func (b *Builder) Build() *config.Config {
	return b.cfg
}

// FromYAML creates a Builder from a YAML configuration file. The envFiles
// parameter specifies which .env files to load before parsing the config,
// first file has highest priority.
func FromYAML(path string, envFiles []string) (*Builder, error) {
	if len(envFiles) > 0 {
		config.LoadEnvFiles(envFiles)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}

	return &Builder{
		cfg:         cfg,
		middlewares: []fiber.Handler{},
	}, nil
}
