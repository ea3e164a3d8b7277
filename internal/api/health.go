package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dkschrei/ai-research-agent/internal/services/database"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
)

// HealthHandler reports service health and dependency status.
type HealthHandler struct {
	runtime     *ollama.Client
	redisClient *redis.Client
	db          *database.DB
}

// NewHealthHandler creates a health check handler. redisClient and db may be
// nil when those dependencies are not configured.
func NewHealthHandler(runtime *ollama.Client, redisClient *redis.Client, db *database.DB) *HealthHandler {
	return &HealthHandler{
		runtime:     runtime,
		redisClient: redisClient,
		db:          db,
	}
}

// HealthCheck probes the inference runtime, redis, and the database
// concurrently and reports per-dependency status.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	var runtimeStatus, redisStatus, dbStatus string

	g, ctx := errgroup.WithContext(c.Context())
	g.Go(func() error {
		runtimeStatus = h.checkRuntime(ctx)
		return nil
	})
	g.Go(func() error {
		redisStatus = h.checkRedis(ctx)
		return nil
	})
	g.Go(func() error {
		dbStatus = h.checkDatabase(ctx)
		return nil
	})
	_ = g.Wait()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK
	if runtimeStatus == "unhealthy" || redisStatus == "unhealthy" || dbStatus == "unhealthy" {
		overallStatus = "degraded"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"runtime":  runtimeStatus,
			"redis":    redisStatus,
			"database": dbStatus,
		},
	})
}

func (h *HealthHandler) checkRuntime(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.runtime.Health(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkRedis(ctx context.Context) string {
	if h.redisClient == nil {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkDatabase(ctx context.Context) string {
	if h.db == nil {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}
