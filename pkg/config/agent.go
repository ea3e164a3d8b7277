package config

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/dkschrei/ai-research-agent/internal/api"
	"github.com/dkschrei/ai-research-agent/internal/config"
	"github.com/dkschrei/ai-research-agent/internal/services/analytics"
	"github.com/dkschrei/ai-research-agent/internal/services/cache"
	"github.com/dkschrei/ai-research-agent/internal/services/circuitbreaker"
	"github.com/dkschrei/ai-research-agent/internal/services/conductor"
	"github.com/dkschrei/ai-research-agent/internal/services/database"
	"github.com/dkschrei/ai-research-agent/internal/services/ollama"
	"github.com/dkschrei/ai-research-agent/internal/services/request"
	"github.com/dkschrei/ai-research-agent/internal/services/research"
	"github.com/dkschrei/ai-research-agent/internal/services/response"
)

// Agent is the research agent server instance.
type Agent struct {
	config  *config.Config
	app     *fiber.App
	builder *Builder

	redis       *redis.Client
	db          *database.DB
	runtime     *ollama.Client
	sink        *analytics.AsyncSink
	cond        *conductor.Conductor
	manager     *research.Manager
	promptCache *cache.PromptCache
}

// NewAgent creates a new Agent instance with the given configuration.
// The cfg parameter is required and must not be nil.
func NewAgent(cfg *config.Config) *Agent {
	if cfg == nil {
		panic("config cannot be nil - use config.LoadFromFile() or the builder to create one")
	}
	return &Agent{config: cfg}
}

// NewAgentWithBuilder creates a new Agent instance from a configuration
// builder, allowing middleware customization.
func NewAgentWithBuilder(b *Builder) *Agent {
	return &Agent{
		config:  b.Build(),
		builder: b,
	}
}

// Run starts the agent server and blocks until shutdown.
func (a *Agent) Run() error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogLevel(a.config)

	port := a.config.Server.Port
	if port == "" {
		port = "8080"
	}
	listenAddr := ":" + port

	a.app = createFiberApp(a.config)

	if err := a.initializeInfrastructure(); err != nil {
		return err
	}
	defer a.cleanup()

	if err := a.initializeServices(); err != nil {
		return err
	}

	a.setupMiddleware()
	a.setupRoutes()

	fmt.Printf("Research agent starting on %s\n", listenAddr)
	fmt.Printf("   Environment: %s\n", a.config.Server.Environment)
	fmt.Printf("   Go version: %s\n", runtime.Version())
	fmt.Printf("   GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := a.app.Listen(listenAddr); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		fiberlog.Infof("Received signal: %v. Starting graceful shutdown...", sig)
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	}

	fiberlog.Info("Server shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	shutdownErrChan := make(chan error, 1)
	go func() {
		shutdownErrChan <- a.app.ShutdownWithTimeout(30 * time.Second)
	}()

	select {
	case err := <-shutdownErrChan:
		if err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fiberlog.Info("Server shutdown completed successfully")
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}

func (a *Agent) initializeInfrastructure() error {
	redisClient, err := createRedisClient(a.config)
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	a.redis = redisClient

	if a.config.Database != nil {
		db, err := database.New(*a.config.Database)
		if err != nil {
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		a.db = db
		fiberlog.Infof("Database (%s) initialized successfully", db.DriverName())
	} else {
		fiberlog.Info("Database not configured - analytics kept in memory")
	}

	clientCfg := ollama.DefaultClientConfig(a.config.Runtime.BaseURL)
	if a.config.Runtime.TimeoutMs > 0 {
		clientCfg.Timeout = time.Duration(a.config.Runtime.TimeoutMs) * time.Millisecond
	}
	a.runtime = ollama.NewClientWithConfig(clientCfg)

	return nil
}

func (a *Agent) initializeServices() error {
	var base analytics.Sink
	if a.db != nil {
		store, err := analytics.NewStore(a.db)
		if err != nil {
			return fmt.Errorf("failed to initialize analytics store: %w", err)
		}
		base = store
	} else {
		base = analytics.NewMemoryStore()
	}
	a.sink = analytics.NewAsyncSink(base, 2, 256)

	catalog, err := conductor.NewCatalog(a.config.Conductor)
	if err != nil {
		return fmt.Errorf("failed to build model catalog: %w", err)
	}

	var breakers map[string]*circuitbreaker.CircuitBreaker
	if a.redis != nil {
		breakers = make(map[string]*circuitbreaker.CircuitBreaker, len(catalog.Names()))
		for _, name := range catalog.Names() {
			if cbCfg := a.config.Runtime.CircuitBreaker; cbCfg != nil {
				breakers[name] = circuitbreaker.NewWithConfig(a.redis, name, circuitbreaker.Config{
					FailureThreshold: cbCfg.FailureThreshold,
					SuccessThreshold: cbCfg.SuccessThreshold,
					Timeout:          time.Duration(cbCfg.TimeoutMs) * time.Millisecond,
					ResetAfter:       time.Duration(cbCfg.ResetAfterMs) * time.Millisecond,
				})
			} else {
				breakers[name] = circuitbreaker.NewForModel(a.redis, name)
			}
		}
		fiberlog.Infof("Circuit breakers initialized for %d models", len(breakers))
	} else {
		fiberlog.Info("Redis not configured - circuit breakers disabled")
	}

	cond := conductor.New(catalog, a.runtime, a.sink, breakers, a.config.Conductor.MaxMemoryGB)
	a.manager = research.NewManager(cond, a.config.Research)

	if pc, err := cache.NewPromptCache(a.config.Cache); err == nil {
		a.promptCache = pc
	} else if a.config.Cache != nil && a.config.Cache.Enabled {
		fiberlog.Warnf("Prompt cache disabled: %v", err)
	}

	a.cond = cond
	return nil
}

func (a *Agent) setupRoutes() {
	reqSvc := request.NewService()
	respSvc := response.NewService()

	chatHandler := api.NewChatHandler(a.cond, a.promptCache, reqSvc, respSvc)
	researchHandler := api.NewResearchHandler(a.manager, reqSvc, respSvc)
	modelsHandler := api.NewModelsHandler(a.cond, a.runtime, reqSvc, respSvc)
	analyticsHandler := api.NewAnalyticsHandler(a.sink, a.manager, respSvc)
	healthHandler := api.NewHealthHandler(a.runtime, a.redis, a.db)

	a.app.Get("/health", healthHandler.HealthCheck)
	a.app.Get("/", welcomeHandler())

	v1 := a.app.Group("/v1")
	v1.Post("/chat", chatHandler.Chat)
	v1.Post("/research", researchHandler.Submit)
	v1.Get("/research", researchHandler.List)
	v1.Get("/research/:id", researchHandler.Get)
	v1.Get("/models", modelsHandler.List)
	v1.Post("/models/recommend", modelsHandler.Recommend)
	v1.Post("/models/:name/load", modelsHandler.Load)
	v1.Get("/analytics", analyticsHandler.Get)
}

func (a *Agent) setupMiddleware() {
	isProd := a.config.IsProduction()

	a.app.Use(recover.New(recover.Config{
		EnableStackTrace: !isProd,
	}))

	if a.builder != nil && a.builder.GetRateLimitConfig() != nil {
		rlCfg := a.builder.GetRateLimitConfig()
		keyFunc := rlCfg.KeyFunc
		if keyFunc == nil {
			keyFunc = func(c *fiber.Ctx) string { return c.IP() }
		}
		a.app.Use(limiter.New(limiter.Config{
			Max:               rlCfg.Max,
			Expiration:        rlCfg.Expiration,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator:      keyFunc,
			LimitReached: func(c *fiber.Ctx) error {
				return fmt.Errorf("%d requests per %v", rlCfg.Max, rlCfg.Expiration)
			},
		}))
	} else {
		a.app.Use(limiter.New(limiter.Config{
			Max:               1000,
			Expiration:        1 * time.Minute,
			LimiterMiddleware: limiter.SlidingWindow{},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fmt.Errorf("1000 requests per minute")
			},
		}))
	}

	if a.builder != nil && a.builder.GetTimeoutConfig() != nil {
		timeoutDuration := a.builder.GetTimeoutConfig().Timeout
		a.app.Use(func(c *fiber.Ctx) error {
			ctx, cancel := context.WithTimeout(c.UserContext(), timeoutDuration)
			defer cancel()
			c.SetUserContext(ctx)
			return c.Next()
		})
	}

	a.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	if isProd {
		a.app.Use(logger.New(logger.Config{
			Format: "${time} ${status} ${method} ${path} ${latency} ${bytesSent}b\n",
			Output: os.Stdout,
		}))
	} else {
		a.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path} ${error}\n",
			Output: os.Stdout,
		}))
	}

	a.app.Use(cors.New(cors.Config{
		AllowOrigins:     a.config.Server.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, User-Agent, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
		MaxAge:           86400,
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
	}))

	if a.builder != nil {
		for _, middleware := range a.builder.GetMiddlewares() {
			a.app.Use(middleware)
		}
	}

	if !isProd {
		a.app.Use(pprof.New())
	}
}

func (a *Agent) cleanup() {
	if a.manager != nil {
		a.manager.Stop()
	}
	if a.sink != nil {
		a.sink.Stop()
	}
	if a.promptCache != nil {
		if err := a.promptCache.Close(); err != nil {
			fiberlog.Errorf("Failed to close prompt cache: %v", err)
		}
	}
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			fiberlog.Errorf("Failed to close redis client: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			fiberlog.Errorf("Failed to close database connection: %v", err)
		}
	}
}

func createFiberApp(cfg *config.Config) *fiber.App {
	isProd := cfg.IsProduction()

	return fiber.New(fiber.Config{
		AppName:              "ResearchAgent v1.0",
		EnablePrintRoutes:    !isProd,
		ReadTimeout:          2 * time.Minute,
		WriteTimeout:         2 * time.Minute,
		IdleTimeout:          5 * time.Minute,
		ReadBufferSize:       8192,
		WriteBufferSize:      8192,
		CompressedFileSuffix: ".gz",
		Prefork:              false,
		CaseSensitive:        true,
		StrictRouting:        false,
		Network:              "tcp",
		ServerHeader:         "ResearchAgent",
	})
}

func setupLogLevel(cfg *config.Config) {
	logLevel := cfg.GetNormalizedLogLevel()

	switch logLevel {
	case "trace":
		fiberlog.SetLevel(fiberlog.LevelTrace)
	case "debug":
		fiberlog.SetLevel(fiberlog.LevelDebug)
	case "info":
		fiberlog.SetLevel(fiberlog.LevelInfo)
	case "warn", "warning":
		fiberlog.SetLevel(fiberlog.LevelWarn)
	case "error":
		fiberlog.SetLevel(fiberlog.LevelError)
	case "fatal":
		fiberlog.SetLevel(fiberlog.LevelFatal)
	case "panic":
		fiberlog.SetLevel(fiberlog.LevelPanic)
	default:
		fiberlog.SetLevel(fiberlog.LevelInfo)
		fiberlog.Warnf("Unknown log level '%s', defaulting to 'info'", logLevel)
	}

	fiberlog.Infof("Log level set to: %s", logLevel)
}

func createRedisClient(cfg *config.Config) (*redis.Client, error) {
	redisURL := cfg.Runtime.RedisURL
	if redisURL == "" && cfg.Cache != nil {
		redisURL = cfg.Cache.RedisURL
	}
	if redisURL == "" {
		return nil, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	opt.PoolSize = 50
	opt.MinIdleConns = 10
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	opt.ConnMaxLifetime = 30 * time.Minute
	opt.DialTimeout = 10 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.MaxRetries = 3
	opt.MinRetryBackoff = 8 * time.Millisecond
	opt.MaxRetryBackoff = 512 * time.Millisecond

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			fiberlog.Errorf("Failed to close redis client after connection failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	fiberlog.Info("Redis connection established successfully")
	return client, nil
}

func welcomeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":    "Welcome to the Research Agent!",
			"version":    "1.0.0",
			"go_version": runtime.Version(),
			"status":     "running",
			"endpoints": fiber.Map{
				"chat":      "/v1/chat",
				"research":  "/v1/research",
				"models":    "/v1/models",
				"analytics": "/v1/analytics",
				"health":    "/health",
			},
		})
	}
}
