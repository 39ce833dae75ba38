package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alfredoptarigan/ai-interviewer/internal/config"
	"alfredoptarigan/ai-interviewer/internal/handlers"
	"alfredoptarigan/ai-interviewer/internal/models"
	"alfredoptarigan/ai-interviewer/internal/repositories"
	"alfredoptarigan/ai-interviewer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("✅ Config loaded successfully", zap.String("env", cfg.Server.Env))

	// Initialize database
	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	jobRepo := repositories.NewJobRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)
	interviewRepo := repositories.NewInterviewRepository(db)
	conversationRepo := repositories.NewConversationRepository(db)
	log.Info("✅ Repositories initialized successfully")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := services.NewMetrics(registry)

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath, "/uploads")
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("❌ Failed to create upload directory", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gateway, embedder, err := initLLM(ctx, cfg)
	if err != nil {
		log.Fatal("❌ Failed to initialize language model", zap.Error(err))
	}
	log.Info("✅ Language model initialized", zap.String("provider", gateway.Name()))

	locker, err := initLocker(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Failed to initialize conversation lock", zap.Error(err))
	}

	// Transcript indexing is optional
	var indexer services.TranscriptIndexer
	if cfg.IndexingEnabled() && embedder != nil {
		store, err := services.NewQdrantStore(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, log)
		if err != nil {
			log.Fatal("❌ Failed to initialize Qdrant", zap.Error(err))
		}
		if err := store.InitCollection(ctx); err != nil {
			log.Fatal("❌ Failed to initialize Qdrant collection", zap.Error(err))
		}

		indexer = services.NewTranscriptIndexer(interviewRepo, conversationRepo, embedder, store, metrics, log, services.IndexerConfig{
			Concurrency:  cfg.Worker.Concurrency,
			PollInterval: cfg.Worker.PollInterval,
		})
		indexer.Start(ctx)
		log.Info("✅ Transcript indexer started")
	} else {
		log.Info("ℹ️ Transcript indexing disabled (QDRANT_URL or GEMINI_API_KEY not set)")
	}

	deps := services.InterviewDependencies{
		Interviews:    interviewRepo,
		Conversations: conversationRepo,
		Jobs:          jobRepo,
		Candidates:    candidateRepo,
		Gateway:       gateway,
		Retry: services.RetryPolicy{
			MaxAttempts:  cfg.LLM.RetryMaxAttempts,
			InitialDelay: cfg.LLM.RetryInitialDelay,
		},
		LLMTimeout:   cfg.LLM.Timeout,
		Locker:       locker,
		ResumeParser: services.NewResumeParserService(),
		Storage:      storageService,
		MaxVideoSize: cfg.Storage.MaxVideoSize,
		Metrics:      metrics,
		Logger:       log,
	}
	if indexer != nil {
		deps.Indexer = indexer
	}
	interviewService := services.NewInterviewService(deps)

	// Initialize handlers
	jobHandler := handlers.NewJobHandler(jobRepo, log)
	candidateHandler := handlers.NewCandidateHandler(candidateRepo, storageService, cfg.Storage.MaxResumeSize, log)
	interviewHandler := handlers.NewInterviewHandler(interviewService, indexer, log)
	log.Info("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AI Interviewer API",
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 2 * cfg.LLM.Timeout,
		BodyLimit:    int(cfg.Storage.MaxVideoSize) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Recordings are public; resumes are not served.
	app.Static("/uploads/interviews", filepath.Join(cfg.Storage.UploadPath, "interviews"))

	// Routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now(),
			"provider": gateway.Name(),
		})
	})
	api.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(api, jobHandler, candidateHandler, interviewHandler)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "AI Interviewer API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/jobs",
				"POST /api/v1/candidates",
				"POST /api/v1/candidates/:id/resume",
				"POST /api/v1/interviews",
				"GET /api/v1/interviews/:id",
				"POST /api/v1/interviews/:id/reply",
				"POST /api/v1/interviews/:id/end",
				"POST /api/v1/interviews/:id/video",
				"GET /api/v1/interviews/search",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("🛑 Shutting down server...")
		if err := app.ShutdownWithTimeout(cfg.LLM.Timeout + 5*time.Second); err != nil {
			log.Error("❌ Server forced to shutdown", zap.Error(err))
		}
		if indexer != nil {
			indexer.Stop()
		}
		cancel()
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("🚀 Server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		log.Fatal("❌ Failed to start server", zap.Error(err))
	}
}

// initLLM builds the reply gateway chosen by LLM_PROVIDER and, when a Gemini key is present,
// the embedder used for transcript search.
func initLLM(ctx context.Context, cfg *config.Config) (services.LLMGateway, services.Embedder, error) {
	var gemini *services.GeminiService
	if cfg.LLM.GeminiAPIKey != "" {
		var err error
		gemini, err = services.NewGeminiService(ctx, services.GeminiConfig{
			APIKey:      cfg.LLM.GeminiAPIKey,
			Model:       cfg.LLM.GeminiModel,
			EmbedModel:  cfg.LLM.EmbedModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	var embedder services.Embedder
	if gemini != nil {
		embedder = gemini
	}

	switch cfg.LLM.Provider {
	case "anthropic":
		anthropicService, err := services.NewAnthropicService(services.AnthropicConfig{
			APIKey:      cfg.LLM.AnthropicAPIKey,
			Model:       cfg.LLM.AnthropicModel,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return nil, nil, err
		}
		return anthropicService, embedder, nil
	case "gemini", "":
		if gemini == nil {
			return nil, nil, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
		return gemini, embedder, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLM.Provider)
	}
}

// initLocker uses Redis when REDIS_URL is set, so several instances can share interviews.
func initLocker(ctx context.Context, cfg *config.Config, log *zap.Logger) (services.ConversationLocker, error) {
	if cfg.Redis.URL == "" {
		log.Info("🔒 Using in-process conversation lock")
		return services.NewLocalLocker(cfg.Redis.LockWait), nil
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("🔒 Using Redis conversation lock")
	return services.NewRedisLocker(client, cfg.Redis.LockTTL, cfg.Redis.LockWait, log), nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	kind := services.KindInternal
	switch code {
	case fiber.StatusNotFound:
		kind = services.KindNotFound
	case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusMethodNotAllowed:
		kind = services.KindValidation
	}

	message := "internal server error"
	if code < fiber.StatusInternalServerError {
		message = err.Error()
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   string(kind),
		Message: message,
	})
}
