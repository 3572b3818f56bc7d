package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm/logger"

	"github.com/rcapilot/rcapilot/internal/config"
	"github.com/rcapilot/rcapilot/internal/correlation"
	"github.com/rcapilot/rcapilot/internal/database"
	"github.com/rcapilot/rcapilot/internal/handlers"
	"github.com/rcapilot/rcapilot/internal/jobs"
	"github.com/rcapilot/rcapilot/internal/llm"
	"github.com/rcapilot/rcapilot/internal/middleware"
	"github.com/rcapilot/rcapilot/internal/notify"
	"github.com/rcapilot/rcapilot/internal/rca"
	"github.com/rcapilot/rcapilot/internal/vector"
)

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it (this is fine if using environment variables): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting rcapilot...")

	if cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is not set")
	}

	passwordHash, err := middleware.HashPassword(cfg.AdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	jwtAuthMiddleware := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     cfg.AdminUsername,
		AdminPasswordHash: passwordHash,
		JWTSecret:         cfg.JWTSecret,
		JWTExpiryHours:    cfg.JWTExpiryHours,
		SkipPaths: []string{
			"/health",
			"/metrics",
			"/auth/login",
			"/api/alerts", // ingestion endpoint for monitoring sources
		},
	})
	log.Printf("JWT authentication enabled for user: %s", cfg.AdminUsername)

	// Database
	db, err := database.Connect(cfg.DatabaseURL, logger.Warn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Database connection established")

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Correlation engine
	scorer := correlation.NewScorer(
		cfg.ScorerWeights,
		cfg.CorrelationTimeWindow.Seconds(),
		cfg.AllowCrossTypeGroups,
		correlation.TokenOverlapSimilarity,
	)
	engine := correlation.NewEngine(db, scorer, correlation.Config{
		Threshold:   cfg.CorrelationThreshold,
		Window:      cfg.CorrelationTimeWindow,
		DedupWindow: cfg.DedupWindow,
	})
	log.Printf("Correlation engine initialized (threshold %.2f, window %s)",
		cfg.CorrelationThreshold, cfg.CorrelationTimeWindow)

	// Vector store and historical-context retriever
	embedder := vector.NewCachingEmbedder(
		vector.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, 30*time.Second),
		15*time.Minute,
	)
	index := vector.NewStoreIndex(db)
	retriever := rca.NewRetriever(db, embedder, index, cfg.HistoricalContextK, cfg.SimilarityFloor)

	// Feedback aggregator
	aggregator := rca.NewAggregator(db)

	// RCA orchestrator
	completer := llm.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel, cfg.RCAGenerationRetries, 2*time.Second)
	orchestrator := rca.NewOrchestrator(db, completer, retriever, aggregator, index,
		cfg.RCAGenerationTimeout, cfg.PromptCharBudget)
	log.Printf("RCA orchestrator initialized (model %s at %s, timeout %s)",
		cfg.OllamaModel, cfg.OllamaHost, cfg.RCAGenerationTimeout)

	// Slack notifications (nil when unconfigured)
	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackRCAChannel)
	if notifier != nil {
		log.Printf("Slack notifications enabled for channel %s", cfg.SlackRCAChannel)
	} else {
		log.Printf("Slack notifications disabled (no token or channel configured)")
	}

	// Live event stream
	hub := handlers.NewEventHub()

	// HTTP handlers
	apiHandler := handlers.NewAPIHandler(db, engine, orchestrator, aggregator, hub, notifierOrNil(notifier))
	authHandler := handlers.NewAuthHandler(jwtAuthMiddleware, cfg.JWTExpiryHours)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	apiHandler.SetupRoutes(mux)
	authHandler.SetupRoutes(mux)

	corsMiddleware := middleware.NewCORSMiddleware()
	handler := middleware.RequestIDMiddleware(corsMiddleware.Wrap(jwtAuthMiddleware.Wrap(mux)))

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler,
	}

	go func() {
		log.Printf("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Background sweeper: closes idle groups and triggers auto RCA
	stopSweeper := make(chan struct{})
	sweeper := jobs.NewSweeperJob(engine, orchestrator, sweeperNotifier(notifier), cfg.SweepInterval, cfg.AutoGenerateRCA)
	go sweeper.Start(stopSweeper)
	log.Printf("Sweeper started (interval %s, auto RCA: %t)", cfg.SweepInterval, cfg.AutoGenerateRCA)

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal, cleaning up...")
	close(stopSweeper)

	if err := httpServer.Close(); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}
	if err := database.Close(db); err != nil {
		log.Printf("Error closing database: %v", err)
	}
	log.Println("Shutdown complete")
}

// notifierOrNil avoids handing handlers a typed-nil interface value
func notifierOrNil(n *notify.SlackNotifier) handlers.RCANotifier {
	if n == nil {
		return nil
	}
	return n
}

// sweeperNotifier avoids handing the sweeper a typed-nil interface value
func sweeperNotifier(n *notify.SlackNotifier) jobs.Notifier {
	if n == nil {
		return nil
	}
	return n
}
