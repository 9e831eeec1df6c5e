package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/config"
	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/handler"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/events"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("env", cfg.Env),
		zap.String("sqlite_path", cfg.SQLitePath),
		zap.Duration("summary_cache_ttl", cfg.SummaryCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
		zap.String("timezone", cfg.Timezone),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "fintrack-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Store ---
	store, err := sqlite.Open(context.Background(), cfg.SQLitePath, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	// --- Cache ---
	summaryCache := cache.New[domain.MonthlySummary](cfg.SummaryCacheTTL)
	defer summaryCache.Stop()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("amqp", logger)

	// --- Events ---
	var publisher port.EventPublisher
	if cfg.AMQPURL != "" {
		amqpPub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, cb, resilienceCfg, logger)
		if err != nil {
			logger.Warn("amqp unavailable, events will be dropped", zap.Error(err))
			publisher = events.NewNoopPublisher(logger)
		} else {
			logger.Info("publishing events to amqp",
				zap.String("exchange", cfg.AMQPExchange),
				zap.String("routing_key", cfg.AMQPRoutingKey),
			)
			publisher = amqpPub
		}
	} else {
		publisher = events.NewNoopPublisher(logger)
	}
	defer publisher.Close()

	// --- Services ---
	defaults := report.Defaults{
		DefaultCategory:      cfg.DefaultCategory,
		DefaultPaymentMethod: cfg.DefaultPaymentMethod,
		SavingsGoal:          decimal.NewFromFloat(cfg.DefaultSavingsGoal),
		TrendTopN:            cfg.TrendTopN,
		Location:             cfg.Location(),
	}

	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, metrics, logger)
	txSvc := service.NewTransactionService(store, summaryCache, publisher, defaults, metrics, logger)
	summarySvc := service.NewSummaryService(store, store, summaryCache, defaults, metrics, logger)
	budgetSvc := service.NewBudgetService(store, summarySvc, publisher, defaults, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Auth:           authSvc,
		Transactions:   txSvc,
		Summaries:      summarySvc,
		Budgets:        budgetSvc,
		DB:             store,
		Bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		Metrics:        metrics,
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CookieSecure:   cfg.CookieSecure,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
