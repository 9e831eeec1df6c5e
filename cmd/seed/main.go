// Command seed creates a demo account with a few transactions in the
// current month. Running it twice leaves the existing account untouched.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/config"
	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/events"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

const (
	demoEmail    = "demo@fintrack.com"
	demoPassword = "demo1234"
)

type seedTx struct {
	day      int
	amount   string
	typ      domain.TransactionType
	category string
	method   string
	note     string
}

var demoTransactions = []seedTx{
	{1, "2000", domain.TypeIncome, "Salary", "bank", "Monthly salary"},
	{2, "1200", domain.TypeExpense, "Rent", "bank", "Apartment"},
	{3, "12.50", domain.TypeExpense, "Food", "debit", "McDonalds"},
	{4, "55", domain.TypeExpense, "Transport", "credit", "Uber"},
}

func main() {
	_ = config.LoadDotEnv(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	metrics := observability.NewMetrics()
	summaryCache := cache.New[domain.MonthlySummary](cfg.SummaryCacheTTL)
	defer summaryCache.Stop()

	defaults := report.Defaults{
		DefaultCategory:      cfg.DefaultCategory,
		DefaultPaymentMethod: cfg.DefaultPaymentMethod,
		SavingsGoal:          decimal.NewFromFloat(cfg.DefaultSavingsGoal),
		TrendTopN:            cfg.TrendTopN,
		Location:             cfg.Location(),
	}

	authSvc := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, metrics, logger)
	txSvc := service.NewTransactionService(store, summaryCache, events.NewNoopPublisher(logger), defaults, metrics, logger)

	user, err := authSvc.Register(ctx, &domain.RegisterRequest{Email: demoEmail, Password: demoPassword, Name: "Demo User"})
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		logger.Info("demo user already exists, nothing to do", zap.String("email", demoEmail))
		return nil
	}
	if err != nil {
		return fmt.Errorf("register demo user: %w", err)
	}

	month := report.CurrentMonth(time.Now(), defaults.Loc())
	for _, s := range demoTransactions {
		amount := decimal.RequireFromString(s.amount)
		day := month.Start.AddDate(0, 0, s.day-1)
		if _, err := txSvc.Create(ctx, user.ID, &domain.CreateTransactionRequest{
			Date:          day.Format("2006-01-02"),
			Amount:        &amount,
			Type:          s.typ,
			Category:      s.category,
			PaymentMethod: s.method,
			Note:          s.note,
		}); err != nil {
			return fmt.Errorf("seed transaction %q: %w", s.note, err)
		}
	}

	logger.Info("demo data seeded",
		zap.String("email", demoEmail),
		zap.String("month", month.Key()),
		zap.Int("transactions", len(demoTransactions)),
	)
	return nil
}
