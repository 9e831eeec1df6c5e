package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
)

var summaryTracer = otel.Tracer("service/summary")

// SummaryService serves the monthly aggregation views.
type SummaryService struct {
	transactions port.TransactionStore
	budgets      port.BudgetStore
	cache        port.Cache[domain.MonthlySummary]
	defaults     report.Defaults
	now          func() time.Time
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewSummaryService creates a SummaryService.
func NewSummaryService(transactions port.TransactionStore, budgets port.BudgetStore, cache port.Cache[domain.MonthlySummary], defaults report.Defaults, metrics *observability.Metrics, logger *zap.Logger) *SummaryService {
	return &SummaryService{
		transactions: transactions,
		budgets:      budgets,
		cache:        cache,
		defaults:     defaults,
		now:          time.Now,
		metrics:      metrics,
		logger:       logger,
	}
}

// SetClock overrides the time source used to pick the current month.
func (s *SummaryService) SetClock(now func() time.Time) { s.now = now }

// ============================================================
// MonthlySummary — GET /v1/transactions/summary
// ============================================================

// MonthlySummary aggregates the user's transactions for month (YYYY-MM).
// An empty month aggregates everything.
func (s *SummaryService) MonthlySummary(ctx context.Context, userID, month string) (*domain.MonthlySummary, error) {
	ctx, span := summaryTracer.Start(ctx, "SummaryService.MonthlySummary")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("month", month))

	var window *report.MonthWindow
	if month != "" {
		w, err := report.ParseMonth(month, s.defaults.Loc())
		if err != nil {
			return nil, err
		}
		window = &w
	}

	summary, err := s.summarize(ctx, userID, window)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// summarize reads through the per-user summary cache.
func (s *SummaryService) summarize(ctx context.Context, userID string, window *report.MonthWindow) (domain.MonthlySummary, error) {
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("summary.monthly", time.Since(start)) }()

	month := ""
	filter := domain.TransactionFilter{}
	if window != nil {
		month = window.Key()
		filter.From, filter.To = &window.Start, &window.End
	}

	key := summaryKey(userID, month)
	prefix := summaryUserPrefix(userID)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit(summaryCacheName)
		return cached, nil
	}
	s.metrics.IncrCacheMiss(summaryCacheName)

	// Read the generation before listing: a write that lands in between
	// bumps it and the stale result is not stored.
	gen := s.cache.Generation(prefix)

	txs, err := s.transactions.ListTransactions(ctx, userID, filter)
	if err != nil {
		return domain.MonthlySummary{}, fmt.Errorf("list transactions: %w", err)
	}

	summary := report.Aggregate(txs, window, s.defaults)
	if !s.cache.SetIfGeneration(key, prefix, gen, summary) {
		s.logger.Debug("summary not cached, invalidated while computing",
			zap.String("user_id", userID),
			zap.String("month", month),
		)
	}

	s.logger.Debug("summary computed",
		zap.String("user_id", userID),
		zap.String("month", month),
		zap.Int("transactions", len(txs)),
	)
	return summary, nil
}

// resolveMonth parses month, defaulting to the current one.
func (s *SummaryService) resolveMonth(month string) (report.MonthWindow, error) {
	if month == "" {
		return report.CurrentMonth(s.now(), s.defaults.Loc()), nil
	}
	return report.ParseMonth(month, s.defaults.Loc())
}

// ============================================================
// Trend — GET /v1/summary/trend
// ============================================================

func (s *SummaryService) Trend(ctx context.Context, userID, month string) (*domain.TrendResponse, error) {
	ctx, span := summaryTracer.Start(ctx, "SummaryService.Trend")
	defer span.End()

	w, err := s.resolveMonth(month)
	if err != nil {
		return nil, err
	}
	prev := w.Prev()

	var current, previous domain.MonthlySummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.summarize(gctx, userID, &w)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.summarize(gctx, userID, &prev)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.TrendResponse{
		Month:         w.Key(),
		PreviousMonth: prev.Key(),
		Rows:          s.trendRows(current, previous),
	}, nil
}

func (s *SummaryService) trendRows(current, previous domain.MonthlySummary) []domain.TrendRow {
	return report.CompareTrend(
		report.ExpenseByCategory(current),
		report.ExpenseByCategory(previous),
		s.defaults.TrendTopN,
	)
}

// ============================================================
// Dashboard — GET /v1/dashboard
// ============================================================

// Dashboard bundles the month summary, budget status and trend rows.
func (s *SummaryService) Dashboard(ctx context.Context, userID, month string) (*domain.DashboardResponse, error) {
	ctx, span := summaryTracer.Start(ctx, "SummaryService.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	w, err := s.resolveMonth(month)
	if err != nil {
		return nil, err
	}
	prev := w.Prev()

	var (
		current, previous domain.MonthlySummary
		budget            *domain.Budget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.summarize(gctx, userID, &w)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.summarize(gctx, userID, &prev)
		return err
	})
	g.Go(func() error {
		var err error
		budget, err = s.budgets.GetBudget(gctx, userID, w.Key())
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	status := report.CompareBudget(budget, current, s.defaults)
	status.Month = w.Key()

	return &domain.DashboardResponse{
		Month:   w.Key(),
		Summary: current,
		Budget:  status,
		Trend:   s.trendRows(current, previous),
	}, nil
}
