package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
)

var budgetTracer = otel.Tracer("service/budgets")

// Overview scopes.
const (
	ScopeTop = "top"
	ScopeAll = "all"
)

// BudgetService manages monthly budgets and compares them with actuals.
type BudgetService struct {
	store     port.BudgetStore
	summaries *SummaryService
	events    port.EventPublisher
	defaults  report.Defaults
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewBudgetService creates a BudgetService.
func NewBudgetService(store port.BudgetStore, summaries *SummaryService, events port.EventPublisher, defaults report.Defaults, metrics *observability.Metrics, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		store:     store,
		summaries: summaries,
		events:    events,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// GetByMonth — GET /v1/budgets?month=
// ============================================================

// GetByMonth returns the saved budget (nil when absent) with the month summary.
func (s *BudgetService) GetByMonth(ctx context.Context, userID, month string) (*domain.BudgetMonthResponse, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.GetByMonth")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("month", month))

	if month == "" {
		return nil, &domain.ErrValidation{Field: "month", Message: "is required"}
	}
	w, err := report.ParseMonth(month, s.defaults.Loc())
	if err != nil {
		return nil, err
	}

	var (
		budget  *domain.Budget
		summary domain.MonthlySummary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		budget, err = s.store.GetBudget(gctx, userID, w.Key())
		if err != nil {
			return fmt.Errorf("get budget: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		summary, err = s.summaries.summarize(gctx, userID, &w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.BudgetMonthResponse{Budget: budget, Summary: summary}, nil
}

// ============================================================
// Save — POST /v1/budgets
// ============================================================

// Save creates the month's budget or overwrites its limits and target.
func (s *BudgetService) Save(ctx context.Context, userID string, req *domain.SaveBudgetRequest) (*domain.Budget, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Save")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("month", req.Month))

	if strings.TrimSpace(req.Month) == "" {
		return nil, &domain.ErrValidation{Field: "month", Message: "is required"}
	}
	w, err := report.ParseMonth(strings.TrimSpace(req.Month), s.defaults.Loc())
	if err != nil {
		return nil, err
	}

	limits := make(map[string]decimal.Decimal, len(req.Limits))
	for cat, limit := range req.Limits {
		name := strings.TrimSpace(cat)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "limits", Message: "category names must not be empty"}
		}
		if limit.IsNegative() {
			return nil, &domain.ErrValidation{Field: "limits", Message: fmt.Sprintf("limit for %q must not be negative", name)}
		}
		limits[name] = limit
	}

	target := decimal.Zero
	if req.MonthlySavingTarget != nil {
		if req.MonthlySavingTarget.IsNegative() {
			return nil, &domain.ErrValidation{Field: "monthlySavingTarget", Message: "must not be negative"}
		}
		target = *req.MonthlySavingTarget
	}

	saved, err := s.store.UpsertBudget(ctx, &domain.Budget{
		UserID:              userID,
		Month:               w.Key(),
		Limits:              limits,
		MonthlySavingTarget: target,
	})
	if err != nil {
		return nil, fmt.Errorf("save budget: %w", err)
	}

	evt := domain.NewEvent(domain.EventBudgetSaved, userID)
	evt.EntityID = saved.ID
	evt.Month = saved.Month
	notify(ctx, s.events, evt, s.metrics, s.logger)

	return saved, nil
}

// ============================================================
// Overview — GET /v1/budgets/overview?month=&scope=
// ============================================================

// Overview compares the budget with actual spending. Scope "top" tracks the
// highest-expense category only; "all" adds a row per configured limit.
func (s *BudgetService) Overview(ctx context.Context, userID, month, scope string) (*domain.BudgetStatus, error) {
	ctx, span := budgetTracer.Start(ctx, "BudgetService.Overview")
	defer span.End()

	if scope == "" {
		scope = ScopeTop
	}
	if scope != ScopeTop && scope != ScopeAll {
		return nil, &domain.ErrValidation{Field: "scope", Message: "must be 'top' or 'all'"}
	}

	w, err := s.summaries.resolveMonth(month)
	if err != nil {
		return nil, err
	}

	resp, err := s.GetByMonth(ctx, userID, w.Key())
	if err != nil {
		return nil, err
	}

	status := report.CompareBudget(resp.Budget, resp.Summary, s.defaults)
	status.Month = w.Key()
	if scope == ScopeAll {
		status.Categories = report.CompareAllLimits(resp.Budget, resp.Summary)
	}
	return &status, nil
}
