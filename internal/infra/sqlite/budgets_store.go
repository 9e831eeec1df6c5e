package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// ============================================================
// BudgetStore implementation
// ============================================================

// GetBudget returns nil, nil when no budget was saved for the month.
func (s *Store) GetBudget(ctx context.Context, userID, month string) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "SQLite.GetBudget")
	defer span.End()

	var (
		b                                domain.Budget
		limits, target, created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, month, limits, monthly_saving_target, created_at, updated_at
		 FROM budgets WHERE user_id = ? AND month = ?`, userID, month).
		Scan(&b.ID, &b.UserID, &b.Month, &limits, &target, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}

	if err := json.Unmarshal([]byte(limits), &b.Limits); err != nil {
		return nil, fmt.Errorf("decode budget limits: %w", err)
	}
	if b.Limits == nil {
		b.Limits = map[string]decimal.Decimal{}
	}
	if b.MonthlySavingTarget, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse saving target %q: %w", target, err)
	}
	if b.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpsertBudget creates the (user, month) budget or overwrites its limits
// and target.
func (s *Store) UpsertBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "SQLite.UpsertBudget")
	defer span.End()

	limits := b.Limits
	if limits == nil {
		limits = map[string]decimal.Decimal{}
	}
	encoded, err := json.Marshal(limits)
	if err != nil {
		return nil, fmt.Errorf("encode budget limits: %w", err)
	}

	now := formatTime(s.now().UTC().Truncate(time.Millisecond))
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, month, limits, monthly_saving_target, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, month) DO UPDATE SET
		     limits = excluded.limits,
		     monthly_saving_target = excluded.monthly_saving_target,
		     updated_at = excluded.updated_at`,
		uuid.NewString(), b.UserID, b.Month, string(encoded), b.MonthlySavingTarget.String(), now, now)
	if err != nil {
		return nil, fmt.Errorf("upsert budget: %w", err)
	}

	s.logger.Info("budget saved",
		zap.String("user_id", b.UserID),
		zap.String("month", b.Month),
		zap.Int("limits", len(limits)),
	)
	return s.GetBudget(ctx, b.UserID, b.Month)
}
