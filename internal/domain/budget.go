package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget holds per-category spending caps and a savings target for one
// user and month. At most one exists per (UserID, Month).
type Budget struct {
	ID                  string                     `json:"id"`
	UserID              string                     `json:"userId"`
	Month               string                     `json:"month"`
	Limits              map[string]decimal.Decimal `json:"limits"`
	MonthlySavingTarget decimal.Decimal            `json:"monthlySavingTarget"`
	CreatedAt           time.Time                  `json:"createdAt"`
	UpdatedAt           time.Time                  `json:"updatedAt"`
}

// SaveBudgetRequest is the body for POST /v1/budgets.
type SaveBudgetRequest struct {
	Month               string                     `json:"month"`
	Limits              map[string]decimal.Decimal `json:"limits"`
	MonthlySavingTarget *decimal.Decimal           `json:"monthlySavingTarget"`
}

// BudgetMonthResponse is the {budget, summary} envelope of GET /v1/budgets.
// Budget is null when nothing was saved for the month.
type BudgetMonthResponse struct {
	Budget  *Budget        `json:"budget"`
	Summary MonthlySummary `json:"summary"`
}

// BudgetStatus is the budget-vs-actual view for one month.
type BudgetStatus struct {
	Month              string           `json:"month"`
	TopCategory        string           `json:"topCategory,omitempty"`
	Spent              decimal.Decimal  `json:"spent"`
	Limit              *decimal.Decimal `json:"limit"`
	Remaining          *decimal.Decimal `json:"remaining"`
	Message            string           `json:"message"`
	Net                decimal.Decimal  `json:"net"`
	SavingsGoal        decimal.Decimal  `json:"savingsGoal"`
	SavingsProgressPct int              `json:"savingsProgressPct"`
	Categories         []CategoryBudget `json:"categories,omitempty"`
}

// CategoryBudget tracks one configured limit against its actual spend.
type CategoryBudget struct {
	Category  string          `json:"category"`
	Limit     decimal.Decimal `json:"limit"`
	Spent     decimal.Decimal `json:"spent"`
	Remaining decimal.Decimal `json:"remaining"`
	Overspent bool            `json:"overspent"`
}
