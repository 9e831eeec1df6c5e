package domain

import "github.com/shopspring/decimal"

// ============================================================
// Monthly reporting
// ============================================================

// MonthlySummary is a derived, non-persisted view over one user's
// transactions in a month window (or over all of them).
type MonthlySummary struct {
	Totals     Totals          `json:"totals"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByDay      []DayTotal      `json:"byDay"`
}

// Totals are month-level sums. Expense is an absolute value.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// CategoryTotal is the income/expense split of one category.
type CategoryTotal struct {
	Category string          `json:"category"`
	Expense  decimal.Decimal `json:"expense"`
	Income   decimal.Decimal `json:"income"`
}

// DayTotal is the income/expense split of one calendar day (YYYY-MM-DD).
type DayTotal struct {
	Day     string          `json:"day"`
	Expense decimal.Decimal `json:"expense"`
	Income  decimal.Decimal `json:"income"`
}

// Band qualifies a month-over-month spending change. Lower is better.
type Band string

const (
	BandGood Band = "good"
	BandOK   Band = "ok"
	BandWarn Band = "warn"
	BandBad  Band = "bad"
)

// TrendRow compares one category's spend to the previous month.
type TrendRow struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Prev     decimal.Decimal `json:"prev"`
	Delta    float64         `json:"delta"` // percent change
	Band     Band            `json:"band"`
	Fill     float64         `json:"fill"` // min(100, |delta|)
}

// TrendResponse is the {rows} envelope of GET /v1/summary/trend.
type TrendResponse struct {
	Month         string     `json:"month"`
	PreviousMonth string     `json:"previousMonth"`
	Rows          []TrendRow `json:"rows"`
}

// DashboardResponse bundles everything the dashboard renders for a month.
type DashboardResponse struct {
	Month   string         `json:"month"`
	Summary MonthlySummary `json:"summary"`
	Budget  BudgetStatus   `json:"budget"`
	Trend   []TrendRow     `json:"trend"`
}
