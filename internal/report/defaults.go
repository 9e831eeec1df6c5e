// Package report is the monthly aggregation engine: it turns a user's signed
// transaction records into totals, category and daily breakdowns, budget
// comparisons and month-over-month trend rows.
//
// Everything here is pure computation over already-fetched records.
package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults carries the fallback values the engine applies at its boundary.
type Defaults struct {
	DefaultCategory      string
	DefaultPaymentMethod string
	SavingsGoal          decimal.Decimal
	TrendTopN            int
	Location             *time.Location
}

// DefaultDefaults returns the built-in fallbacks.
func DefaultDefaults() Defaults {
	return Defaults{
		DefaultCategory:      "Other",
		DefaultPaymentMethod: "debit",
		SavingsGoal:          decimal.NewFromInt(2000),
		TrendTopN:            4,
		Location:             time.UTC,
	}
}

// Loc returns the reporting time zone, UTC when unset.
func (d Defaults) Loc() *time.Location {
	if d.Location == nil {
		return time.UTC
	}
	return d.Location
}

func (d Defaults) category(c string) string {
	if c == "" {
		if d.DefaultCategory == "" {
			return "Other"
		}
		return d.DefaultCategory
	}
	return c
}
