package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// Band thresholds, in percent.
var (
	goodMax = decimal.NewFromInt(-5)
	okMax   = decimal.NewFromInt(10)
	warnMax = decimal.NewFromInt(40)
)

// ExpenseByCategory maps each category with non-zero spend to its expense.
func ExpenseByCategory(s domain.MonthlySummary) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(s.ByCategory))
	for _, c := range s.ByCategory {
		if c.Expense.IsPositive() {
			out[c.Category] = c.Expense
		}
	}
	return out
}

// CompareTrend compares the topN categories of current against previous.
func CompareTrend(current, previous map[string]decimal.Decimal, topN int) []domain.TrendRow {
	if topN <= 0 {
		topN = 4
	}

	cats := make([]string, 0, len(current))
	for c := range current {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if c := current[cats[i]].Cmp(current[cats[j]]); c != 0 {
			return c > 0
		}
		return cats[i] < cats[j]
	})
	if len(cats) > topN {
		cats = cats[:topN]
	}

	rows := make([]domain.TrendRow, 0, len(cats))
	for _, c := range cats {
		cur, prev := current[c], previous[c]
		delta := PercentChange(cur, prev)
		f, _ := delta.Float64()
		rows = append(rows, domain.TrendRow{
			Category: c,
			Total:    cur,
			Prev:     prev,
			Delta:    f,
			Band:     BandFor(delta),
			Fill:     fill(delta),
		})
	}
	return rows
}

// PercentChange returns (cur-prev)/prev*100, with +100 for growth from zero.
func PercentChange(cur, prev decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		if cur.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev).Mul(hundred)
}

// BandFor classifies a percent change. Lower is better.
func BandFor(delta decimal.Decimal) domain.Band {
	switch {
	case delta.LessThanOrEqual(goodMax):
		return domain.BandGood
	case delta.LessThanOrEqual(okMax):
		return domain.BandOK
	case delta.LessThanOrEqual(warnMax):
		return domain.BandWarn
	default:
		return domain.BandBad
	}
}

func fill(delta decimal.Decimal) float64 {
	f, _ := decimal.Min(delta.Abs(), hundred).Float64()
	return f
}
