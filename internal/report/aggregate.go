package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

const dayLayout = "2006-01-02"

type bucket struct {
	expense decimal.Decimal
	income  decimal.Decimal
}

func (b *bucket) add(amount decimal.Decimal) {
	switch amount.Sign() {
	case 1:
		b.income = b.income.Add(amount)
	case -1:
		b.expense = b.expense.Add(amount.Neg())
	}
}

// Aggregate computes the monthly summary of txs. A nil window means every
// transaction is in scope. Amounts must already be sign-normalized.
func Aggregate(txs []domain.Transaction, window *MonthWindow, d Defaults) domain.MonthlySummary {
	loc := d.Loc()

	var total bucket
	byCategory := make(map[string]*bucket)
	byDay := make(map[string]*bucket)

	for _, tx := range txs {
		if window != nil && !window.Contains(tx.Date) {
			continue
		}
		total.add(tx.Amount)

		cat := d.category(tx.Category)
		cb, ok := byCategory[cat]
		if !ok {
			cb = &bucket{}
			byCategory[cat] = cb
		}
		cb.add(tx.Amount)

		day := tx.Date.In(loc).Format(dayLayout)
		db, ok := byDay[day]
		if !ok {
			db = &bucket{}
			byDay[day] = db
		}
		db.add(tx.Amount)
	}

	summary := domain.MonthlySummary{
		Totals: domain.Totals{
			Income:  total.income,
			Expense: total.expense,
			Net:     total.income.Sub(total.expense),
		},
		ByCategory: make([]domain.CategoryTotal, 0, len(byCategory)),
		ByDay:      make([]domain.DayTotal, 0, len(byDay)),
	}

	for cat, b := range byCategory {
		summary.ByCategory = append(summary.ByCategory, domain.CategoryTotal{
			Category: cat,
			Expense:  b.expense,
			Income:   b.income,
		})
	}
	sort.Slice(summary.ByCategory, func(i, j int) bool {
		a, b := summary.ByCategory[i], summary.ByCategory[j]
		if c := a.Expense.Cmp(b.Expense); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})

	for day, b := range byDay {
		summary.ByDay = append(summary.ByDay, domain.DayTotal{
			Day:     day,
			Expense: b.expense,
			Income:  b.income,
		})
	}
	sort.Slice(summary.ByDay, func(i, j int) bool {
		return summary.ByDay[i].Day < summary.ByDay[j].Day
	})

	return summary
}
