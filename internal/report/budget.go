package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// Placeholder is the message shown when no limit applies.
const Placeholder = "—"

var hundred = decimal.NewFromInt(100)

// CompareBudget joins a budget (nil when none was saved) with the summary of
// the same month. The remaining amount is tracked for the top expense
// category only and is floored at zero.
func CompareBudget(b *domain.Budget, s domain.MonthlySummary, d Defaults) domain.BudgetStatus {
	status := domain.BudgetStatus{
		Message: Placeholder,
		Net:     s.Totals.Net,
	}
	if b != nil {
		status.Month = b.Month
	}

	if len(s.ByCategory) > 0 && s.ByCategory[0].Expense.IsPositive() {
		top := s.ByCategory[0]
		status.TopCategory = top.Category
		status.Spent = top.Expense

		if b != nil {
			if limit, ok := b.Limits[top.Category]; ok {
				remaining := decimal.Max(limit.Sub(top.Expense), decimal.Zero)
				status.Limit = &limit
				status.Remaining = &remaining
				status.Message = fmt.Sprintf("%s left in “%s” budget", remaining.StringFixed(2), top.Category)
			}
		}
	}

	goal := d.SavingsGoal
	if b != nil && b.MonthlySavingTarget.IsPositive() {
		goal = b.MonthlySavingTarget
	}
	status.SavingsGoal = goal
	status.SavingsProgressPct = savingsProgress(s.Totals.Net, goal)

	return status
}

func savingsProgress(net, goal decimal.Decimal) int {
	if !goal.IsPositive() {
		return 0
	}
	ratio := decimal.Max(net, decimal.Zero).Div(goal)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		ratio = decimal.NewFromInt(1)
	}
	return int(ratio.Mul(hundred).Round(0).IntPart())
}

// CompareAllLimits returns one row per configured limit, sorted by category.
func CompareAllLimits(b *domain.Budget, s domain.MonthlySummary) []domain.CategoryBudget {
	rows := []domain.CategoryBudget{}
	if b == nil {
		return rows
	}
	spent := ExpenseByCategory(s)
	for cat, limit := range b.Limits {
		sp := spent[cat]
		rows = append(rows, domain.CategoryBudget{
			Category:  cat,
			Limit:     limit,
			Spent:     sp,
			Remaining: decimal.Max(limit.Sub(sp), decimal.Zero),
			Overspent: sp.GreaterThan(limit),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Category < rows[j].Category })
	return rows
}
