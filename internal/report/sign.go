package report

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// NormalizeSign forces the sign of amount from the declared type:
// expenses become -|amount| and income becomes +|amount|.
func NormalizeSign(amount decimal.Decimal, t domain.TransactionType) (decimal.Decimal, error) {
	switch t {
	case domain.TypeExpense:
		return amount.Abs().Neg(), nil
	case domain.TypeIncome:
		return amount.Abs(), nil
	default:
		return decimal.Zero, &domain.ErrValidation{Field: "type", Message: "must be 'expense' or 'income'"}
	}
}

// NormalizeFloat is NormalizeSign for float inputs. NaN and infinities are rejected.
func NormalizeFloat(amount float64, t domain.TransactionType) (decimal.Decimal, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be a finite number"}
	}
	return NormalizeSign(decimal.NewFromFloat(amount), t)
}
