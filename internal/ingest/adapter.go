// Package ingest maps heterogeneous import records onto the canonical
// transaction input. Aliases are resolved here, once; nothing downstream
// looks at raw field names.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
)

// Field aliases, in lookup order.
var (
	dateKeys     = []string{"date", "Date", "transactionDate"}
	amountKeys   = []string{"amount", "Amount", "value"}
	categoryKeys = []string{"category", "Category", "categoryName"}
	paymentKeys  = []string{"paymentMethod", "payment_method", "source", "Payment"}
	noteKeys     = []string{"note", "description", "memo"}
	typeKeys     = []string{"type", "Type", "kind"}
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"1/2/2006",
	"1/2/06",
}

// Canonicalize turns one raw record into a sign-normalized TransactionInput.
func Canonicalize(raw map[string]any, d report.Defaults) (domain.TransactionInput, error) {
	var in domain.TransactionInput

	dateStr := lookupString(raw, dateKeys)
	if dateStr == "" {
		return in, &domain.ErrValidation{Field: "date", Message: "is required"}
	}
	date, err := ParseDate(dateStr, d.Loc())
	if err != nil {
		return in, err
	}

	amountRaw, ok := lookup(raw, amountKeys)
	if !ok {
		return in, &domain.ErrValidation{Field: "amount", Message: "is required"}
	}
	amount, err := toDecimal(amountRaw)
	if err != nil {
		return in, err
	}

	typ := domain.TransactionType(strings.ToLower(lookupString(raw, typeKeys)))
	if typ == "" {
		typ = domain.TypeIncome
		if amount.IsNegative() {
			typ = domain.TypeExpense
		}
	}
	signed, err := report.NormalizeSign(amount, typ)
	if err != nil {
		return in, err
	}

	in.Date = date
	in.Amount = signed
	in.Type = typ
	in.Category = lookupString(raw, categoryKeys)
	if in.Category == "" {
		in.Category = d.DefaultCategory
	}
	in.PaymentMethod = lookupString(raw, paymentKeys)
	if in.PaymentMethod == "" {
		in.PaymentMethod = d.DefaultPaymentMethod
	}
	in.Note = lookupString(raw, noteKeys)
	return in, nil
}

// ParseDate accepts YYYY-MM-DD, RFC3339 and M/D/YY(YY). Dates without a
// zone are taken in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &domain.ErrValidation{Field: "date", Message: fmt.Sprintf("unrecognized date %q", s)}
}

func lookup(raw map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v, true
		}
	}
	return nil, false
}

func lookupString(raw map[string]any, keys []string) string {
	v, ok := lookup(raw, keys)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func toDecimal(v any) (decimal.Decimal, error) {
	invalid := &domain.ErrValidation{Field: "amount", Message: fmt.Sprintf("not a number: %v", v)}
	switch x := v.(type) {
	case float64:
		return fromFloat(x)
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case decimal.Decimal:
		return x, nil
	case json.Number:
		dec, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, invalid
		}
		return dec, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), ",", "")
		s = strings.TrimPrefix(s, "$")
		if strings.HasPrefix(s, "-$") {
			s = "-" + s[2:]
		}
		dec, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, invalid
		}
		return dec, nil
	default:
		if f, err := strconv.ParseFloat(fmt.Sprint(x), 64); err == nil {
			return fromFloat(f)
		}
		return decimal.Zero, invalid
	}
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, &domain.ErrValidation{Field: "amount", Message: "must be a finite number"}
	}
	return decimal.NewFromFloat(f), nil
}
