package ingest_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/ingest"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
)

func TestCanonicalize_Aliases(t *testing.T) {
	d := report.DefaultDefaults()

	cases := []struct {
		name string
		raw  map[string]any
	}{
		{"canonical", map[string]any{
			"date": "2025-06-05", "amount": 12.5, "type": "expense",
			"category": "Food", "paymentMethod": "credit", "note": "lunch",
		}},
		{"capitalized", map[string]any{
			"Date": "6/5/25", "Amount": "-12.50", "Type": "Expense",
			"Category": "Food", "Payment": "credit", "description": "lunch",
		}},
		{"export", map[string]any{
			"transactionDate": "2025-06-05T00:00:00Z", "value": -12.5, "kind": "expense",
			"categoryName": "Food", "payment_method": "credit", "memo": "lunch",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := ingest.Canonicalize(tc.raw, d)
			require.NoError(t, err)
			assert.Equal(t, "2025-06-05", in.Date.Format("2006-01-02"))
			assert.Equal(t, "-12.5", in.Amount.String())
			assert.Equal(t, domain.TypeExpense, in.Type)
			assert.Equal(t, "Food", in.Category)
			assert.Equal(t, "credit", in.PaymentMethod)
			assert.Equal(t, "lunch", in.Note)
		})
	}
}

func TestCanonicalize_Defaults(t *testing.T) {
	in, err := ingest.Canonicalize(map[string]any{"date": "2025-06-10", "amount": "2000"}, report.DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, domain.TypeIncome, in.Type)
	assert.Equal(t, "2000", in.Amount.String())
	assert.Equal(t, "Other", in.Category)
	assert.Equal(t, "debit", in.PaymentMethod)

	in, err = ingest.Canonicalize(map[string]any{"date": "2025-06-10", "amount": -3}, report.DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, domain.TypeExpense, in.Type)
}

func TestCanonicalize_TypeWinsOverSign(t *testing.T) {
	in, err := ingest.Canonicalize(map[string]any{"date": "2025-06-10", "amount": "-40", "type": "income"}, report.DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, "40", in.Amount.String())
}

func TestCanonicalize_JSONNumber(t *testing.T) {
	in, err := ingest.Canonicalize(map[string]any{"date": "2025-06-10", "amount": json.Number("-0.10")}, report.DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, domain.TypeExpense, in.Type)
	assert.Equal(t, "-0.1", in.Amount.String())
}

func TestCanonicalize_Rejects(t *testing.T) {
	d := report.DefaultDefaults()
	cases := map[string]struct {
		raw   map[string]any
		field string
	}{
		"missing date":   {map[string]any{"amount": 1}, "date"},
		"bad date":       {map[string]any{"date": "yesterday", "amount": 1}, "date"},
		"missing amount": {map[string]any{"date": "2025-06-10"}, "amount"},
		"text amount":    {map[string]any{"date": "2025-06-10", "amount": "twelve"}, "amount"},
		"bool amount":    {map[string]any{"date": "2025-06-10", "amount": true}, "amount"},
		"bad type":       {map[string]any{"date": "2025-06-10", "amount": 1, "type": "transfer"}, "type"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ingest.Canonicalize(tc.raw, d)
			var ve *domain.ErrValidation
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestParseDate_Location(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	got, err := ingest.ParseDate("2025-06-01", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC), got.UTC())

	got, err = ingest.ParseDate("12/31/2024", nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), got)
}

func TestReadCSV(t *testing.T) {
	body := "\ufeffDate,Amount,Category,Payment,description\n" +
		"6/5/25,-12.50,Food,credit,McDonalds\n" +
		"6/6/25,\"1,200.00\",,bank,\n"

	rows, err := ingest.ReadCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "6/5/25", rows[0]["Date"])
	assert.NotContains(t, rows[1], "Category")

	in, err := ingest.Canonicalize(rows[1], report.DefaultDefaults())
	require.NoError(t, err)
	assert.Equal(t, "1200", in.Amount.String())
	assert.Equal(t, "Other", in.Category)
	assert.Equal(t, "bank", in.PaymentMethod)
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ingest.ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
