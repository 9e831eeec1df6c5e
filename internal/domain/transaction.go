package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are rendered as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// TransactionType is the declared direction of a transaction.
type TransactionType string

const (
	TypeExpense TransactionType = "expense"
	TypeIncome  TransactionType = "income"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeExpense || t == TypeIncome
}

// Transaction is a persisted income/expense record. Amount is signed:
// negative for expenses, positive for income.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Type          TransactionType `json:"type"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"paymentMethod"`
	Note          string          `json:"note"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CreateTransactionRequest is the body for POST /v1/transactions.
// Amount is a pointer so a missing value can be told apart from zero.
type CreateTransactionRequest struct {
	Date          string           `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	Type          TransactionType  `json:"type"`
	Category      string           `json:"category"`
	PaymentMethod string           `json:"paymentMethod"`
	Note          string           `json:"note"`
}

// TransactionInput is the canonical, validated shape of a new transaction.
type TransactionInput struct {
	Date          time.Time
	Amount        decimal.Decimal
	Type          TransactionType
	Category      string
	PaymentMethod string
	Note          string
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	From     *time.Time // inclusive
	To       *time.Time // exclusive
	Category string
	Search   string // case-insensitive substring of note
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported int           `json:"imported"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes a rejected row.
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}
