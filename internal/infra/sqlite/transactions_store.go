package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
)

// ============================================================
// TransactionStore implementation
// ============================================================

func (s *Store) InsertTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.InsertTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	tx := &domain.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Date:          in.Date.UTC().Truncate(time.Millisecond),
		Amount:        in.Amount,
		Type:          in.Type,
		Category:      in.Category,
		PaymentMethod: in.PaymentMethod,
		Note:          in.Note,
		CreatedAt:     s.now().UTC().Truncate(time.Millisecond),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, date, amount, type, category, payment_method, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, formatTime(tx.Date), tx.Amount.String(), string(tx.Type),
		tx.Category, tx.PaymentMethod, tx.Note, formatTime(tx.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	s.logger.Debug("transaction inserted",
		zap.String("user_id", userID),
		zap.String("transaction_id", tx.ID),
	)
	return tx, nil
}

// ListTransactions returns the owner's transactions, newest first.
func (s *Store) ListTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "SQLite.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if f.From != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		where = append(where, "date < ?")
		args = append(args, formatTime(*f.To))
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, `note LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	query := `SELECT id, user_id, date, amount, type, category, payment_method, note, created_at
		FROM transactions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// DeleteTransaction removes one of the owner's transactions. A missing or
// foreign id is reported as not found.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.DeleteTransaction")
	defer span.End()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return nil
}

func scanTransaction(rows *sql.Rows) (domain.Transaction, error) {
	var (
		tx                    domain.Transaction
		date, amount, created string
		typ                   string
	)
	if err := rows.Scan(&tx.ID, &tx.UserID, &date, &amount, &typ, &tx.Category, &tx.PaymentMethod, &tx.Note, &created); err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	var err error
	if tx.Date, err = parseTime(date); err != nil {
		return tx, err
	}
	if tx.CreatedAt, err = parseTime(created); err != nil {
		return tx, err
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return tx, fmt.Errorf("parse stored amount %q: %w", amount, err)
	}
	tx.Type = domain.TransactionType(typ)
	return tx, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
