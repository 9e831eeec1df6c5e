package service

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/ingest"
	"github.com/boddenberg/fintrack-bfa-go/internal/port"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
)

var txTracer = otel.Tracer("service/transactions")

const (
	maxImportRows  = 5000
	maxNoteLength  = 500
	maxLabelLength = 64
)

// TransactionService validates and records income/expense transactions.
type TransactionService struct {
	store    port.TransactionStore
	cache    port.Cache[domain.MonthlySummary]
	events   port.EventPublisher
	defaults report.Defaults
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewTransactionService creates a TransactionService. cache must be the
// one SummaryService reads from so writes can invalidate it.
func NewTransactionService(store port.TransactionStore, cache port.Cache[domain.MonthlySummary], events port.EventPublisher, defaults report.Defaults, metrics *observability.Metrics, logger *zap.Logger) *TransactionService {
	return &TransactionService{
		store:    store,
		cache:    cache,
		events:   events,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Create — POST /v1/transactions
// ============================================================

func (s *TransactionService) Create(ctx context.Context, userID string, req *domain.CreateTransactionRequest) (*domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	in, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	tx, err := s.store.InsertTransaction(ctx, userID, in)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	s.cache.DeletePrefix(summaryUserPrefix(userID))
	s.metrics.AddTransactions("created", 1)

	evt := domain.NewEvent(domain.EventTransactionCreated, userID)
	evt.EntityID = tx.ID
	evt.Month = tx.Date.In(s.defaults.Loc()).Format("2006-01")
	notify(ctx, s.events, evt, s.metrics, s.logger)

	s.logger.Info("transaction created",
		zap.String("user_id", userID),
		zap.String("transaction_id", tx.ID),
		zap.String("type", string(tx.Type)),
	)
	return tx, nil
}

// validate is the write boundary: nothing past it re-checks fields.
func (s *TransactionService) validate(req *domain.CreateTransactionRequest) (domain.TransactionInput, error) {
	var in domain.TransactionInput

	if strings.TrimSpace(req.Date) == "" {
		return in, &domain.ErrValidation{Field: "date", Message: "is required"}
	}
	date, err := ingest.ParseDate(req.Date, s.defaults.Loc())
	if err != nil {
		return in, err
	}
	if req.Amount == nil {
		return in, &domain.ErrValidation{Field: "amount", Message: "is required"}
	}
	if !req.Type.Valid() {
		return in, &domain.ErrValidation{Field: "type", Message: "must be 'expense' or 'income'"}
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return in, &domain.ErrValidation{Field: "category", Message: "is required"}
	}
	if len(category) > maxLabelLength {
		return in, &domain.ErrValidation{Field: "category", Message: fmt.Sprintf("must be at most %d characters", maxLabelLength)}
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = s.defaults.DefaultPaymentMethod
	}
	if len(method) > maxLabelLength {
		return in, &domain.ErrValidation{Field: "paymentMethod", Message: fmt.Sprintf("must be at most %d characters", maxLabelLength)}
	}
	note := strings.TrimSpace(req.Note)
	if len(note) > maxNoteLength {
		return in, &domain.ErrValidation{Field: "note", Message: fmt.Sprintf("must be at most %d characters", maxNoteLength)}
	}

	amount, err := report.NormalizeSign(*req.Amount, req.Type)
	if err != nil {
		return in, err
	}

	return domain.TransactionInput{
		Date:          date,
		Amount:        amount,
		Type:          req.Type,
		Category:      category,
		PaymentMethod: method,
		Note:          note,
	}, nil
}

// ============================================================
// List — GET /v1/transactions
// ============================================================

// List returns the user's transactions, newest first. An empty month
// lists every transaction.
func (s *TransactionService) List(ctx context.Context, userID, month, category, search string) ([]domain.Transaction, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("month", month))

	filter := domain.TransactionFilter{
		Category: strings.TrimSpace(category),
		Search:   strings.TrimSpace(search),
	}
	if month != "" {
		w, err := report.ParseMonth(month, s.defaults.Loc())
		if err != nil {
			return nil, err
		}
		filter.From, filter.To = &w.Start, &w.End
	}

	txs, err := s.store.ListTransactions(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// ============================================================
// Delete — DELETE /v1/transactions/{id}
// ============================================================

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := txTracer.Start(ctx, "TransactionService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("transaction.id", id))

	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.cache.DeletePrefix(summaryUserPrefix(userID))
	s.metrics.AddTransactions("deleted", 1)

	evt := domain.NewEvent(domain.EventTransactionDeleted, userID)
	evt.EntityID = id
	notify(ctx, s.events, evt, s.metrics, s.logger)

	s.logger.Info("transaction deleted",
		zap.String("user_id", userID),
		zap.String("transaction_id", id),
	)
	return nil
}

// ============================================================
// Import — POST /v1/transactions/import
// ============================================================

// Import canonicalizes and stores heterogeneous records. Bad rows are
// reported and skipped; good rows are kept. If ctx ends midway the rows
// stored so far are returned together with the context error.
func (s *TransactionService) Import(ctx context.Context, userID string, records []map[string]any) (*domain.ImportResult, error) {
	ctx, span := txTracer.Start(ctx, "TransactionService.Import")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID), attribute.Int("rows", len(records)))

	if len(records) == 0 {
		return nil, &domain.ErrValidation{Field: "records", Message: "no records to import"}
	}
	if len(records) > maxImportRows {
		return nil, &domain.ErrValidation{Field: "records", Message: fmt.Sprintf("at most %d records per import", maxImportRows)}
	}

	result := &domain.ImportResult{Errors: []domain.ImportError{}}
	defer s.afterImport(ctx, userID, result)

	for i, raw := range records {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("import: interrupted",
				zap.String("user_id", userID),
				zap.Int("row", i+1),
				zap.Int("imported", result.Imported),
				zap.Error(err),
			)
			return result, err
		}
		row := i + 1

		in, err := ingest.Canonicalize(raw, s.defaults)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, domain.ImportError{Row: row, Message: err.Error()})
			continue
		}
		if _, err := s.store.InsertTransaction(ctx, userID, in); err != nil {
			s.logger.Error("import: insert failed",
				zap.String("user_id", userID),
				zap.Int("row", row),
				zap.Error(err),
			)
			result.Failed++
			result.Errors = append(result.Errors, domain.ImportError{Row: row, Message: "could not store row"})
			continue
		}
		result.Imported++
	}

	s.logger.Info("transactions imported",
		zap.String("user_id", userID),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// afterImport invalidates summaries and announces stored rows, including
// those of an interrupted import.
func (s *TransactionService) afterImport(ctx context.Context, userID string, result *domain.ImportResult) {
	if result.Imported == 0 {
		return
	}
	s.cache.DeletePrefix(summaryUserPrefix(userID))
	s.metrics.AddTransactions("imported", result.Imported)

	evt := domain.NewEvent(domain.EventTransactionsImported, userID)
	evt.Count = result.Imported
	notify(ctx, s.events, evt, s.metrics, s.logger)
}
