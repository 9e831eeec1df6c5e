package handler

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-bfa-go/internal/ingest"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

// ============================================================
// Transactions
// ============================================================

func listTransactionsHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions")
		defer span.End()

		txs, err := txSvc.List(ctx, UserIDFromContext(ctx), query(r, "month"), query(r, "category"), query(r, "search"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, txs)
	}
}

func createTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions")
		defer span.End()

		var req domain.CreateTransactionRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		tx, err := txSvc.Create(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, tx)
	}
}

func deleteTransactionHandler(txSvc *service.TransactionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/transactions/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if _, err := uuid.Parse(id); err != nil {
			writeError(w, http.StatusBadRequest, "invalid transaction id")
			return
		}

		if err := txSvc.Delete(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// importTransactionsHandler accepts a JSON array of records or a CSV file
// with a header row. Imports share a bulkhead so a burst cannot starve reads.
func importTransactionsHandler(txSvc *service.TransactionService, bulkhead *resilience.Bulkhead, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/import")
		defer span.End()

		if !bulkhead.TryAcquire() {
			logger.Warn("import: bulkhead full", zap.Int("in_use", bulkhead.InUse()))
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many imports in progress")
			return
		}
		defer bulkhead.Release()

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		var records []map[string]any
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "text/csv":
			var err error
			records, err = ingest.ReadCSV(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid CSV: "+err.Error())
				return
			}
		default:
			dec := json.NewDecoder(r.Body)
			dec.UseNumber()
			if err := dec.Decode(&records); err != nil {
				writeError(w, http.StatusBadRequest, "expected a JSON array of records")
				return
			}
		}

		res, err := txSvc.Import(ctx, UserIDFromContext(ctx), records)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
