package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

// ============================================================
// Summary views
// ============================================================

func monthlySummaryHandler(summarySvc *service.SummaryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/transactions/summary")
		defer span.End()

		summary, err := summarySvc.MonthlySummary(ctx, UserIDFromContext(ctx), query(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, summary)
	}
}

func trendHandler(summarySvc *service.SummaryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/summary/trend")
		defer span.End()

		trend, err := summarySvc.Trend(ctx, UserIDFromContext(ctx), query(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, trend)
	}
}

func dashboardHandler(summarySvc *service.SummaryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		dash, err := summarySvc.Dashboard(ctx, UserIDFromContext(ctx), query(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, dash)
	}
}
