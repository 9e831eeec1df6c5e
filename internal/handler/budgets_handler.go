package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

// ============================================================
// Budgets
// ============================================================

func getBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets")
		defer span.End()

		resp, err := budgetSvc.GetByMonth(ctx, UserIDFromContext(ctx), query(r, "month"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func saveBudgetHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/budgets")
		defer span.End()

		var req domain.SaveBudgetRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		budget, err := budgetSvc.Save(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, budget)
	}
}

func budgetOverviewHandler(budgetSvc *service.BudgetService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/overview")
		defer span.End()

		status, err := budgetSvc.Overview(ctx, UserIDFromContext(ctx), query(r, "month"), query(r, "scope"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}
