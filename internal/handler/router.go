package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router serves.
type Deps struct {
	Auth         *service.AuthService
	Transactions *service.TransactionService
	Summaries    *service.SummaryService
	Budgets      *service.BudgetService
	DB           Pinger
	Bulkhead     *resilience.Bulkhead
	Metrics      *observability.Metrics
	Logger       *zap.Logger

	AllowedOrigins []string
	CookieSecure   bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if d.Bulkhead == nil {
		d.Bulkhead = resilience.NewBulkhead(1)
	}
	cookies := cookieWriter{secure: d.CookieSecure, ttl: d.Auth.AccessTTL()}

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.AccessLog(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.DB, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/service", serviceMetricsHandler(d.Metrics))

		// =============================================
		// Auth
		// =============================================
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(d.Auth, logger))
			r.Post("/login", authLoginHandler(d.Auth, cookies, logger))
			r.Post("/refresh", authRefreshHandler(d.Auth, cookies, logger))
			r.Post("/password/forgot", authForgotPasswordHandler(d.Auth, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(d.Auth, logger))
				r.Post("/logout", authLogoutHandler(d.Auth, cookies, logger))
				r.Get("/me", authMeHandler(d.Auth, logger))
			})
		})

		// =============================================
		// Protected routes
		// =============================================
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(d.Auth, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(d.Transactions, logger))
			r.Post("/transactions", createTransactionHandler(d.Transactions, logger))
			r.Post("/transactions/import", importTransactionsHandler(d.Transactions, d.Bulkhead, logger))
			r.Get("/transactions/summary", monthlySummaryHandler(d.Summaries, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(d.Transactions, logger))

			// Summary views
			r.Get("/summary/trend", trendHandler(d.Summaries, logger))
			r.Get("/dashboard", dashboardHandler(d.Summaries, logger))

			// Budgets
			r.Get("/budgets", getBudgetHandler(d.Budgets, logger))
			r.Post("/budgets", saveBudgetHandler(d.Budgets, logger))
			r.Get("/budgets/overview", budgetOverviewHandler(d.Budgets, logger))
		})
	})

	return r
}

// ============================================================
// Health & Metrics
// ============================================================

func healthzHandler(db Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Format(time.RFC3339)
		services := []domain.ServiceHealth{
			{Name: "fintrack-api", Status: "healthy", LastChecked: now},
		}

		overall := "healthy"
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			start := time.Now()
			err := db.Ping(ctx)
			status := "healthy"
			if err != nil {
				status = "unhealthy"
				overall = "unhealthy"
				logger.Error("healthz: database ping failed", zap.Error(err))
			}
			services = append(services, domain.ServiceHealth{
				Name: "sqlite", Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		code := http.StatusOK
		if overall == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: overall, Services: services})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func serviceMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetServiceSnapshot())
	}
}
