package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/fintrack-bfa-go/internal/domain"
	"github.com/boddenberg/fintrack-bfa-go/internal/handler"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/cache"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/events"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/observability"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/fintrack-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/fintrack-bfa-go/internal/report"
	"github.com/boddenberg/fintrack-bfa-go/internal/service"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("database is locked") }

type testServer struct {
	t      *testing.T
	router http.Handler
	token  string
}

func newTestServer(t *testing.T, db handler.Pinger) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "fintrack.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	summaryCache := cache.New[domain.MonthlySummary](time.Minute)
	t.Cleanup(summaryCache.Stop)

	pub := events.NewNoopPublisher(logger)
	defaults := report.DefaultDefaults()

	authSvc := service.NewAuthService(store, "router-test-secret-0123456789", 15*time.Minute, time.Hour,
		metrics, logger, service.WithBcryptCost(bcrypt.MinCost))
	summarySvc := service.NewSummaryService(store, store, summaryCache, defaults, metrics, logger)
	summarySvc.SetClock(func() time.Time { return time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC) })

	if db == nil {
		db = store
	}
	router := handler.NewRouter(handler.Deps{
		Auth:         authSvc,
		Transactions: service.NewTransactionService(store, summaryCache, pub, defaults, metrics, logger),
		Summaries:    summarySvc,
		Budgets:      service.NewBudgetService(store, summarySvc, pub, defaults, metrics, logger),
		DB:           db,
		Bulkhead:     resilience.NewBulkhead(2),
		Metrics:      metrics,
		Logger:       logger,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login() *httptest.ResponseRecorder {
	s.t.Helper()
	if rec := s.do(http.MethodPost, "/v1/auth/register", map[string]string{
		"email": "demo@fintrack.com", "password": "demo1234", "name": "Demo",
	}); rec.Code != http.StatusCreated {
		s.t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec := s.do(http.MethodPost, "/v1/auth/login", map[string]string{
		"email": "demo@fintrack.com", "password": "demo1234",
	})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp domain.LoginResponse
	decode(s.t, rec, &resp)
	s.token = resp.AccessToken
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var health domain.HealthStatus
	decode(t, rec, &health)
	if health.Status != "healthy" || len(health.Services) != 2 {
		t.Errorf("unexpected health %+v", health)
	}
}

func TestHealthz_DatabaseDown(t *testing.T) {
	srv := newTestServer(t, failingPinger{})

	rec := srv.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestReadyzPingAndMetrics(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/readyz", "/ping", "/metrics", "/v1/metrics/service"} {
		if rec := srv.do(http.MethodGet, path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/v1/transactions", "/v1/dashboard", "/v1/budgets?month=2025-03", "/v1/auth/me"} {
		if rec := srv.do(http.MethodGet, path, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
	}
	if rec := srv.do(http.MethodGet, "/v1/transactions", nil, "Authorization", "Basic abc"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}
}

func TestLogin_SetsCookieUsableForAuth(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := srv.login()

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value != srv.token {
		t.Fatalf("expected HttpOnly token cookie, got %+v", cookie)
	}

	srv.token = ""
	me := srv.do(http.MethodGet, "/v1/auth/me", nil, "Cookie", "token="+cookie.Value)
	if me.Code != http.StatusOK {
		t.Fatalf("expected cookie auth to work, got %d", me.Code)
	}
	var user domain.UserView
	decode(t, me, &user)
	if user.Email != "demo@fintrack.com" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	rec := srv.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "demo@fintrack.com", "password": "wrong1234"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	rec := srv.do(http.MethodPost, "/v1/auth/register", map[string]string{"email": "DEMO@fintrack.com", "password": "demo1234"})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestTransactionsSummaryFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	for _, body := range []map[string]any{
		{"date": "2025-03-01", "amount": 2000, "type": "income", "category": "Salary", "paymentMethod": "bank"},
		{"date": "2025-03-02", "amount": 1200, "type": "expense", "category": "Rent", "paymentMethod": "bank"},
		{"date": "2025-03-05", "amount": 12.5, "type": "expense", "category": "Food", "note": "McDonalds"},
		{"date": "2025-02-10", "amount": 40, "type": "expense", "category": "Food"},
	} {
		if rec := srv.do(http.MethodPost, "/v1/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body)
		}
	}

	rec := srv.do(http.MethodGet, "/v1/transactions/summary?month=2025-03", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var summary struct {
		Totals struct {
			Income  float64 `json:"income"`
			Expense float64 `json:"expense"`
			Net     float64 `json:"net"`
		} `json:"totals"`
		ByCategory []struct {
			Category string `json:"category"`
		} `json:"byCategory"`
	}
	decode(t, rec, &summary)
	if summary.Totals.Income != 2000 || summary.Totals.Expense != 1212.5 || summary.Totals.Net != 787.5 {
		t.Errorf("unexpected totals %+v", summary.Totals)
	}
	if len(summary.ByCategory) != 3 || summary.ByCategory[0].Category != "Rent" {
		t.Errorf("unexpected categories %+v", summary.ByCategory)
	}

	list := srv.do(http.MethodGet, "/v1/transactions?month=2025-03&search=mcdon", nil)
	var txs []domain.Transaction
	decode(t, list, &txs)
	if len(txs) != 1 || txs[0].Category != "Food" {
		t.Errorf("unexpected search result %+v", txs)
	}

	if rec := srv.do(http.MethodGet, "/v1/transactions/summary?month=2025-3x", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad month, got %d", rec.Code)
	}

	trend := srv.do(http.MethodGet, "/v1/summary/trend", nil)
	var tr domain.TrendResponse
	decode(t, trend, &tr)
	if tr.Month != "2025-03" || tr.PreviousMonth != "2025-02" || len(tr.Rows) != 2 {
		t.Errorf("unexpected trend %+v", tr)
	}

	if rec := srv.do(http.MethodGet, "/v1/dashboard?month=2025-03", nil); rec.Code != http.StatusOK {
		t.Errorf("dashboard: expected 200, got %d", rec.Code)
	}
}

func TestCreateTransaction_Invalid(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	cases := map[string]string{
		"malformed":    `{"date":`,
		"string total": `{"date":"2025-03-01","amount":"abc","type":"expense","category":"Food"}`,
		"no type":      `{"date":"2025-03-01","amount":5,"category":"Food"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := srv.do(http.MethodPost, "/v1/transactions", body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	rec := srv.do(http.MethodPost, "/v1/transactions", map[string]any{
		"date": "2025-03-05", "amount": 10, "type": "expense", "category": "Food",
	})
	var tx domain.Transaction
	decode(t, rec, &tx)

	if rec := srv.do(http.MethodDelete, "/v1/transactions/not-a-uuid", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", rec.Code)
	}
	if rec := srv.do(http.MethodDelete, "/v1/transactions/"+tx.ID, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := srv.do(http.MethodDelete, "/v1/transactions/"+tx.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestImport_JSONAndCSV(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	rec := srv.do(http.MethodPost, "/v1/transactions/import", []map[string]any{
		{"date": "2025-03-01", "amount": -12.5, "category": "Food"},
		{"date": "bad", "amount": 1},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("json import: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var res domain.ImportResult
	decode(t, rec, &res)
	if res.Imported != 1 || res.Failed != 1 || res.Errors[0].Row != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	csv := "Date,Amount,Category,Payment\n3/2/2025,-55,Transport,credit\n3/3/2025,2000,Salary,bank\n"
	rec = srv.do(http.MethodPost, "/v1/transactions/import", csv, "Content-Type", "text/csv")
	if rec.Code != http.StatusOK {
		t.Fatalf("csv import: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	decode(t, rec, &res)
	if res.Imported != 2 || res.Failed != 0 {
		t.Errorf("unexpected csv result %+v", res)
	}

	list := srv.do(http.MethodGet, "/v1/transactions?month=2025-03", nil)
	var txs []domain.Transaction
	decode(t, list, &txs)
	if len(txs) != 3 {
		t.Errorf("expected 3 imported transactions, got %d", len(txs))
	}

	if rec := srv.do(http.MethodPost, "/v1/transactions/import", `{"not":"an array"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-array body, got %d", rec.Code)
	}
}

func TestBudgetsFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	srv.do(http.MethodPost, "/v1/transactions", map[string]any{
		"date": "2025-03-02", "amount": 1200, "type": "expense", "category": "Rent",
	})

	if rec := srv.do(http.MethodGet, "/v1/budgets", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without month, got %d", rec.Code)
	}

	rec := srv.do(http.MethodGet, "/v1/budgets?month=2025-03", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"budget":null`) {
		t.Errorf("expected null budget, got %d: %s", rec.Code, rec.Body)
	}

	rec = srv.do(http.MethodPost, "/v1/budgets", map[string]any{
		"month": "2025-03", "limits": map[string]any{"Rent": 1500}, "monthlySavingTarget": 500,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("save budget: expected 200, got %d: %s", rec.Code, rec.Body)
	}

	rec = srv.do(http.MethodGet, "/v1/budgets/overview?month=2025-03&scope=all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("overview: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var status struct {
		TopCategory string  `json:"topCategory"`
		Remaining   float64 `json:"remaining"`
		Message     string  `json:"message"`
		Categories  []struct {
			Category string `json:"category"`
		} `json:"categories"`
	}
	decode(t, rec, &status)
	if status.TopCategory != "Rent" || status.Remaining != 300 || len(status.Categories) != 1 {
		t.Errorf("unexpected overview %+v", status)
	}
	if status.Message != "300.00 left in “Rent” budget" {
		t.Errorf("unexpected message %q", status.Message)
	}

	if rec := srv.do(http.MethodPost, "/v1/budgets", map[string]any{"month": "2025-03", "limits": map[string]any{"Rent": -1}}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative limit, got %d", rec.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.login()

	rec := srv.do(http.MethodPost, "/v1/auth/logout", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" && c.MaxAge >= 0 {
			t.Errorf("expected cookie to be cleared, got %+v", c)
		}
	}
}
