package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sorpes/internal/log"
	"sorpes/internal/middleware/ratelimit"
	"sorpes/internal/services"
	"sorpes/internal/state"
)

type memStore struct {
	mu    sync.Mutex
	saves int
}

func (m *memStore) Load(context.Context) (*state.Document, string) { return nil, "" }

func (m *memStore) Save(context.Context, *state.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	return nil
}

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	tr := services.NewTracker(&memStore{},
		services.WithLogger(log.Discard()),
		services.WithClock(func() time.Time { return testNow }))
	tr.Start(context.Background())
	srv := NewServer(":0", tr, log.Discard(), opts...)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, want, rr.Body.String())
	}
}

func expectCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	if got := decode(t, rr)["code"]; got != code {
		t.Fatalf("error code = %v, want %q", got, code)
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, do(t, srv, http.MethodGet, "/healthz", ""), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodGet, "/readyz", ""), http.StatusOK)

	down := newTestServer(t, WithReadiness(func(context.Context) error { return errors.New("db gone") }))
	expectCode(t, do(t, down, http.MethodGet, "/readyz", ""), http.StatusServiceUnavailable, "not_ready")
}

func TestResponsesCarryTraceAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/api/state", "")
	expectStatus(t, rr, http.StatusOK)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if got := decode(t, rr)["activeMonth"]; got != "2026-03" {
		t.Errorf("activeMonth = %v, want 2026-03", got)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/months/active/expenses/fixed",
		`{"dueDate":"2026-03-10","description":"Aluguel","category":"Casa","amount":"R$ 1.500,00"}`)
	expectStatus(t, rr, http.StatusCreated)
	data := decode(t, rr)["data"].(map[string]any)
	if n := len(data["fixedExpenses"].([]any)); n != 1 {
		t.Fatalf("fixed expenses = %d, want 1", n)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2026-03/expenses/fixed/0/toggle-paid", "")
	expectStatus(t, rr, http.StatusOK)
	if decode(t, rr)["paid"] != true {
		t.Fatal("expected expense to be paid after toggle")
	}

	rr = do(t, srv, http.MethodGet, "/api/months/2026-03/totals", "")
	expectStatus(t, rr, http.StatusOK)
	totals := decode(t, rr)
	if totals["totalFixed"] != 1500.0 || totals["currentSpend"] != 1500.0 {
		t.Fatalf("unexpected totals %v", totals)
	}

	rr = do(t, srv, http.MethodPut, "/api/months/2026-03/expenses/fixed/0",
		`{"dueDate":"2026-03-10","description":"Aluguel","amount":1400.5}`)
	expectStatus(t, rr, http.StatusOK)

	expectStatus(t, do(t, srv, http.MethodPut, "/api/months/2026-03/expenses/fixed/0/paid", `{"paid":false}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/months/2026-03/expenses/fixed/0", ""), http.StatusOK)
	expectCode(t, do(t, srv, http.MethodDelete, "/api/months/2026-03/expenses/fixed/0", ""), http.StatusNotFound, "not_found")
}

func TestIncome(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/months/active/income/income",
		`{"date":"2026-03-05","category":"Salário","amount":"5000"}`)
	expectStatus(t, rr, http.StatusCreated)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/months/active/income/future",
		`{"date":"2026-03-25","category":"Bônus","amount":800}`), http.StatusCreated)

	totals := decode(t, do(t, srv, http.MethodGet, "/api/months/active/totals", ""))
	if totals["totalIncome"] != 5000.0 || totals["totalFutureIncome"] != 800.0 {
		t.Fatalf("unexpected totals %v", totals)
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/months/active/income/future/0", ""), http.StatusOK)
}

func TestRequestErrors(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name           string
		method, target string
		body           string
		status         int
		code           string
	}{
		{"unknown kind", http.MethodPost, "/api/months/active/expenses/bogus", `{"dueDate":"2026-03-01","description":"x","amount":1}`, http.StatusUnprocessableEntity, "validation"},
		{"non-numeric amount", http.MethodPost, "/api/months/active/expenses/fixed", `{"dueDate":"2026-03-01","amount":"abc"}`, http.StatusUnprocessableEntity, "validation"},
		{"boolean amount", http.MethodPost, "/api/months/active/expenses/fixed", `{"dueDate":"2026-03-01","amount":true}`, http.StatusUnprocessableEntity, "validation"},
		{"missing amount", http.MethodPost, "/api/months/active/expenses/fixed", `{"dueDate":"2026-03-01"}`, http.StatusUnprocessableEntity, "validation"},
		{"non-numeric income", http.MethodPost, "/api/months/active/income/income", `{"date":"2026-03-01","category":"Salário","amount":"n/a"}`, http.StatusUnprocessableEntity, "validation"},
		{"income without category", http.MethodPost, "/api/months/active/income/income", `{"date":"2026-03-01","amount":10}`, http.StatusUnprocessableEntity, "validation"},
		{"unknown owner", http.MethodPost, "/api/months/active/expenses/fixed", `{"dueDate":"2026-03-01","amount":1,"owner":"ghost"}`, http.StatusUnprocessableEntity, "validation"},
		{"bad date", http.MethodPost, "/api/months/active/expenses/variable", `{"dueDate":"14/03/2026","description":"x","amount":1}`, http.StatusUnprocessableEntity, "validation"},
		{"malformed json", http.MethodPost, "/api/months/active/expenses/variable", `{"dueDate":`, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, "/api/owners", `{"name":"Ana","age":3}`, http.StatusBadRequest, "bad_request"},
		{"empty body", http.MethodPost, "/api/owners", "", http.StatusBadRequest, "bad_request"},
		{"bad index", http.MethodDelete, "/api/months/active/expenses/fixed/-1", "", http.StatusBadRequest, "bad_request"},
		{"missing month", http.MethodGet, "/api/months/2025-01", "", http.StatusNotFound, "not_found"},
		{"invalid month key", http.MethodGet, "/api/months/2026-13", "", http.StatusUnprocessableEntity, "validation"},
		{"missing block", http.MethodGet, "/api/months/active/blocks/nope/limit", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectCode(t, do(t, srv, tt.method, tt.target, tt.body), tt.status, tt.code)
		})
	}
}

func TestRejectedAmountsStoreNothing(t *testing.T) {
	srv := newTestServer(t)
	for _, body := range []string{
		`{"dueDate":"2026-03-10","category":"Aluguel","amount":"abc"}`,
		`{"dueDate":"2026-03-10","category":"Aluguel","amount":true}`,
		`{"dueDate":"2026-03-10","category":"Aluguel"}`,
	} {
		expectCode(t, do(t, srv, http.MethodPost, "/api/months/active/expenses/fixed", body), http.StatusUnprocessableEntity, "validation")
	}
	md := decode(t, do(t, srv, http.MethodGet, "/api/months/active", ""))["data"].(map[string]any)
	if n := len(md["fixedExpenses"].([]any)); n != 0 {
		t.Fatalf("fixed expenses = %d after rejected requests, want 0", n)
	}
}

func TestExpensesKeptInDueDateOrder(t *testing.T) {
	srv := newTestServer(t)
	add := func(body string) int {
		t.Helper()
		rr := do(t, srv, http.MethodPost, "/api/months/active/expenses/fixed", body)
		expectStatus(t, rr, http.StatusCreated)
		return int(decode(t, rr)["index"].(float64))
	}

	if i := add(`{"dueDate":"2026-03-20","category":"Luz","amount":90}`); i != 0 {
		t.Fatalf("first index = %d, want 0", i)
	}
	if i := add(`{"dueDate":"2026-03-05","category":"Aluguel","amount":1500}`); i != 0 {
		t.Fatalf("earlier due date index = %d, want 0", i)
	}
	if i := add(`{"dueDate":"2026-03-10","category":"Internet","amount":120}`); i != 1 {
		t.Fatalf("middle due date index = %d, want 1", i)
	}

	rr := do(t, srv, http.MethodPut, "/api/months/active/expenses/fixed/0",
		`{"dueDate":"2026-03-25","category":"Aluguel","amount":1500}`)
	expectStatus(t, rr, http.StatusOK)
	body := decode(t, rr)
	if body["index"] != 2.0 {
		t.Fatalf("moved index = %v, want 2", body["index"])
	}
	var dates []string
	for _, e := range body["data"].(map[string]any)["fixedExpenses"].([]any) {
		dates = append(dates, e.(map[string]any)["dueDate"].(string))
	}
	if strings.Join(dates, ",") != "2026-03-10,2026-03-20,2026-03-25" {
		t.Fatalf("order = %v", dates)
	}
}

func TestMonthLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/months/suggestion", "")
	expectStatus(t, rr, http.StatusOK)
	if got := decode(t, rr)["month"]; got != "2026-04" {
		t.Fatalf("suggested month = %v, want 2026-04", got)
	}

	rr = do(t, srv, http.MethodPost, "/api/months", `{"month":"2026-04","copyFrom":"2026-03"}`)
	expectStatus(t, rr, http.StatusCreated)
	if loc := rr.Header().Get("Location"); loc != "/api/months/2026-04" {
		t.Errorf("Location = %q", loc)
	}
	expectCode(t, do(t, srv, http.MethodPost, "/api/months", `{"month":"2026-04"}`), http.StatusConflict, "duplicate_month")

	state := decode(t, do(t, srv, http.MethodGet, "/api/state", ""))
	if state["activeMonth"] != "2026-04" {
		t.Fatalf("activeMonth = %v after create", state["activeMonth"])
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/months/2026-04/expenses/variable",
		`{"dueDate":"2026-04-02","description":"Gás","amount":90}`), http.StatusCreated)
	expectCode(t, do(t, srv, http.MethodDelete, "/api/months/2026-04", ""), http.StatusConflict, "confirmation_required")
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/months/2026-04?confirm=true", ""), http.StatusOK)

	rr = do(t, srv, http.MethodGet, "/api/months?year=2026", "")
	expectStatus(t, rr, http.StatusOK)
	if months := decode(t, rr)["months"].([]any); len(months) != 1 || months[0] != "2026-03" {
		t.Fatalf("months = %v", months)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/2026-03/activate", "")
	expectStatus(t, rr, http.StatusOK)
	if decode(t, rr)["activeMonth"] != "2026-03" {
		t.Fatal("switch did not report the active month")
	}
	expectCode(t, do(t, srv, http.MethodPost, "/api/months/2030-01/activate", ""), http.StatusNotFound, "not_found")
}

func TestBlocksAndLimits(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/months/active/blocks", `{"title":"Mercado","limit":500}`)
	expectStatus(t, rr, http.StatusCreated)
	market := decode(t, rr)["id"].(string)

	rr = do(t, srv, http.MethodPost, "/api/months/active/blocks", `{"title":"Lazer","limit":"0"}`)
	expectStatus(t, rr, http.StatusCreated)
	leisure := decode(t, rr)["id"].(string)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/months/active/blocks/"+market+"/items",
		`{"date":"2026-03-02","amount":"620,50","description":"feira"}`), http.StatusCreated)

	limit := decode(t, do(t, srv, http.MethodGet, "/api/months/active/blocks/"+market+"/limit", ""))
	if limit["exceeded"] != true || limit["spent"] != 620.5 {
		t.Fatalf("unexpected limit status %v", limit)
	}

	rr = do(t, srv, http.MethodPost, "/api/months/active/blocks/"+leisure+"/move", `{"before":"`+market+`"}`)
	expectStatus(t, rr, http.StatusOK)
	blocks := decode(t, rr)["data"].(map[string]any)["monthlyBlocks"].([]any)
	if first := blocks[0].(map[string]any)["id"]; first != leisure {
		t.Fatalf("first block = %v, want %s", first, leisure)
	}

	expectStatus(t, do(t, srv, http.MethodPut, "/api/months/active/blocks/"+market+"/items/0",
		`{"date":"2026-03-02","amount":100}`), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/months/active/blocks/"+market+"/items/0", ""), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodPut, "/api/months/active/blocks/"+market, `{"title":"Supermercado","limit":450}`), http.StatusOK)
	expectCode(t, do(t, srv, http.MethodPut, "/api/months/active/blocks/"+market, `{"title":" ","limit":450}`), http.StatusUnprocessableEntity, "validation")
	expectStatus(t, do(t, srv, http.MethodDelete, "/api/months/active/blocks/"+market, ""), http.StatusOK)
}

func TestOwnersAndSplit(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/owners", `{"name":"Ana"}`)
	expectStatus(t, rr, http.StatusCreated)
	ana := decode(t, rr)["id"].(string)

	expectStatus(t, do(t, srv, http.MethodPost, "/api/months/active/expenses/fixed",
		`{"dueDate":"2026-03-10","description":"Internet","amount":120,"owner":"`+ana+`"}`), http.StatusCreated)

	rr = do(t, srv, http.MethodGet, "/api/months/active/owner-split", "")
	expectStatus(t, rr, http.StatusOK)
	if owners, _ := decode(t, rr)["owners"].([]any); len(owners) == 0 {
		t.Fatal("owner split is empty")
	}

	expectStatus(t, do(t, srv, http.MethodDelete, "/api/owners/"+ana, ""), http.StatusNoContent)
	expectCode(t, do(t, srv, http.MethodDelete, "/api/owners/"+ana, ""), http.StatusNotFound, "not_found")
}

func TestBackupExportResetImport(t *testing.T) {
	srv := newTestServer(t)
	expectStatus(t, do(t, srv, http.MethodPost, "/api/months/active/expenses/fixed",
		`{"dueDate":"2026-03-10","description":"Aluguel","amount":1500}`), http.StatusCreated)

	rr := do(t, srv, http.MethodGet, "/api/backup", "")
	expectStatus(t, rr, http.StatusOK)
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "sorpes-backup-2026-03-14-0900.json") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	exported := rr.Body.String()

	expectCode(t, do(t, srv, http.MethodPost, "/api/reset", ""), http.StatusBadRequest, "bad_request")
	expectStatus(t, do(t, srv, http.MethodPost, "/api/reset?confirm=true", ""), http.StatusOK)
	md := decode(t, do(t, srv, http.MethodGet, "/api/months/active", ""))["data"].(map[string]any)
	if len(md["fixedExpenses"].([]any)) != 0 {
		t.Fatal("reset kept expenses")
	}

	expectStatus(t, do(t, srv, http.MethodPost, "/api/backup", exported), http.StatusOK)
	md = decode(t, do(t, srv, http.MethodGet, "/api/months/2026-03", ""))["data"].(map[string]any)
	if len(md["fixedExpenses"].([]any)) != 1 {
		t.Fatal("import did not restore expenses")
	}

	expectCode(t, do(t, srv, http.MethodPost, "/api/backup", "not json"), http.StatusBadRequest, "invalid_backup")
	expectStatus(t, do(t, srv, http.MethodGet, "/api/backup/status", ""), http.StatusOK)
	expectStatus(t, do(t, srv, http.MethodGet, "/api/statistics", ""), http.StatusOK)
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, WithRateLimit(ratelimit.Config{
		RequestsPerMinute: 1,
		Methods:           []string{http.MethodPost},
	}))

	expectStatus(t, do(t, srv, http.MethodPost, "/api/owners", `{"name":"Ana"}`), http.StatusCreated)
	rr := do(t, srv, http.MethodPost, "/api/owners", `{"name":"Bia"}`)
	expectCode(t, rr, http.StatusTooManyRequests, "rate_limited")
	if rr.Header().Get("Retry-After") != "60" {
		t.Error("missing Retry-After")
	}
	expectStatus(t, do(t, srv, http.MethodGet, "/api/state", ""), http.StatusOK)
}
