package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"tally/internal/bus"
	"tally/internal/ledger"
	"tally/internal/limits"
	"tally/internal/pin"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/pkg/metrics"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tally.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	events := bus.New()
	rec := ledger.NewReconciler(repo, nil)
	svc := services.NewLedgerService(repo, rec, events, nil, nil, nil)
	pins := pin.NewService(repo, repo, nil)
	reg := limits.NewRegistry()
	eval := limits.NewEvaluator(rec, nil)

	return NewServer(":0", svc, pins, eval, reg, events, metrics.NewCollector(nil), nil)
}

func doJSON(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMissingUserHeaderRejected(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.Handler, http.MethodGet, "/api/accounts", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAccountAndTransactionFlow(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/accounts", "u1", map[string]any{
		"name": "Cash", "type": "cash", "balance_cents": 0,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, body %s", rr.Code, rr.Body.String())
	}
	var acc accountJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &acc); err != nil {
		t.Fatalf("decode account: %v", err)
	}

	rr = doJSON(t, s.Handler, http.MethodPost, "/api/transactions", "u1", map[string]any{
		"account_id": acc.ID, "description": "Salary", "category": "Income", "amount": "500.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s.Handler, http.MethodGet, "/api/totals", "u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("totals status = %d", rr.Code)
	}
	var totals totalsJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &totals); err != nil {
		t.Fatalf("decode totals: %v", err)
	}
	if totals.TotalIncomeCents != 50000 || totals.TotalExpensesCents != 0 {
		t.Errorf("totals = %+v, want income 50000 expenses 0", totals)
	}

	rr = doJSON(t, s.Handler, http.MethodGet, fmt.Sprintf("/api/accounts/%d", acc.ID), "u1", nil)
	var got accountJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if got.BalanceCents != 50000 {
		t.Errorf("balance = %d, want 50000", got.BalanceCents)
	}
}

func TestCreateTransactionValidationError(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/transactions", "u1", map[string]any{
		"account_id": 1, "description": "", "category": "Food", "amount_cents": -100,
	})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body %s", rr.Code, rr.Body.String())
	}
}

func TestDeleteTransactionMissReports200(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodDelete, "/api/transactions/42", "u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["removed"] {
		t.Error("removed = true, want false for absent transaction")
	}
}

func TestPinLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/pin", "u1", map[string]string{"pin": "123456"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("weak pin status = %d, want 400", rr.Code)
	}

	rr = doJSON(t, s.Handler, http.MethodPost, "/api/pin", "u1", map[string]string{"pin": "482917"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("setup status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "u1", map[string]string{"pin": "482917"})
	var verify map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &verify); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !verify["valid"] {
		t.Error("verify valid = false, want true")
	}

	rr = doJSON(t, s.Handler, http.MethodDelete, "/api/pin", "u1", map[string]string{"pin": "000000"})
	if rr.Code != http.StatusForbidden {
		t.Errorf("remove with wrong pin status = %d, want 403", rr.Code)
	}

	rr = doJSON(t, s.Handler, http.MethodDelete, "/api/pin", "u1", map[string]string{"pin": "482917"})
	if rr.Code != http.StatusOK {
		t.Errorf("remove status = %d, want 200", rr.Code)
	}
}

func TestBackgroundSetsStartupLock(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s.Handler, http.MethodPost, "/api/pin", "u1", map[string]string{"pin": "482917"})

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/session/background", "u1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("background status = %d, want 204", rr.Code)
	}

	rr = doJSON(t, s.Handler, http.MethodGet, "/api/session/lock", "u1", nil)
	var lock map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &lock); err != nil {
		t.Fatalf("decode lock state: %v", err)
	}
	if !lock["pin_required"] {
		t.Error("pin_required = false, want true after backgrounding")
	}

	// Successful verify clears the lock.
	doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "u1", map[string]string{"pin": "482917"})
	rr = doJSON(t, s.Handler, http.MethodGet, "/api/session/lock", "u1", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &lock); err != nil {
		t.Fatalf("decode lock state: %v", err)
	}
	if lock["pin_required"] {
		t.Error("pin_required = true, want false after unlock")
	}
}

func TestVerifyRecordsPinVerificationMetric(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s.Handler, http.MethodPost, "/api/pin", "u1", map[string]string{"pin": "482917"})
	doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "u1", map[string]string{"pin": "482917"})
	doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "u1", map[string]string{"pin": "000000"})

	rr := httptest.NewRecorder()
	s.collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	if !strings.Contains(body, `pin_verifications_total{result="success"} 1`) {
		t.Errorf("metrics missing success count:\n%s", body)
	}
	if !strings.Contains(body, `pin_verifications_total{result="failure"} 1`) {
		t.Errorf("metrics missing failure count:\n%s", body)
	}
}

func TestAnonymousRequestsDoNotDrainVerifyBudget(t *testing.T) {
	s := newTestServer(t)

	doJSON(t, s.Handler, http.MethodPost, "/api/pin", "u1", map[string]string{"pin": "482917"})

	// Headerless requests must be rejected by the identity check, not
	// counted against any rate-limit bucket.
	for i := 0; i < 15; i++ {
		rr := doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "", map[string]string{"pin": "482917"})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("anonymous verify status = %d, want 401", rr.Code)
		}
	}

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/pin/verify", "u1", map[string]string{"pin": "482917"})
	if rr.Code != http.StatusOK {
		t.Fatalf("verify after anonymous noise status = %d, want 200", rr.Code)
	}
	var verify map[string]bool
	if err := json.Unmarshal(rr.Body.Bytes(), &verify); err != nil {
		t.Fatalf("decode verify: %v", err)
	}
	if !verify["valid"] {
		t.Error("verify valid = false, want true")
	}
}

func TestCategoriesEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodGet, "/api/categories", "u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("categories status = %d", rr.Code)
	}
	var cats []string
	if err := json.Unmarshal(rr.Body.Bytes(), &cats); err != nil {
		t.Fatalf("decode categories: %v", err)
	}
	if len(cats) != 10 {
		t.Errorf("len(categories) = %d, want 10", len(cats))
	}
	if cats[0] != "Income" {
		t.Errorf("categories[0] = %q, want Income", cats[0])
	}
}

func TestTransactionListCacheInvalidatedOnMutation(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodPost, "/api/accounts", "u1", map[string]any{
		"name": "Cash", "type": "cash",
	})
	var acc accountJSON
	if err := json.Unmarshal(rr.Body.Bytes(), &acc); err != nil {
		t.Fatalf("decode account: %v", err)
	}

	add := func(desc string) {
		rr := doJSON(t, s.Handler, http.MethodPost, "/api/transactions", "u1", map[string]any{
			"account_id": acc.ID, "description": desc, "category": "Food", "amount_cents": -100,
		})
		if rr.Code != http.StatusCreated {
			t.Fatalf("create %q status = %d", desc, rr.Code)
		}
	}
	list := func() []transactionJSON {
		rr := doJSON(t, s.Handler, http.MethodGet, "/api/transactions", "u1", nil)
		var txs []transactionJSON
		if err := json.Unmarshal(rr.Body.Bytes(), &txs); err != nil {
			t.Fatalf("decode transactions: %v", err)
		}
		return txs
	}

	add("first")
	if got := len(list()); got != 1 {
		t.Fatalf("list after first add = %d, want 1", got)
	}
	// A second mutation must purge the cached list.
	add("second")
	if got := len(list()); got != 2 {
		t.Errorf("list after second add = %d, want 2", got)
	}
}

func TestLimitStatusEndpoint(t *testing.T) {
	s := newTestServer(t)

	rr := doJSON(t, s.Handler, http.MethodPut, "/api/limits", "u1", []map[string]any{
		{"type": "Food", "amount_cents": 10000},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("set limits status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, s.Handler, http.MethodGet, "/api/limits/status", "u1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("limit status = %d", rr.Code)
	}
	var resp limitStatusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if len(resp.Limits) != 1 || resp.Limits[0].Type != "Food" {
		t.Errorf("limits = %+v, want one Food entry", resp.Limits)
	}
	if resp.Limits[0].Exceeded || resp.Limits[0].NearLimit {
		t.Error("fresh ledger should be under the limit")
	}
}
