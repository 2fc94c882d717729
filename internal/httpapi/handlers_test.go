package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/service"
	"github.com/Matongos/inventory/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"
const adminPassword = "admin-secret-pass"

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(memory.New(), zap.NewNop())
	if err := svc.EnsureBootstrapAdmin(context.Background(), adminPassword); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	auth := NewAuthManager(testSecret, time.Hour)
	api := New(svc, auth, "http://127.0.0.1:3000", nil, zap.NewNop())
	return api.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed with status %d: %s", rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token in login response")
	}
	return resp.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLoginAndMe(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me failed with status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]any)
	if !ok || user["username"] != "admin" {
		t.Fatalf("unexpected me response: %v", body)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatalf("password hash leaked in response")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	handler := newTestAPI(t)

	status := 0
	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Username: "admin", Password: "wrong"})
		status = rec.Code
	}
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after repeated failures, got %d", status)
	}
}

func TestMissingTokenUnauthorized(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestUserRoleBlockedFromUserManagement(t *testing.T) {
	handler := newTestAPI(t)
	adminToken := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users", adminToken, domain.UserCreateRequest{
		Username: "clerk", Password: "secret1", Name: "Clerk", Email: "clerk@example.com", Role: domain.RoleUser,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create user failed: %d %s", rec.Code, rec.Body.String())
	}

	clerkToken := login(t, handler, "clerk", "secret1")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/users", clerkToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user role, got %d", rec.Code)
	}
}

func TestCatalogAndSaleLifecycle(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/categories", token, domain.CategoryCreateRequest{Name: "Groceries"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create category: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/stores", token, domain.StoreCreateRequest{Name: "Main Branch", Code: "MAIN"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create store: %d %s", rec.Code, rec.Body.String())
	}

	initial := 5
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name: "Rice 5kg", Code: "GRO-001", CategoryID: 1, CostPrice: 40, SellingPrice: 75, InitialStock: &initial,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{ProductID: 1, StoreID: 1, Quantity: 2})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	sale, ok := body["sale"].(map[string]any)
	if !ok {
		t.Fatalf("missing sale in response: %v", body)
	}
	if sale["total_price"] != float64(150) {
		t.Fatalf("expected total 150, got %v", sale["total_price"])
	}
	orderNumber, _ := sale["order_number"].(string)
	if orderNumber == "" {
		t.Fatalf("expected order number")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/sales/order/"+orderNumber, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("lookup by order number: %d %s", rec.Code, rec.Body.String())
	}

	// More than the remaining stock: the sale must fail with a conflict.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{ProductID: 1, StoreID: 1, Quantity: 10})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for insufficient stock, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/dashboard/overview", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard overview: %d %s", rec.Code, rec.Body.String())
	}
	overview := decodeBody(t, rec)
	if overview["orders_today"] != float64(1) {
		t.Fatalf("expected one order today, got %v", overview["orders_today"])
	}
}

func TestSaleStatusTransitionOverHTTP(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	doJSON(t, handler, http.MethodPost, "/api/v1/categories", token, domain.CategoryCreateRequest{Name: "Groceries"})
	doJSON(t, handler, http.MethodPost, "/api/v1/stores", token, domain.StoreCreateRequest{Name: "Main Branch", Code: "MAIN"})
	initial := 5
	doJSON(t, handler, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name: "Rice 5kg", Code: "GRO-001", CategoryID: 1, CostPrice: 40, SellingPrice: 75, InitialStock: &initial,
	})
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales", token, domain.SaleCreateRequest{ProductID: 1, StoreID: 1, Quantity: 1})
	if rec.Code != http.StatusCreated {
		t.Fatalf("record sale: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/sales/1/status", token, domain.SaleStatusUpdateRequest{Status: domain.SaleStatusPacked})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/v1/sales/1/status", token, domain.SaleStatusUpdateRequest{Status: domain.SaleStatusRefunded})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected invalid transition to return 409, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/1/cancel", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodDelete, "/api/v1/auth/login", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSecurityHeadersAndPreflight(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://127.0.0.1:3000" {
		t.Fatalf("unexpected CORS origin: %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	preflight := httptest.NewRecorder()
	handler.ServeHTTP(preflight, req)
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", preflight.Code)
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/categories", token, map[string]any{"name": "X", "bogus": true})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestRolesEndpointListsCatalog(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/users/roles", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("roles: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	roles, ok := body["roles"].(map[string]any)
	if !ok || len(roles) != 2 {
		t.Fatalf("expected two roles, got %v", body)
	}
	if _, ok := roles[domain.RoleAdmin]; !ok {
		t.Fatalf("expected admin role in catalog, got %v", roles)
	}
}

func TestSalesExportServesCSV(t *testing.T) {
	handler := newTestAPI(t)
	token := login(t, handler, "admin", adminPassword)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/settings/export", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("order_number,")) {
		t.Fatalf("expected CSV header, got %q", rec.Body.String())
	}
}

func TestHealthEndpointFormat(t *testing.T) {
	handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/health", "", nil)
	body := decodeBody(t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok true, got %v", body)
	}
	if _, err := time.Parse(time.RFC3339, fmt.Sprint(body["at"])); err != nil {
		t.Fatalf("expected RFC3339 timestamp, got %v", body["at"])
	}
}
