package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/ratelimit"
	"github.com/Matongos/inventory/internal/service"
	"github.com/Matongos/inventory/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  ratelimit.Limiter
	log           *zap.Logger
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, loginLimiter ratelimit.Limiter, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	if loginLimiter == nil {
		loginLimiter = ratelimit.NewMemory(5, time.Minute)
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  loginLimiter,
		log:           log,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", a.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/me", a.requireAuth(a.handleMe))

	mux.HandleFunc("/api/v1/users/roles", a.requireAuth(a.handleRoles))
	mux.HandleFunc("/api/v1/users", a.requireAuth(a.handleUsers, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/users/", a.requireAuth(a.handleUserByID, domain.RoleAdmin))

	mux.HandleFunc("/api/v1/categories", a.requireAuth(a.handleCategories))
	mux.HandleFunc("/api/v1/categories/", a.requireAuth(a.handleCategoryByID))

	mux.HandleFunc("/api/v1/stores/statistics", a.requireAuth(a.handleStoresOverview))
	mux.HandleFunc("/api/v1/stores", a.requireAuth(a.handleStores))
	mux.HandleFunc("/api/v1/stores/", a.requireAuth(a.handleStoreByID))

	mux.HandleFunc("/api/v1/products/stats", a.requireAuth(a.handleInventoryStats))
	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/products/", a.requireAuth(a.handleProductByID))

	mux.HandleFunc("/api/v1/inventory", a.requireAuth(a.handleInventory))
	mux.HandleFunc("/api/v1/inventory/", a.requireAuth(a.handleInventoryByID))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions))

	mux.HandleFunc("/api/v1/dashboard/overview", a.requireAuth(a.handleDashboardOverview))
	mux.HandleFunc("/api/v1/dashboard/sales-chart", a.requireAuth(a.handleSalesChart))
	mux.HandleFunc("/api/v1/dashboard/inventory-stats", a.requireAuth(a.handleInventoryStats))
	mux.HandleFunc("/api/v1/dashboard/stores-overview", a.requireAuth(a.handleStoresOverview))
	mux.HandleFunc("/api/v1/dashboard/top-categories", a.requireAuth(a.handleTopCategories))
	mux.HandleFunc("/api/v1/dashboard/recent-activity", a.requireAuth(a.handleRecentActivity))

	mux.HandleFunc("/api/v1/finance/analytics", a.requireAuth(a.handleFinanceAnalytics))
	mux.HandleFunc("/api/v1/finance/margins", a.requireAuth(a.handleMargins))
	mux.HandleFunc("/api/v1/finance/category-breakdown", a.requireAuth(a.handleCategoryBreakdown))
	mux.HandleFunc("/api/v1/finance/sales-trends", a.requireAuth(a.handleSalesTrends))
	mux.HandleFunc("/api/v1/finance/top-products", a.requireAuth(a.handleTopProducts))
	mux.HandleFunc("/api/v1/finance/store-performance", a.requireAuth(a.handleStorePerformance))
	mux.HandleFunc("/api/v1/finance/summary", a.requireAuth(a.handleFinanceSummary))
	mux.HandleFunc("/api/v1/finance/report", a.requireAuth(a.handleFinanceReport))

	mux.HandleFunc("/api/v1/settings/backup", a.requireAuth(a.handleBackup, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/settings/export", a.requireAuth(a.handleExport))
	mux.HandleFunc("/api/v1/settings/config", a.requireAuth(a.handleSettingsConfig))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	allowed, err := a.loginLimiter.Allow(r.Context(), clientKey(r))
	if err != nil {
		a.log.Warn("login limiter unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user, err := a.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	token, expiresAt, err := a.auth.Sign(user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
		User:        user,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roles": domain.RoleCatalog()})
}

// ---- users ----

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter := store.UserFilter{
			Role:    strings.TrimSpace(r.URL.Query().Get("role")),
			Search:  strings.TrimSpace(r.URL.Query().Get("search")),
			Page:    parsePositiveLimit(r.URL.Query().Get("page"), 1, 0),
			PerPage: parsePositiveLimit(r.URL.Query().Get("per_page"), 10, 100),
		}
		users, pagination, err := a.service.ListUsers(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users, "pagination": pagination})
	case http.MethodPost:
		var req domain.UserCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.service.CreateUser(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/users/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := a.service.GetUserByID(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	case http.MethodPut, http.MethodPatch:
		var req domain.UserUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		user, err := a.service.UpdateUser(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": user})
	case http.MethodDelete:
		if err := a.service.DeleteUser(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- categories ----

func (a *API) handleCategories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")
		categories, err := a.service.ListCategories(r.Context(), includeInactive)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
	case http.MethodPost:
		var req domain.CategoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.CreateCategory(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"category": category})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCategoryByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/categories/"), "/")

	if rest, ok := strings.CutSuffix(tail, "/stats"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, err := parseID(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.GetCategory(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stats": category.Rollup})
		return
	}

	id, err := parseID(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		category, err := a.service.GetCategory(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		products, _, err := a.service.ListProducts(r.Context(), store.ProductFilter{CategoryID: id, Page: 1, PerPage: 5})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category, "products": products})
	case http.MethodPut, http.MethodPatch:
		var req domain.CategoryUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		category, err := a.service.UpdateCategory(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"category": category})
	case http.MethodDelete:
		if err := a.service.DeleteCategory(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- stores ----

func (a *API) handleStores(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		includeInactive := strings.EqualFold(r.URL.Query().Get("include_inactive"), "true")
		stores, err := a.service.ListStores(r.Context(), includeInactive)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
	case http.MethodPost:
		var req domain.StoreCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err := a.service.CreateStore(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"store": st})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleStoreByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/stores/"), "/")

	if rest, ok := strings.CutSuffix(tail, "/products"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, err := parseID(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		filter := productFilterFromQuery(r)
		filter.StoreID = id
		products, pagination, err := a.service.ListProducts(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products, "pagination": pagination})
		return
	}

	id, err := parseID(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		st, err := a.service.GetStore(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		topProducts, err := a.service.TopProducts(r.Context(), "", "", id, 5)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"store": st, "top_products": topProducts})
	case http.MethodPut, http.MethodPatch:
		var req domain.StoreUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		st, err := a.service.UpdateStore(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"store": st})
	case http.MethodDelete:
		if err := a.service.DeleteStore(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- products ----

func productFilterFromQuery(r *http.Request) store.ProductFilter {
	query := r.URL.Query()
	filter := store.ProductFilter{
		Search:          strings.TrimSpace(query.Get("search")),
		Status:          strings.TrimSpace(query.Get("status")),
		IncludeInactive: strings.EqualFold(query.Get("include_inactive"), "true"),
		SortBy:          strings.TrimSpace(query.Get("sort_by")),
		SortDesc:        strings.EqualFold(query.Get("order"), "desc"),
		Page:            parsePositiveLimit(query.Get("page"), 1, 0),
		PerPage:         parsePositiveLimit(query.Get("per_page"), 10, 100),
	}
	if raw := query.Get("category_id"); raw != "" {
		if id, err := parseID(raw); err == nil {
			filter.CategoryID = id
		}
	}
	if raw := query.Get("store_id"); raw != "" {
		if id, err := parseID(raw); err == nil {
			filter.StoreID = id
		}
	}
	return filter
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, pagination, err := a.service.ListProducts(r.Context(), productFilterFromQuery(r))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"products": products, "pagination": pagination})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductByID(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/products/"), "/")

	if rest, ok := strings.CutSuffix(tail, "/stats"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		id, err := parseID(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		detail, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_stock":     detail.TotalStock,
			"is_low_stock":    detail.IsLowStock,
			"is_out_of_stock": detail.IsOutOfStock,
			"profit_margin":   detail.ProfitMargin,
			"inventory":       detail.Inventory,
		})
		return
	}

	id, err := parseID(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodGet:
		detail, err := a.service.GetProduct(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": detail})
	case http.MethodPut, http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": product})
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- inventory ----

func (a *API) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		var filter store.InventoryFilter
		if raw := r.URL.Query().Get("product_id"); raw != "" {
			if id, err := parseID(raw); err == nil {
				filter.ProductID = id
			}
		}
		if raw := r.URL.Query().Get("store_id"); raw != "" {
			if id, err := parseID(raw); err == nil {
				filter.StoreID = id
			}
		}
		rows, err := a.service.ListInventory(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inventory": rows})
	case http.MethodPost:
		var req domain.InventoryCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		inv, err := a.service.CreateInventory(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"inventory": inv})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleInventoryByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r.URL.Path, "/api/v1/inventory/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		var req domain.InventorySetRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		inv, err := a.service.AdjustInventory(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"inventory": inv})
	default:
		writeMethodNotAllowed(w)
	}
}

// ---- sales ----

func saleFilterFromQuery(r *http.Request) (store.SaleFilter, error) {
	query := r.URL.Query()
	filter := store.SaleFilter{
		Status:  strings.TrimSpace(query.Get("status")),
		Page:    parsePositiveLimit(query.Get("page"), 1, 0),
		PerPage: parsePositiveLimit(query.Get("per_page"), 10, 100),
	}
	if raw := query.Get("product_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return filter, err
		}
		filter.ProductID = id
	}
	if raw := query.Get("store_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return filter, err
		}
		filter.StoreID = id
	}
	if raw := query.Get("from"); raw != "" {
		from, err := parseTimeParam(raw, false)
		if err != nil {
			return filter, err
		}
		filter.From = from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := parseTimeParam(raw, true)
		if err != nil {
			return filter, err
		}
		filter.To = to
	}
	return filter, nil
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		filter, err := saleFilterFromQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sales, pagination, err := a.service.ListSales(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sales": sales, "pagination": pagination})
	case http.MethodPost:
		var req domain.SaleCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.RecordSale(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sales/"), "/")
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	if orderNumber, ok := strings.CutPrefix(tail, "order/"); ok {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		sale, err := a.service.GetSaleByOrderNumber(r.Context(), orderNumber)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
		return
	}

	if rest, ok := strings.CutSuffix(tail, "/status"); ok {
		if r.Method != http.MethodPut && r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		id, err := parseID(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var req domain.SaleStatusUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.UpdateSaleStatus(r.Context(), id, strings.TrimSpace(req.Status))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
		return
	}

	if rest, ok := strings.CutSuffix(tail, "/cancel"); ok {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		id, err := parseID(rest)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.CancelSale(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
		return
	}

	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	id, err := parseID(tail)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

// ---- dashboard ----

func (a *API) handleDashboardOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	overview, err := a.service.DashboardOverview(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (a *API) handleSalesChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	days := parsePositiveLimit(r.URL.Query().Get("days"), 30, 365)

	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type"))) {
	case "category":
		rows, err := a.service.TopCategories(r.Context(), days, 10)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
	case "status":
		counts, err := a.service.SalesStatusCounts(r.Context(), days)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"statuses": counts})
	default:
		points, err := a.service.SalesChart(r.Context(), days)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"series": points})
	}
}

func (a *API) handleInventoryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	stats, err := a.service.InventoryStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleStoresOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	stores, err := a.service.ListStores(r.Context(), false)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (a *API) handleTopCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	days := parsePositiveLimit(r.URL.Query().Get("days"), 30, 365)
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	rows, err := a.service.TopCategories(r.Context(), days, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
}

func (a *API) handleRecentActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 100)
	sales, err := a.service.RecentActivity(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

// ---- finance ----

func financeWindow(r *http.Request) (string, string, int64) {
	query := r.URL.Query()
	var storeID int64
	if raw := query.Get("store_id"); raw != "" {
		if id, err := parseID(raw); err == nil {
			storeID = id
		}
	}
	return query.Get("from"), query.Get("to"), storeID
}

func (a *API) handleFinanceAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, storeID := financeWindow(r)
	comparison, err := a.service.FinanceAnalytics(r.Context(), from, to, storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (a *API) handleMargins(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 100)
	products, err := a.service.Margins(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, _ := financeWindow(r)
	rows, err := a.service.CategoryBreakdown(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": rows})
}

func (a *API) handleSalesTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, storeID := financeWindow(r)
	points, err := a.service.SalesTrends(r.Context(), from, to, storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": points})
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, storeID := financeWindow(r)
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	rows, err := a.service.TopProducts(r.Context(), from, to, storeID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": rows})
}

func (a *API) handleStorePerformance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, _ := financeWindow(r)
	rows, err := a.service.StorePerformance(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stores": rows})
}

func (a *API) handleFinanceSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	summary, err := a.service.FinanceSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleFinanceReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	from, to, storeID := financeWindow(r)
	comparison, err := a.service.FinanceAnalytics(r.Context(), from, to, storeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	report := map[string]any{"summary": comparison}
	if strings.EqualFold(r.URL.Query().Get("type"), "detailed") {
		categories, err := a.service.CategoryBreakdown(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		stores, err := a.service.StorePerformance(r.Context(), from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		report["by_category"] = categories
		report["by_store"] = stores
	}
	writeJSON(w, http.StatusOK, report)
}

// ---- settings ----

func (a *API) handleBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	backup, err := a.service.BackupData(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"backup-%s.json\"", backup.GeneratedAt.Format("2006-01-02")))
	writeJSON(w, http.StatusOK, backup)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	filter, err := saleFilterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"sales-%s.csv\"", time.Now().UTC().Format("2006-01-02")))
	if err := a.service.ExportSalesCSV(r.Context(), w, filter); err != nil {
		a.log.Error("sales export failed", zap.Error(err))
	}
}

func (a *API) handleSettingsConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"app_name":          "inventory-api",
		"version":           "1.0.0",
		"token_ttl_minutes": int(a.auth.TokenTTL().Minutes()),
	})
}

// ---- middleware and helpers ----

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		startedAt := time.Now()
		next.ServeHTTP(recorder, r)
		elapsed := time.Since(startedAt)

		observeRequest(r.Method, recorder.status, elapsed.Seconds())
		a.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(raw), "/"), 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func pathID(path, prefix string) (int64, error) {
	return parseID(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
}

// parseTimeParam accepts a date or an RFC3339 timestamp. Date-only values
// used as a range end cover the whole day.
func parseTimeParam(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		if endOfDay {
			return t.UTC().AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s", raw)
	}
	return t.UTC(), nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError returns the original message for 4xx responses; 5xx responses
// get a generic message so internal details never reach the client.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
