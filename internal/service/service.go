package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/metrics"
	"github.com/Matongos/inventory/internal/ordernum"
	"github.com/Matongos/inventory/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo store.Repository
	log  *zap.Logger
}

func New(repo store.Repository, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, log: log}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, msg)
}

func conflict(msg string) error {
	return fmt.Errorf("%w: %s", store.ErrConflict, msg)
}

func forbidden(msg string) error {
	return fmt.Errorf("%w: %s", store.ErrForbidden, msg)
}

func requirePermission(ctx context.Context, permission string) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || !domain.RoleHasPermission(actor.Role, permission) {
		return domain.Actor{}, forbidden(permission + " permission required")
	}
	return actor, nil
}

func paginate(page, perPage, total int) domain.Pagination {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	pages := (total + perPage - 1) / perPage
	return domain.Pagination{
		Page:    page,
		PerPage: perPage,
		Total:   total,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, invalid("invalid date: " + raw)
}

// ---- auth ----

// Authenticate verifies credentials and records the login time. Username
// matching is case-insensitive; the response never reveals whether the
// username or the password was wrong.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return domain.User{}, errors.New("invalid credentials")
	}

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return domain.User{}, errors.New("invalid credentials")
	}
	if !user.IsActive {
		return domain.User{}, errors.New("account is inactive")
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	user.UpdatedAt = now
	if _, err := s.repo.UpdateUser(ctx, *user); err != nil {
		s.log.Warn("failed to record last login", zap.String("username", user.Username), zap.Error(err))
	}
	return *user, nil
}

func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.User{}, forbidden("authentication required")
	}
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if err != nil {
		return domain.User{}, err
	}
	return *user, nil
}

// EnsureBootstrapAdmin creates the protected admin account on first start.
// Runs before any request context exists, so no actor check applies.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, password string) error {
	_, err := s.repo.GetUserByUsername(ctx, domain.BootstrapAdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin password is empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.repo.CreateUser(ctx, domain.User{
		Username:     domain.BootstrapAdminUsername,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Name:         "System Administrator",
		Email:        "admin@localhost",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}
	s.log.Info("bootstrap admin created")
	return nil
}

// ---- users ----

func (s *Service) ListUsers(ctx context.Context, filter store.UserFilter) ([]domain.User, domain.Pagination, error) {
	if _, err := requirePermission(ctx, domain.PermissionAdmin); err != nil {
		return nil, domain.Pagination{}, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 10
	}
	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return users, paginate(filter.Page, filter.PerPage, total), nil
}

func (s *Service) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	if _, err := requirePermission(ctx, domain.PermissionAdmin); err != nil {
		return domain.User{}, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	if _, err := requirePermission(ctx, domain.PermissionAdmin); err != nil {
		return domain.User{}, err
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 3 || strings.ContainsAny(username, " \t\r\n") {
		return domain.User{}, invalid("username must be at least 3 characters with no spaces")
	}
	if len(req.Password) < 6 {
		return domain.User{}, invalid("password must be at least 6 characters")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, invalid("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return domain.User{}, invalid("valid email is required")
	}
	if !domain.ValidRole(req.Role) {
		return domain.User{}, invalid("invalid role")
	}
	if req.StoreID != nil {
		st, err := s.repo.GetStore(ctx, *req.StoreID)
		if err != nil {
			return domain.User{}, invalid("invalid store id")
		}
		if !st.IsActive {
			return domain.User{}, invalid("store is not active")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	now := time.Now().UTC()
	created, err := s.repo.CreateUser(ctx, domain.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         req.Role,
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		StoreID:      req.StoreID,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.User{}, err
	}
	return *created, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req domain.UserUpdateRequest) (domain.User, error) {
	if _, err := requirePermission(ctx, domain.PermissionAdmin); err != nil {
		return domain.User{}, err
	}

	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	updated := *existing
	isBootstrap := strings.EqualFold(existing.Username, domain.BootstrapAdminUsername)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.User{}, invalid("name is required")
		}
		updated.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if !strings.Contains(email, "@") {
			return domain.User{}, invalid("valid email is required")
		}
		updated.Email = email
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Role != nil {
		if !domain.ValidRole(*req.Role) {
			return domain.User{}, invalid("invalid role")
		}
		if isBootstrap && *req.Role != domain.RoleAdmin {
			return domain.User{}, forbidden("cannot change the bootstrap admin role")
		}
		updated.Role = *req.Role
	}
	if req.StoreID != nil {
		st, err := s.repo.GetStore(ctx, *req.StoreID)
		if err != nil {
			return domain.User{}, invalid("invalid store id")
		}
		if !st.IsActive {
			return domain.User{}, invalid("store is not active")
		}
		updated.StoreID = req.StoreID
	}
	if req.IsActive != nil {
		if isBootstrap && !*req.IsActive {
			return domain.User{}, forbidden("cannot deactivate the bootstrap admin account")
		}
		updated.IsActive = *req.IsActive
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 6 {
			return domain.User{}, invalid("password must be at least 6 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, err
		}
		updated.PasswordHash = string(hash)
	}

	updated.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.User{}, err
	}
	return *saved, nil
}

// DeleteUser deactivates an account. The bootstrap admin and the caller's
// own account are protected.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	actor, err := requirePermission(ctx, domain.PermissionAdmin)
	if err != nil {
		return err
	}

	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if strings.EqualFold(existing.Username, domain.BootstrapAdminUsername) {
		return forbidden("cannot delete the bootstrap admin account")
	}
	if existing.ID == actor.UserID {
		return forbidden("cannot delete your own account")
	}

	existing.IsActive = false
	existing.UpdatedAt = time.Now().UTC()
	_, err = s.repo.UpdateUser(ctx, *existing)
	return err
}

// ---- categories ----

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := requirePermission(ctx, domain.PermissionCreate); err != nil {
		return domain.Category{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Category{}, invalid("name is required")
	}
	if req.ParentID != nil {
		parent, err := s.repo.GetCategory(ctx, *req.ParentID)
		if err != nil {
			return domain.Category{}, invalid("invalid parent category")
		}
		if !parent.IsActive {
			return domain.Category{}, invalid("parent category is not active")
		}
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	}
	now := time.Now().UTC()
	created, err := s.repo.CreateCategory(ctx, domain.Category{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		Color:       strings.TrimSpace(req.Color),
		ParentID:    req.ParentID,
		IsActive:    true,
		SortOrder:   sortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return domain.Category{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if _, err := requirePermission(ctx, domain.PermissionEdit); err != nil {
		return domain.Category{}, err
	}

	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Category{}, invalid("name is required")
		}
		updated.Name = name
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Icon != nil {
		updated.Icon = strings.TrimSpace(*req.Icon)
	}
	if req.Color != nil {
		updated.Color = strings.TrimSpace(*req.Color)
	}
	if req.ParentID != nil {
		if *req.ParentID == id {
			return domain.Category{}, invalid("category cannot be its own parent")
		}
		if err := s.checkCategoryCycle(ctx, id, *req.ParentID); err != nil {
			return domain.Category{}, err
		}
		updated.ParentID = req.ParentID
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		updated.SortOrder = *req.SortOrder
	}

	updated.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, err
	}
	return *saved, nil
}

// checkCategoryCycle walks ancestors from the proposed parent; reaching the
// category being updated means the reparent would close a loop.
func (s *Service) checkCategoryCycle(ctx context.Context, categoryID int64, parentID int64) error {
	seen := map[int64]bool{}
	current := parentID
	for {
		if current == categoryID {
			return invalid("category hierarchy cannot contain cycles")
		}
		if seen[current] {
			return invalid("category hierarchy cannot contain cycles")
		}
		seen[current] = true

		parent, err := s.repo.GetCategory(ctx, current)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return invalid("invalid parent category")
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

// DeleteCategory deactivates a category. Blocked while active products still
// reference it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := requirePermission(ctx, domain.PermissionDelete); err != nil {
		return err
	}

	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.repo.CountActiveProductsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return conflict(fmt.Sprintf("category has %d active products", count))
	}

	existing.IsActive = false
	existing.UpdatedAt = time.Now().UTC()
	_, err = s.repo.UpdateCategory(ctx, *existing)
	return err
}

// ---- stores ----

func (s *Service) CreateStore(ctx context.Context, req domain.StoreCreateRequest) (domain.Store, error) {
	if _, err := requirePermission(ctx, domain.PermissionCreate); err != nil {
		return domain.Store{}, err
	}

	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if name == "" || code == "" {
		return domain.Store{}, invalid("name and code are required")
	}

	var openingDate *time.Time
	if req.OpeningDate != nil && *req.OpeningDate != "" {
		parsed, err := parseDate(*req.OpeningDate)
		if err != nil {
			return domain.Store{}, err
		}
		openingDate = &parsed
	}

	now := time.Now().UTC()
	created, err := s.repo.CreateStore(ctx, domain.Store{
		Name:          name,
		Code:          code,
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		PostalCode:    strings.TrimSpace(req.PostalCode),
		Country:       strings.TrimSpace(req.Country),
		Phone:         strings.TrimSpace(req.Phone),
		Email:         strings.TrimSpace(req.Email),
		ManagerName:   strings.TrimSpace(req.ManagerName),
		Timezone:      strings.TrimSpace(req.Timezone),
		IsActive:      true,
		OpeningDate:   openingDate,
		SquareFootage: req.SquareFootage,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return domain.Store{}, err
	}
	return *created, nil
}

func (s *Service) UpdateStore(ctx context.Context, id int64, req domain.StoreUpdateRequest) (domain.Store, error) {
	if _, err := requirePermission(ctx, domain.PermissionEdit); err != nil {
		return domain.Store{}, err
	}

	existing, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return domain.Store{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Store{}, invalid("name is required")
		}
		updated.Name = name
	}
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code == "" {
			return domain.Store{}, invalid("code is required")
		}
		updated.Code = code
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}
	if req.City != nil {
		updated.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		updated.State = strings.TrimSpace(*req.State)
	}
	if req.PostalCode != nil {
		updated.PostalCode = strings.TrimSpace(*req.PostalCode)
	}
	if req.Country != nil {
		updated.Country = strings.TrimSpace(*req.Country)
	}
	if req.Phone != nil {
		updated.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.ManagerName != nil {
		updated.ManagerName = strings.TrimSpace(*req.ManagerName)
	}
	if req.Timezone != nil {
		updated.Timezone = strings.TrimSpace(*req.Timezone)
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.SquareFootage != nil {
		updated.SquareFootage = req.SquareFootage
	}
	if req.CustomerRating != nil {
		if *req.CustomerRating < 0 || *req.CustomerRating > 5 {
			return domain.Store{}, invalid("customer rating must be between 0 and 5")
		}
		updated.CustomerRating = *req.CustomerRating
	}

	updated.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.UpdateStore(ctx, updated)
	if err != nil {
		return domain.Store{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteStore(ctx context.Context, id int64) error {
	if _, err := requirePermission(ctx, domain.PermissionDelete); err != nil {
		return err
	}

	existing, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return err
	}
	existing.IsActive = false
	existing.UpdatedAt = time.Now().UTC()
	_, err = s.repo.UpdateStore(ctx, *existing)
	return err
}

// ---- products ----

func validProductStatus(status string) bool {
	switch status {
	case domain.ProductStatusActive, domain.ProductStatusInactive, domain.ProductStatusDiscontinued, domain.ProductStatusSeasonal:
		return true
	}
	return false
}

func (s *Service) productWithMetrics(p domain.Product, inventory []domain.Inventory) domain.ProductWithMetrics {
	total := metrics.TotalStock(inventory)
	return domain.ProductWithMetrics{
		Product:      p,
		TotalStock:   total,
		IsLowStock:   metrics.IsLowStock(total, p.MinStockLevel),
		IsOutOfStock: metrics.IsOutOfStock(total),
		ProfitMargin: metrics.Round2(metrics.ProductMargin(p.CostPrice, p.SellingPrice)),
	}
}

func (s *Service) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.ProductWithMetrics, domain.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 10
	}

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	byProduct := make(map[int64][]domain.Inventory)
	for _, inv := range inventory {
		byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
	}

	out := make([]domain.ProductWithMetrics, 0, len(products))
	for _, p := range products {
		out = append(out, s.productWithMetrics(p, byProduct[p.ID]))
	}
	return out, paginate(filter.Page, filter.PerPage, total), nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.ProductDetail, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.ProductDetail{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{ProductID: id})
	if err != nil {
		return domain.ProductDetail{}, err
	}
	recent, _, err := s.repo.ListSales(ctx, store.SaleFilter{ProductID: id, Page: 1, PerPage: 10})
	if err != nil {
		return domain.ProductDetail{}, err
	}

	rows := make([]domain.InventoryWithStatus, 0, len(inventory))
	for _, inv := range inventory {
		rows = append(rows, domain.InventoryWithStatus{
			Inventory:  inv,
			IsLowStock: inv.Quantity <= inv.MinStock,
		})
	}

	return domain.ProductDetail{
		ProductWithMetrics: s.productWithMetrics(*product, inventory),
		Inventory:          rows,
		RecentSales:        recent,
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.ProductWithMetrics, error) {
	if _, err := requirePermission(ctx, domain.PermissionCreate); err != nil {
		return domain.ProductWithMetrics{}, err
	}

	name := strings.TrimSpace(req.Name)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if name == "" || code == "" {
		return domain.ProductWithMetrics{}, invalid("name and code are required")
	}
	if req.CostPrice < 0 || req.SellingPrice < 0 {
		return domain.ProductWithMetrics{}, invalid("prices cannot be negative")
	}
	category, err := s.repo.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return domain.ProductWithMetrics{}, invalid("invalid category id")
	}
	if !category.IsActive {
		return domain.ProductWithMetrics{}, invalid("category is not active")
	}

	status := req.Status
	if status == "" {
		status = domain.ProductStatusActive
	}
	if !validProductStatus(status) {
		return domain.ProductWithMetrics{}, invalid("invalid product status")
	}

	trackInventory := true
	if req.TrackInventory != nil {
		trackInventory = *req.TrackInventory
	}
	allowBackorder := false
	if req.AllowBackorder != nil {
		allowBackorder = *req.AllowBackorder
	}
	minStock := 0
	if req.MinStockLevel != nil {
		minStock = *req.MinStockLevel
	}
	maxStock := 0
	if req.MaxStockLevel != nil {
		maxStock = *req.MaxStockLevel
	}
	if minStock < 0 || maxStock < 0 {
		return domain.ProductWithMetrics{}, invalid("stock levels cannot be negative")
	}

	now := time.Now().UTC()
	product := domain.Product{
		Name:           name,
		Code:           code,
		Barcode:        strings.TrimSpace(req.Barcode),
		Description:    strings.TrimSpace(req.Description),
		Brand:          strings.TrimSpace(req.Brand),
		CategoryID:     req.CategoryID,
		CostPrice:      req.CostPrice,
		SellingPrice:   req.SellingPrice,
		IsActive:       true,
		Status:         status,
		TrackInventory: trackInventory,
		AllowBackorder: allowBackorder,
		MinStockLevel:  minStock,
		MaxStockLevel:  maxStock,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var initial []domain.Inventory
	if req.InitialStock != nil {
		if *req.InitialStock < 0 {
			return domain.ProductWithMetrics{}, invalid("initial stock cannot be negative")
		}
		if *req.InitialStock > 0 {
			stores, err := s.repo.ListStores(ctx, false)
			if err != nil {
				return domain.ProductWithMetrics{}, err
			}
			for _, st := range stores {
				initial = append(initial, domain.Inventory{
					StoreID:     st.ID,
					Quantity:    *req.InitialStock,
					MinStock:    minStock,
					LastUpdated: now,
				})
			}
		}
	}

	created, err := s.repo.CreateProduct(ctx, product, initial)
	if err != nil {
		return domain.ProductWithMetrics{}, err
	}
	return s.productWithMetrics(*created, initial), nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.ProductWithMetrics, error) {
	if _, err := requirePermission(ctx, domain.PermissionEdit); err != nil {
		return domain.ProductWithMetrics{}, err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.ProductWithMetrics{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ProductWithMetrics{}, invalid("name is required")
		}
		updated.Name = name
	}
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code == "" {
			return domain.ProductWithMetrics{}, invalid("code is required")
		}
		updated.Code = code
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Brand != nil {
		updated.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.CategoryID != nil {
		category, err := s.repo.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return domain.ProductWithMetrics{}, invalid("invalid category id")
		}
		if !category.IsActive {
			return domain.ProductWithMetrics{}, invalid("category is not active")
		}
		updated.CategoryID = *req.CategoryID
	}
	if req.CostPrice != nil {
		if *req.CostPrice < 0 {
			return domain.ProductWithMetrics{}, invalid("cost price cannot be negative")
		}
		updated.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if *req.SellingPrice < 0 {
			return domain.ProductWithMetrics{}, invalid("selling price cannot be negative")
		}
		updated.SellingPrice = *req.SellingPrice
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.Status != nil {
		if !validProductStatus(*req.Status) {
			return domain.ProductWithMetrics{}, invalid("invalid product status")
		}
		updated.Status = *req.Status
	}
	if req.TrackInventory != nil {
		updated.TrackInventory = *req.TrackInventory
	}
	if req.AllowBackorder != nil {
		updated.AllowBackorder = *req.AllowBackorder
	}
	if req.MinStockLevel != nil {
		if *req.MinStockLevel < 0 {
			return domain.ProductWithMetrics{}, invalid("min stock level cannot be negative")
		}
		updated.MinStockLevel = *req.MinStockLevel
	}
	if req.MaxStockLevel != nil {
		if *req.MaxStockLevel < 0 {
			return domain.ProductWithMetrics{}, invalid("max stock level cannot be negative")
		}
		updated.MaxStockLevel = *req.MaxStockLevel
	}

	updated.UpdatedAt = time.Now().UTC()
	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.ProductWithMetrics{}, err
	}

	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{ProductID: id})
	if err != nil {
		return domain.ProductWithMetrics{}, err
	}
	return s.productWithMetrics(*saved, inventory), nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := requirePermission(ctx, domain.PermissionDelete); err != nil {
		return err
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	existing.IsActive = false
	existing.UpdatedAt = time.Now().UTC()
	_, err = s.repo.UpdateProduct(ctx, *existing)
	return err
}

// ---- inventory ----

func (s *Service) ListInventory(ctx context.Context, filter store.InventoryFilter) ([]domain.InventoryWithStatus, error) {
	rows, err := s.repo.ListInventory(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.InventoryWithStatus, 0, len(rows))
	for _, inv := range rows {
		out = append(out, domain.InventoryWithStatus{
			Inventory:  inv,
			IsLowStock: inv.Quantity <= inv.MinStock,
		})
	}
	return out, nil
}

func (s *Service) CreateInventory(ctx context.Context, req domain.InventoryCreateRequest) (domain.Inventory, error) {
	if _, err := requirePermission(ctx, domain.PermissionCreate); err != nil {
		return domain.Inventory{}, err
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.Inventory{}, invalid("invalid product id")
	}
	if !product.IsActive {
		return domain.Inventory{}, invalid("product is not active")
	}
	st, err := s.repo.GetStore(ctx, req.StoreID)
	if err != nil {
		return domain.Inventory{}, invalid("invalid store id")
	}
	if !st.IsActive {
		return domain.Inventory{}, invalid("store is not active")
	}
	if req.Quantity < 0 {
		return domain.Inventory{}, invalid("quantity cannot be negative")
	}
	minStock := 0
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Inventory{}, invalid("min stock cannot be negative")
		}
		minStock = *req.MinStock
	}

	created, err := s.repo.CreateInventory(ctx, domain.Inventory{
		ProductID:   req.ProductID,
		StoreID:     req.StoreID,
		Quantity:    req.Quantity,
		MinStock:    minStock,
		LastUpdated: time.Now().UTC(),
	})
	if err != nil {
		return domain.Inventory{}, err
	}
	return *created, nil
}

// AdjustInventory sets or shifts a row's quantity. Manual adjustments may
// not leave the row negative; only sales of backorderable products can.
func (s *Service) AdjustInventory(ctx context.Context, id int64, req domain.InventorySetRequest) (domain.Inventory, error) {
	if _, err := requirePermission(ctx, domain.PermissionEdit); err != nil {
		return domain.Inventory{}, err
	}
	if req.Quantity == nil && req.Delta == nil && req.MinStock == nil {
		return domain.Inventory{}, invalid("nothing to update")
	}
	if req.Quantity != nil && req.Delta != nil {
		return domain.Inventory{}, invalid("quantity and delta are mutually exclusive")
	}

	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return domain.Inventory{}, err
	}

	updated := *existing
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			return domain.Inventory{}, invalid("quantity cannot be negative")
		}
		updated.Quantity = *req.Quantity
	}
	if req.Delta != nil {
		next := updated.Quantity + *req.Delta
		if next < 0 {
			return domain.Inventory{}, invalid("adjustment would make quantity negative")
		}
		updated.Quantity = next
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.Inventory{}, invalid("min stock cannot be negative")
		}
		updated.MinStock = *req.MinStock
	}

	updated.LastUpdated = time.Now().UTC()
	saved, err := s.repo.UpdateInventory(ctx, updated)
	if err != nil {
		return domain.Inventory{}, err
	}
	return *saved, nil
}

// ---- sales ----

func (s *Service) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, domain.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 10
	}
	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	for i := range sales {
		sales[i] = roundSale(sales[i])
	}
	return sales, paginate(filter.Page, filter.PerPage, total), nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (domain.Sale, error) {
	sale, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}
	return roundSale(*sale), nil
}

func (s *Service) GetSaleByOrderNumber(ctx context.Context, orderNumber string) (domain.Sale, error) {
	sale, err := s.repo.GetSaleByOrderNumber(ctx, strings.TrimSpace(orderNumber))
	if err != nil {
		return domain.Sale{}, err
	}
	return roundSale(*sale), nil
}

func roundSale(sale domain.Sale) domain.Sale {
	sale.UnitCost = metrics.Round2(sale.UnitCost)
	sale.UnitPrice = metrics.Round2(sale.UnitPrice)
	sale.DiscountAmount = metrics.Round2(sale.DiscountAmount)
	sale.TaxAmount = metrics.Round2(sale.TaxAmount)
	sale.TotalPrice = metrics.Round2(sale.TotalPrice)
	return sale
}

// RecordSale snapshots the product's prices, computes the total and
// decrements stock for tracked products. Insufficient stock is a conflict
// unless the product allows backorders.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	actor, err := requirePermission(ctx, domain.PermissionCreate)
	if err != nil {
		return domain.Sale{}, err
	}

	if req.Quantity < 1 {
		return domain.Sale{}, invalid("quantity must be at least 1")
	}
	if req.DiscountAmount < 0 || req.TaxAmount < 0 {
		return domain.Sale{}, invalid("discount and tax cannot be negative")
	}

	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.Sale{}, invalid("invalid product id")
	}
	if !product.IsActive {
		return domain.Sale{}, invalid("product is not active")
	}
	st, err := s.repo.GetStore(ctx, req.StoreID)
	if err != nil {
		return domain.Sale{}, invalid("invalid store id")
	}
	if !st.IsActive {
		return domain.Sale{}, invalid("store is not active")
	}

	gross := product.SellingPrice * float64(req.Quantity)
	if req.DiscountAmount > gross {
		return domain.Sale{}, invalid("discount cannot exceed the gross amount")
	}
	total := gross - req.DiscountAmount + req.TaxAmount

	now := time.Now().UTC()
	saleDate := now
	if req.SaleDate != nil && *req.SaleDate != "" {
		parsed, err := parseDate(*req.SaleDate)
		if err != nil {
			return domain.Sale{}, err
		}
		saleDate = parsed
	}

	sale := domain.Sale{
		ProductID:      req.ProductID,
		StoreID:        req.StoreID,
		Quantity:       req.Quantity,
		UnitCost:       product.CostPrice,
		UnitPrice:      product.SellingPrice,
		DiscountAmount: req.DiscountAmount,
		TaxAmount:      req.TaxAmount,
		TotalPrice:     total,
		CustomerName:   strings.TrimSpace(req.CustomerName),
		CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
		CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
		Status:         domain.SaleStatusConfirmed,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentStatus:  domain.PaymentStatusPaid,
		SoldByUserID:   &actor.UserID,
		Notes:          strings.TrimSpace(req.Notes),
		SaleDate:       saleDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	// Order numbers are random-suffixed; a collision is possible but a
	// retry or two resolves it. Stock conflicts are not retried.
	var created *domain.Sale
	for attempt := 0; attempt < 3; attempt++ {
		sale.OrderNumber = ordernum.New(now)
		created, err = s.repo.CreateSale(ctx, sale, product.TrackInventory, product.AllowBackorder)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrInsufficientStock) || !errors.Is(err, store.ErrConflict) {
			return domain.Sale{}, err
		}
	}
	if err != nil {
		return domain.Sale{}, err
	}
	return roundSale(*created), nil
}

// saleTransitions holds the allowed fulfillment moves. Cancelled and
// refunded are terminal.
var saleTransitions = map[string][]string{
	domain.SaleStatusConfirmed: {domain.SaleStatusPacked, domain.SaleStatusShipped, domain.SaleStatusDelivered, domain.SaleStatusCancelled},
	domain.SaleStatusPacked:    {domain.SaleStatusShipped, domain.SaleStatusDelivered, domain.SaleStatusCancelled},
	domain.SaleStatusShipped:   {domain.SaleStatusDelivered},
	domain.SaleStatusDelivered: {domain.SaleStatusRefunded},
}

func (s *Service) UpdateSaleStatus(ctx context.Context, id int64, status string) (domain.Sale, error) {
	if _, err := requirePermission(ctx, domain.PermissionEdit); err != nil {
		return domain.Sale{}, err
	}

	existing, err := s.repo.GetSale(ctx, id)
	if err != nil {
		return domain.Sale{}, err
	}

	allowed := false
	for _, next := range saleTransitions[existing.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.Sale{}, conflict(fmt.Sprintf("cannot move sale from %s to %s", existing.Status, status))
	}

	now := time.Now().UTC()
	updated := *existing
	updated.Status = status
	switch status {
	case domain.SaleStatusPacked:
		updated.PackedAt = &now
	case domain.SaleStatusShipped:
		if updated.PackedAt == nil {
			updated.PackedAt = &now
		}
		updated.ShippedAt = &now
	case domain.SaleStatusDelivered:
		if updated.PackedAt == nil {
			updated.PackedAt = &now
		}
		if updated.ShippedAt == nil {
			updated.ShippedAt = &now
		}
		updated.DeliveredAt = &now
	case domain.SaleStatusRefunded:
		updated.PaymentStatus = domain.PaymentStatusRefunded
	}
	updated.UpdatedAt = now

	saved, err := s.repo.UpdateSale(ctx, updated)
	if err != nil {
		return domain.Sale{}, err
	}
	return roundSale(*saved), nil
}

// CancelSale soft-cancels a sale. The row stays retrievable but drops out
// of every financial aggregate.
func (s *Service) CancelSale(ctx context.Context, id int64) (domain.Sale, error) {
	return s.UpdateSaleStatus(ctx, id, domain.SaleStatusCancelled)
}
