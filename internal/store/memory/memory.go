// Package memory holds an in-memory Repository used for development mode and
// tests. A single RWMutex guards every map, which makes commit-time checks
// trivially authoritative.
package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/store"
)

type Store struct {
	mu sync.RWMutex

	userSeq      int64
	categorySeq  int64
	storeSeq     int64
	productSeq   int64
	inventorySeq int64
	saleSeq      int64

	users      map[int64]domain.User
	categories map[int64]domain.Category
	stores     map[int64]domain.Store
	products   map[int64]domain.Product
	inventory  map[int64]domain.Inventory
	sales      map[int64]domain.Sale
}

func New() *Store {
	return &Store{
		users:      make(map[int64]domain.User),
		categories: make(map[int64]domain.Category),
		stores:     make(map[int64]domain.Store),
		products:   make(map[int64]domain.Product),
		inventory:  make(map[int64]domain.Inventory),
		sales:      make(map[int64]domain.Sale),
	}
}

// NewSeeded returns a store preloaded with demo data for dev mode. The admin
// password comes from SEED_ADMIN_PASSWORD with a warned-about dev default.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	adminPwd := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPwd == "" {
		adminPwd = "admin123"
		log.Println("[memory-store] WARNING: using default dev admin password. Set SEED_ADMIN_PASSWORD to override.")
	}
	adminHash, err := bcrypt.GenerateFromPassword([]byte(adminPwd), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}
	_, _ = s.CreateUser(ctx, domain.User{
		Username: "admin", PasswordHash: string(adminHash), Role: domain.RoleAdmin,
		Name: "System Administrator", Email: "admin@example.com", IsActive: true,
		CreatedAt: now, UpdatedAt: now,
	})

	grocery, _ := s.CreateCategory(ctx, domain.Category{Name: "Grocery", Icon: "shopping-basket", Color: "#2f855a", IsActive: true, SortOrder: 1, CreatedAt: now, UpdatedAt: now})
	beverage, _ := s.CreateCategory(ctx, domain.Category{Name: "Beverages", Icon: "coffee", Color: "#2b6cb0", IsActive: true, SortOrder: 2, CreatedAt: now, UpdatedAt: now})
	household, _ := s.CreateCategory(ctx, domain.Category{Name: "Household", Icon: "home", Color: "#975a16", IsActive: true, SortOrder: 3, CreatedAt: now, UpdatedAt: now})
	_, _ = s.CreateCategory(ctx, domain.Category{Name: "Cleaning", ParentID: &household.ID, IsActive: true, SortOrder: 4, CreatedAt: now, UpdatedAt: now})

	main, _ := s.CreateStore(ctx, domain.Store{Name: "Main Street", Code: "MAIN", City: "Harare", Country: "ZW", Timezone: "Africa/Harare", IsActive: true, CreatedAt: now, UpdatedAt: now})
	branch, _ := s.CreateStore(ctx, domain.Store{Name: "Westgate Branch", Code: "WEST", City: "Harare", Country: "ZW", Timezone: "Africa/Harare", IsActive: true, CreatedAt: now, UpdatedAt: now})

	seedProducts := []struct {
		name, code string
		category   int64
		cost, sell float64
		stock      int
	}{
		{"Maize Meal 10kg", "GRO-001", grocery.ID, 6.50, 9.90, 120},
		{"Cooking Oil 2L", "GRO-002", grocery.ID, 3.80, 5.75, 80},
		{"Sugar 2kg", "GRO-003", grocery.ID, 2.10, 3.25, 150},
		{"Mineral Water 500ml", "BEV-001", beverage.ID, 0.25, 0.60, 300},
		{"Ground Coffee 250g", "BEV-002", beverage.ID, 2.90, 5.40, 40},
		{"Dish Soap 750ml", "HOU-001", household.ID, 1.10, 1.95, 60},
	}
	for _, sp := range seedProducts {
		p, err := s.CreateProduct(ctx, domain.Product{
			Name: sp.name, Code: sp.code, CategoryID: sp.category,
			CostPrice: sp.cost, SellingPrice: sp.sell,
			IsActive: true, Status: domain.ProductStatusActive,
			TrackInventory: true, MinStockLevel: 10, MaxStockLevel: 500,
			CreatedAt: now, UpdatedAt: now,
		}, []domain.Inventory{
			{StoreID: main.ID, Quantity: sp.stock, MinStock: 10, LastUpdated: now},
			{StoreID: branch.ID, Quantity: sp.stock / 2, MinStock: 10, LastUpdated: now},
		})
		if err != nil {
			continue
		}
		for daysAgo := 1; daysAgo <= 5; daysAgo++ {
			saleDate := now.AddDate(0, 0, -daysAgo)
			_, _ = s.CreateSale(ctx, domain.Sale{
				OrderNumber: "ORD-SEED-" + p.Code + "-" + saleDate.Format("20060102"),
				ProductID:   p.ID, StoreID: main.ID, Quantity: 2,
				UnitCost: p.CostPrice, UnitPrice: p.SellingPrice,
				TotalPrice: p.SellingPrice * 2,
				Status:     domain.SaleStatusDelivered, PaymentStatus: domain.PaymentStatusPaid,
				SaleDate: saleDate, CreatedAt: saleDate, UpdatedAt: saleDate,
			}, true, true)
		}
	}

	return s
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func pageSlice[T any](items []T, page, perPage int) []T {
	start := (page - 1) * perPage
	if start >= len(items) {
		return []T{}
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---- users ----

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Search != "" &&
			!containsFold(u.Name, filter.Search) &&
			!containsFold(u.Username, filter.Search) &&
			!containsFold(u.Email, filter.Search) {
			continue
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })

	total := len(users)
	if filter.Page == 0 && filter.PerPage == 0 {
		return users, total, nil
	}
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	return pageSlice(users, page, perPage), total, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			copied := u
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, user.Username) {
			return nil, store.ErrConflict
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return nil, store.ErrConflict
		}
	}

	s.userSeq++
	user.ID = s.userSeq
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return nil, store.ErrConflict
		}
	}
	s.users[user.ID] = user
	return &user, nil
}

// ---- categories ----

func (s *Store) ListCategories(_ context.Context, includeInactive bool) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if !includeInactive && !c.IsActive {
			continue
		}
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].SortOrder != categories[j].SortOrder {
			return categories[i].SortOrder < categories[j].SortOrder
		}
		return categories[i].ID < categories[j].ID
	})
	return categories, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrConflict
		}
	}
	if category.SortOrder == 0 {
		max := 0
		for _, existing := range s.categories {
			if existing.SortOrder > max {
				max = existing.SortOrder
			}
		}
		category.SortOrder = max + 1
	}

	s.categorySeq++
	category.ID = s.categorySeq
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[category.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.categories {
		if id != category.ID && strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrConflict
		}
	}
	s.categories[category.ID] = category
	return &category, nil
}

// ---- stores ----

func (s *Store) ListStores(_ context.Context, includeInactive bool) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stores := make([]domain.Store, 0, len(s.stores))
	for _, st := range s.stores {
		if !includeInactive && !st.IsActive {
			continue
		}
		stores = append(stores, st)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].Name < stores[j].Name })
	return stores, nil
}

func (s *Store) GetStore(_ context.Context, id int64) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.stores[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &st, nil
}

func (s *Store) CreateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.stores {
		if strings.EqualFold(existing.Name, st.Name) || strings.EqualFold(existing.Code, st.Code) {
			return nil, store.ErrConflict
		}
	}

	s.storeSeq++
	st.ID = s.storeSeq
	s.stores[st.ID] = st
	return &st, nil
}

func (s *Store) UpdateStore(_ context.Context, st domain.Store) (*domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[st.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.stores {
		if id == st.ID {
			continue
		}
		if strings.EqualFold(existing.Name, st.Name) || strings.EqualFold(existing.Code, st.Code) {
			return nil, store.ErrConflict
		}
	}
	s.stores[st.ID] = st
	return &st, nil
}

// ---- products ----

func (s *Store) ListProducts(_ context.Context, filter store.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var storeProductIDs map[int64]bool
	if filter.StoreID != 0 {
		storeProductIDs = make(map[int64]bool)
		for _, inv := range s.inventory {
			if inv.StoreID == filter.StoreID {
				storeProductIDs[inv.ProductID] = true
			}
		}
	}

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.CategoryID != 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if storeProductIDs != nil && !storeProductIDs[p.ID] {
			continue
		}
		if filter.Search != "" &&
			!containsFold(p.Name, filter.Search) &&
			!containsFold(p.Code, filter.Search) &&
			!containsFold(p.Barcode, filter.Search) &&
			!containsFold(p.Brand, filter.Search) {
			continue
		}
		products = append(products, p)
	}

	sort.Slice(products, func(i, j int) bool {
		less := false
		switch filter.SortBy {
		case "price":
			if products[i].SellingPrice != products[j].SellingPrice {
				less = products[i].SellingPrice < products[j].SellingPrice
			} else {
				less = products[i].ID < products[j].ID
			}
		case "created":
			less = products[i].ID < products[j].ID
		default:
			if products[i].Name != products[j].Name {
				less = products[i].Name < products[j].Name
			} else {
				less = products[i].ID < products[j].ID
			}
		}
		if filter.SortDesc {
			return !less
		}
		return less
	})

	total := len(products)
	if filter.Page == 0 && filter.PerPage == 0 {
		return products, total, nil
	}
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	return pageSlice(products, page, perPage), total, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if strings.EqualFold(p.Code, code) {
			copied := p
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, initial []domain.Inventory) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if strings.EqualFold(existing.Code, product.Code) {
			return nil, store.ErrConflict
		}
		if product.Barcode != "" && existing.Barcode == product.Barcode {
			return nil, store.ErrConflict
		}
	}
	for _, inv := range initial {
		if _, ok := s.stores[inv.StoreID]; !ok {
			return nil, store.ErrNotFound
		}
	}

	s.productSeq++
	product.ID = s.productSeq
	s.products[product.ID] = product

	for _, inv := range initial {
		s.inventorySeq++
		inv.ID = s.inventorySeq
		inv.ProductID = product.ID
		s.inventory[inv.ID] = inv
	}

	return &product, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return nil, store.ErrNotFound
	}
	for id, existing := range s.products {
		if id == product.ID {
			continue
		}
		if strings.EqualFold(existing.Code, product.Code) {
			return nil, store.ErrConflict
		}
		if product.Barcode != "" && existing.Barcode == product.Barcode {
			return nil, store.ErrConflict
		}
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *Store) CountActiveProductsByCategory(_ context.Context, categoryID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.products {
		if p.CategoryID == categoryID && p.IsActive {
			count++
		}
	}
	return count, nil
}

// ---- inventory ----

func (s *Store) ListInventory(_ context.Context, filter store.InventoryFilter) ([]domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Inventory, 0)
	for _, inv := range s.inventory {
		if filter.ProductID != 0 && inv.ProductID != filter.ProductID {
			continue
		}
		if filter.StoreID != 0 && inv.StoreID != filter.StoreID {
			continue
		}
		rows = append(rows, inv)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (s *Store) GetInventory(_ context.Context, id int64) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.inventory[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &inv, nil
}

func (s *Store) GetInventoryByProductStore(_ context.Context, productID, storeID int64) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.inventory {
		if inv.ProductID == productID && inv.StoreID == storeID {
			copied := inv
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateInventory(_ context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[inv.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.stores[inv.StoreID]; !ok {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.inventory {
		if existing.ProductID == inv.ProductID && existing.StoreID == inv.StoreID {
			return nil, store.ErrConflict
		}
	}

	s.inventorySeq++
	inv.ID = s.inventorySeq
	s.inventory[inv.ID] = inv
	return &inv, nil
}

func (s *Store) UpdateInventory(_ context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inventory[inv.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.inventory[inv.ID] = inv
	return &inv, nil
}

// ---- sales ----

func (s *Store) ListSales(_ context.Context, filter store.SaleFilter) ([]domain.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if filter.ProductID != 0 && sale.ProductID != filter.ProductID {
			continue
		}
		if filter.StoreID != 0 && sale.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && sale.SaleDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && sale.SaleDate.After(filter.To) {
			continue
		}
		sales = append(sales, sale)
	}
	sort.Slice(sales, func(i, j int) bool {
		if !sales[i].SaleDate.Equal(sales[j].SaleDate) {
			return sales[i].SaleDate.After(sales[j].SaleDate)
		}
		return sales[i].ID > sales[j].ID
	})

	total := len(sales)
	if filter.Page == 0 && filter.PerPage == 0 {
		return sales, total, nil
	}
	page, perPage := normalizePage(filter.Page, filter.PerPage)
	return pageSlice(sales, page, perPage), total, nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sale, nil
}

func (s *Store) GetSaleByOrderNumber(_ context.Context, orderNumber string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sale := range s.sales {
		if sale.OrderNumber == orderNumber {
			copied := sale
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale, decrement bool, allowNegative bool) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sales {
		if existing.OrderNumber == sale.OrderNumber {
			return nil, store.ErrConflict
		}
	}
	if _, ok := s.products[sale.ProductID]; !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.stores[sale.StoreID]; !ok {
		return nil, store.ErrNotFound
	}

	if decrement {
		var row *domain.Inventory
		for id := range s.inventory {
			inv := s.inventory[id]
			if inv.ProductID == sale.ProductID && inv.StoreID == sale.StoreID {
				row = &inv
				break
			}
		}
		if row == nil {
			if !allowNegative {
				return nil, store.ErrInsufficientStock
			}
			s.inventorySeq++
			s.inventory[s.inventorySeq] = domain.Inventory{
				ID: s.inventorySeq, ProductID: sale.ProductID, StoreID: sale.StoreID,
				Quantity: -sale.Quantity, LastUpdated: sale.SaleDate,
			}
		} else {
			remaining := row.Quantity - sale.Quantity
			if remaining < 0 && !allowNegative {
				return nil, store.ErrInsufficientStock
			}
			row.Quantity = remaining
			row.LastUpdated = sale.CreatedAt
			s.inventory[row.ID] = *row
		}
	}

	s.saleSeq++
	sale.ID = s.saleSeq
	s.sales[sale.ID] = sale
	return &sale, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[sale.ID]; !ok {
		return nil, store.ErrNotFound
	}
	s.sales[sale.ID] = sale
	return &sale, nil
}
