package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Matongos/inventory/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	// ErrInsufficientStock is a conflict: the decrement raced with or
	// exceeded the available quantity at commit time.
	ErrInsufficientStock = fmt.Errorf("%w: insufficient stock", ErrConflict)
)

type UserFilter struct {
	Role   string
	Search string
	Page   int
	PerPage int
}

type ProductFilter struct {
	Search          string
	CategoryID      int64
	StoreID         int64
	Status          string
	IncludeInactive bool
	SortBy          string
	SortDesc        bool
	Page            int
	PerPage         int
}

type SaleFilter struct {
	ProductID int64
	StoreID   int64
	Status    string
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}

type InventoryFilter struct {
	ProductID int64
	StoreID   int64
}

// Repository is the persistence contract shared by the postgres and
// in-memory implementations. Pre-checks in the service layer are advisory;
// the repository is the authoritative guard for uniqueness and stock, and
// reports violations detected at commit time as ErrConflict.
type Repository interface {
	ListUsers(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)

	ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	ListStores(ctx context.Context, includeInactive bool) ([]domain.Store, error)
	GetStore(ctx context.Context, id int64) (*domain.Store, error)
	CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error)
	UpdateStore(ctx context.Context, st domain.Store) (*domain.Store, error)

	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	// CreateProduct inserts the product and any initial inventory rows in
	// one transaction; the rows' ProductID is filled from the new product.
	CreateProduct(ctx context.Context, product domain.Product, initial []domain.Inventory) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	CountActiveProductsByCategory(ctx context.Context, categoryID int64) (int, error)

	ListInventory(ctx context.Context, filter InventoryFilter) ([]domain.Inventory, error)
	GetInventory(ctx context.Context, id int64) (*domain.Inventory, error)
	GetInventoryByProductStore(ctx context.Context, productID, storeID int64) (*domain.Inventory, error)
	CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error)
	UpdateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error)

	ListSales(ctx context.Context, filter SaleFilter) ([]domain.Sale, int, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	GetSaleByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error)
	// CreateSale inserts the sale and, when decrement is set, atomically
	// reduces the matching inventory row. A decrement that would drive the
	// quantity negative fails with ErrInsufficientStock unless allowNegative.
	CreateSale(ctx context.Context, sale domain.Sale, decrement bool, allowNegative bool) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
}
