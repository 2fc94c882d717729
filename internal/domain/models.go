package domain

import "time"

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone,omitempty"`
	StoreID      *int64     `json:"store_id,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	StoreID  *int64 `json:"store_id,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
}

type UserUpdateRequest struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
	StoreID  *int64  `json:"store_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Color       string    `json:"color,omitempty"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	IsActive    bool      `json:"is_active"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`
	ParentID    *int64 `json:"parent_id,omitempty"`
	SortOrder   *int   `json:"sort_order,omitempty"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	Color       *string `json:"color,omitempty"`
	ParentID    *int64  `json:"parent_id,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
	SortOrder   *int    `json:"sort_order,omitempty"`
}

type Store struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Code           string     `json:"code"`
	Address        string     `json:"address,omitempty"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	PostalCode     string     `json:"postal_code,omitempty"`
	Country        string     `json:"country,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Email          string     `json:"email,omitempty"`
	ManagerName    string     `json:"manager_name,omitempty"`
	Timezone       string     `json:"timezone,omitempty"`
	IsActive       bool       `json:"is_active"`
	OpeningDate    *time.Time `json:"opening_date,omitempty"`
	SquareFootage  *int       `json:"square_footage,omitempty"`
	CustomerRating float64    `json:"customer_rating"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type StoreCreateRequest struct {
	Name          string  `json:"name"`
	Code          string  `json:"code"`
	Address       string  `json:"address,omitempty"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	PostalCode    string  `json:"postal_code,omitempty"`
	Country       string  `json:"country,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	Email         string  `json:"email,omitempty"`
	ManagerName   string  `json:"manager_name,omitempty"`
	Timezone      string  `json:"timezone,omitempty"`
	OpeningDate   *string `json:"opening_date,omitempty"`
	SquareFootage *int    `json:"square_footage,omitempty"`
}

type StoreUpdateRequest struct {
	Name           *string  `json:"name,omitempty"`
	Code           *string  `json:"code,omitempty"`
	Address        *string  `json:"address,omitempty"`
	City           *string  `json:"city,omitempty"`
	State          *string  `json:"state,omitempty"`
	PostalCode     *string  `json:"postal_code,omitempty"`
	Country        *string  `json:"country,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Email          *string  `json:"email,omitempty"`
	ManagerName    *string  `json:"manager_name,omitempty"`
	Timezone       *string  `json:"timezone,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
	SquareFootage  *int     `json:"square_footage,omitempty"`
	CustomerRating *float64 `json:"customer_rating,omitempty"`
}

type Product struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Code           string    `json:"code"`
	Barcode        string    `json:"barcode,omitempty"`
	Description    string    `json:"description,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	CategoryID     int64     `json:"category_id"`
	CostPrice      float64   `json:"cost_price"`
	SellingPrice   float64   `json:"selling_price"`
	IsActive       bool      `json:"is_active"`
	Status         string    `json:"status"`
	TrackInventory bool      `json:"track_inventory"`
	AllowBackorder bool      `json:"allow_backorder"`
	MinStockLevel  int       `json:"min_stock_level"`
	MaxStockLevel  int       `json:"max_stock_level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ProductCreateRequest struct {
	Name           string  `json:"name"`
	Code           string  `json:"code"`
	Barcode        string  `json:"barcode,omitempty"`
	Description    string  `json:"description,omitempty"`
	Brand          string  `json:"brand,omitempty"`
	CategoryID     int64   `json:"category_id"`
	CostPrice      float64 `json:"cost_price"`
	SellingPrice   float64 `json:"selling_price"`
	Status         string  `json:"status,omitempty"`
	TrackInventory *bool   `json:"track_inventory,omitempty"`
	AllowBackorder *bool   `json:"allow_backorder,omitempty"`
	MinStockLevel  *int    `json:"min_stock_level,omitempty"`
	MaxStockLevel  *int    `json:"max_stock_level,omitempty"`
	InitialStock   *int    `json:"initial_stock,omitempty"`
}

type ProductUpdateRequest struct {
	Name           *string  `json:"name,omitempty"`
	Code           *string  `json:"code,omitempty"`
	Barcode        *string  `json:"barcode,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Brand          *string  `json:"brand,omitempty"`
	CategoryID     *int64   `json:"category_id,omitempty"`
	CostPrice      *float64 `json:"cost_price,omitempty"`
	SellingPrice   *float64 `json:"selling_price,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
	Status         *string  `json:"status,omitempty"`
	TrackInventory *bool    `json:"track_inventory,omitempty"`
	AllowBackorder *bool    `json:"allow_backorder,omitempty"`
	MinStockLevel  *int     `json:"min_stock_level,omitempty"`
	MaxStockLevel  *int     `json:"max_stock_level,omitempty"`
}

type Inventory struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	StoreID     int64     `json:"store_id"`
	Quantity    int       `json:"quantity"`
	MinStock    int       `json:"min_stock"`
	LastUpdated time.Time `json:"last_updated"`
}

type InventoryCreateRequest struct {
	ProductID int64 `json:"product_id"`
	StoreID   int64 `json:"store_id"`
	Quantity  int   `json:"quantity"`
	MinStock  *int  `json:"min_stock,omitempty"`
}

type InventorySetRequest struct {
	Quantity *int `json:"quantity,omitempty"`
	Delta    *int `json:"delta,omitempty"`
	MinStock *int `json:"min_stock,omitempty"`
}

type Sale struct {
	ID             int64      `json:"id"`
	OrderNumber    string     `json:"order_number"`
	ProductID      int64      `json:"product_id"`
	StoreID        int64      `json:"store_id"`
	Quantity       int        `json:"quantity"`
	UnitCost       float64    `json:"unit_cost"`
	UnitPrice      float64    `json:"unit_price"`
	DiscountAmount float64    `json:"discount_amount"`
	TaxAmount      float64    `json:"tax_amount"`
	TotalPrice     float64    `json:"total_price"`
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerEmail  string     `json:"customer_email,omitempty"`
	CustomerPhone  string     `json:"customer_phone,omitempty"`
	Status         string     `json:"status"`
	PaymentMethod  string     `json:"payment_method,omitempty"`
	PaymentStatus  string     `json:"payment_status"`
	PackedAt       *time.Time `json:"packed_at,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	SoldByUserID   *int64     `json:"sold_by_user_id,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	SaleDate       time.Time  `json:"sale_date"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type SaleCreateRequest struct {
	ProductID      int64   `json:"product_id"`
	StoreID        int64   `json:"store_id"`
	Quantity       int     `json:"quantity"`
	DiscountAmount float64 `json:"discount_amount,omitempty"`
	TaxAmount      float64 `json:"tax_amount,omitempty"`
	CustomerName   string  `json:"customer_name,omitempty"`
	CustomerEmail  string  `json:"customer_email,omitempty"`
	CustomerPhone  string  `json:"customer_phone,omitempty"`
	PaymentMethod  string  `json:"payment_method,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	SaleDate       *string `json:"sale_date,omitempty"`
}

type SaleStatusUpdateRequest struct {
	Status string `json:"status"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

// Actor identifies the authenticated caller carried through request contexts.
type Actor struct {
	UserID   int64
	Username string
	Role     string
}

type Pagination struct {
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// ProductWithMetrics is a product enriched with the derived stock and margin
// figures. The derived fields are computed at read time, never stored.
type ProductWithMetrics struct {
	Product
	TotalStock   int     `json:"total_stock"`
	IsLowStock   bool    `json:"is_low_stock"`
	IsOutOfStock bool    `json:"is_out_of_stock"`
	ProfitMargin float64 `json:"profit_margin"`
}

type InventoryWithStatus struct {
	Inventory
	IsLowStock bool `json:"is_low_stock"`
}

// ProductDetail is the single-product view: metrics plus per-store inventory
// and the most recent sales.
type ProductDetail struct {
	ProductWithMetrics
	Inventory   []InventoryWithStatus `json:"inventory"`
	RecentSales []Sale                `json:"recent_sales"`
}

// Rollup carries the per-category or per-store aggregate block. The 30-day
// window figures cover confirmed-or-later sales, cancelled excluded.
type Rollup struct {
	ProductCount    int     `json:"product_count"`
	TotalStock      int     `json:"total_stock"`
	LowStockCount   int     `json:"low_stock_count"`
	OutOfStockCount int     `json:"out_of_stock_count"`
	SalesCount30d   int     `json:"sales_count_30d"`
	Revenue30d      float64 `json:"revenue_30d"`
}

type CategoryWithStats struct {
	Category
	Rollup
}

type StoreWithStats struct {
	Store
	Rollup
}

type FinancialSummary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalCost         float64 `json:"total_cost"`
	GrossProfit       float64 `json:"gross_profit"`
	ProfitMargin      float64 `json:"profit_margin"`
	TotalOrders       int     `json:"total_orders"`
	TotalItemsSold    int     `json:"total_items_sold"`
	AverageOrderValue float64 `json:"average_order_value"`
}

type PeriodComparison struct {
	Current       FinancialSummary `json:"current"`
	Previous      FinancialSummary `json:"previous"`
	RevenueGrowth float64          `json:"revenue_growth"`
	ProfitGrowth  float64          `json:"profit_growth"`
	OrdersGrowth  float64          `json:"orders_growth"`
}

type BreakdownRow struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
	Orders    int     `json:"orders"`
	UnitsSold int     `json:"units_sold"`
}

type DailyPoint struct {
	Date      string  `json:"date"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
	Orders    int     `json:"orders"`
	UnitsSold int     `json:"units_sold"`
}

type DashboardOverview struct {
	TotalProducts   int     `json:"total_products"`
	TotalCategories int     `json:"total_categories"`
	TotalStores     int     `json:"total_stores"`
	TotalUsers      int     `json:"total_users"`
	RevenueToday    float64 `json:"revenue_today"`
	RevenueYesterday float64 `json:"revenue_yesterday"`
	Revenue30d      float64 `json:"revenue_30d"`
	SalesGrowth     float64 `json:"sales_growth"`
	OrdersToday     int     `json:"orders_today"`
	Orders7d        int     `json:"orders_7d"`
	InventoryUnits  int     `json:"inventory_units"`
	LowStockItems   int     `json:"low_stock_items"`
	OutOfStockItems int     `json:"out_of_stock_items"`
}

type InventoryStats struct {
	TotalUnits      int     `json:"total_units"`
	TotalValue      float64 `json:"total_value"`
	TrackedProducts int     `json:"tracked_products"`
	LowStockItems   int     `json:"low_stock_items"`
	OutOfStockItems int     `json:"out_of_stock_items"`
}

// FinanceOverview is the rolled-up summary block: today, the current month
// and the current year, each summarized independently.
type FinanceOverview struct {
	Today     FinancialSummary `json:"today"`
	ThisMonth FinancialSummary `json:"this_month"`
	ThisYear  FinancialSummary `json:"this_year"`
}

// Backup is the full JSON snapshot served by the settings backup endpoint.
// Password hashes are never included; sales cover the last three months.
type Backup struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Users       []User      `json:"users"`
	Categories  []Category  `json:"categories"`
	Stores      []Store     `json:"stores"`
	Products    []Product   `json:"products"`
	Inventory   []Inventory `json:"inventory"`
	Sales       []Sale      `json:"sales"`
}

const (
	SaleStatusConfirmed = "confirmed"
	SaleStatusPacked    = "packed"
	SaleStatusShipped   = "shipped"
	SaleStatusDelivered = "delivered"
	SaleStatusRefunded  = "refunded"
	SaleStatusCancelled = "cancelled"
)

const (
	PaymentStatusPaid     = "paid"
	PaymentStatusPending  = "pending"
	PaymentStatusRefunded = "refunded"
)

const (
	ProductStatusActive       = "active"
	ProductStatusInactive     = "inactive"
	ProductStatusDiscontinued = "discontinued"
	ProductStatusSeasonal     = "seasonal"
)
