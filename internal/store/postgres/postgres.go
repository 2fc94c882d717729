package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon TEXT NOT NULL DEFAULT '',
			color TEXT NOT NULL DEFAULT '',
			parent_id BIGINT REFERENCES categories(id),
			is_active BOOLEAN NOT NULL DEFAULT true,
			sort_order INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS categories_name_key ON categories (lower(name))`,
		`CREATE TABLE IF NOT EXISTS stores (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			city TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			postal_code TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			manager_name TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT true,
			opening_date TIMESTAMPTZ,
			square_footage INT,
			customer_rating DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stores_name_key ON stores (lower(name))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stores_code_key ON stores (lower(code))`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			store_id BIGINT REFERENCES stores(id),
			is_active BOOLEAN NOT NULL DEFAULT true,
			last_login TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (lower(username))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email))`,
		`CREATE TABLE IF NOT EXISTS products (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			code TEXT NOT NULL,
			barcode TEXT,
			description TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			category_id BIGINT NOT NULL REFERENCES categories(id),
			cost_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			selling_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true,
			status TEXT NOT NULL DEFAULT 'active',
			track_inventory BOOLEAN NOT NULL DEFAULT true,
			allow_backorder BOOLEAN NOT NULL DEFAULT false,
			min_stock_level INT NOT NULL DEFAULT 0,
			max_stock_level INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_code_key ON products (lower(code))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS products_barcode_key ON products (barcode) WHERE barcode IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS products_category_idx ON products (category_id)`,
		`CREATE TABLE IF NOT EXISTS inventory (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			store_id BIGINT NOT NULL REFERENCES stores(id),
			quantity INT NOT NULL DEFAULT 0,
			min_stock INT NOT NULL DEFAULT 0,
			last_updated TIMESTAMPTZ NOT NULL,
			UNIQUE (product_id, store_id)
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id BIGSERIAL PRIMARY KEY,
			order_number TEXT NOT NULL UNIQUE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			store_id BIGINT NOT NULL REFERENCES stores(id),
			quantity INT NOT NULL,
			unit_cost DOUBLE PRECISION NOT NULL,
			unit_price DOUBLE PRECISION NOT NULL,
			discount_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			tax_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
			total_price DOUBLE PRECISION NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			payment_status TEXT NOT NULL,
			packed_at TIMESTAMPTZ,
			shipped_at TIMESTAMPTZ,
			delivered_at TIMESTAMPTZ,
			sold_by_user_id BIGINT REFERENCES users(id),
			notes TEXT NOT NULL DEFAULT '',
			sale_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sales_date_idx ON sales (sale_date)`,
		`CREATE INDEX IF NOT EXISTS sales_store_idx ON sales (store_id)`,
		`CREATE INDEX IF NOT EXISTS sales_product_idx ON sales (product_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const userColumns = `id, username, password_hash, role, name, email, phone, store_id, is_active, last_login, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Name, &u.Email, &u.Phone, &u.StoreID, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, filter store.UserFilter) ([]domain.User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR username ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC, id DESC`, userColumns, cond)
	if filter.Page != 0 || filter.PerPage != 0 {
		page, perPage := normalizePage(filter.Page, filter.PerPage)
		args = append(args, perPage, (page-1)*perPage)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 32)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, role, name, email, phone, store_id, is_active, last_login, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, user.Username, user.PasswordHash, user.Role, user.Name, user.Email, user.Phone, user.StoreID, user.IsActive, user.LastLogin, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username=$2, password_hash=$3, role=$4, name=$5, email=$6, phone=$7, store_id=$8, is_active=$9, last_login=$10, updated_at=$11
		WHERE id = $1
	`, user.ID, user.Username, user.PasswordHash, user.Role, user.Name, user.Email, user.Phone, user.StoreID, user.IsActive, user.LastLogin, user.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &user, requireAffected(res)
}

const categoryColumns = `id, name, description, icon, color, parent_id, is_active, sort_order, created_at, updated_at`

func scanCategory(row interface{ Scan(...any) error }) (*domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.ParentID, &c.IsActive, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context, includeInactive bool) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, 32)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id)
	return scanCategory(row)
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if category.SortOrder == 0 {
		// max+1 keeps new categories at the end of the display order.
		_ = s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(sort_order),0)+1 FROM categories`).Scan(&category.SortOrder)
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO categories (name, description, icon, color, parent_id, is_active, sort_order, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, category.Name, category.Description, category.Icon, category.Color, category.ParentID, category.IsActive, category.SortOrder, category.CreatedAt, category.UpdatedAt).Scan(&category.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET name=$2, description=$3, icon=$4, color=$5, parent_id=$6, is_active=$7, sort_order=$8, updated_at=$9
		WHERE id = $1
	`, category.ID, category.Name, category.Description, category.Icon, category.Color, category.ParentID, category.IsActive, category.SortOrder, category.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &category, requireAffected(res)
}

const storeColumns = `id, name, code, address, city, state, postal_code, country, phone, email, manager_name, timezone, is_active, opening_date, square_footage, customer_rating, created_at, updated_at`

func scanStore(row interface{ Scan(...any) error }) (*domain.Store, error) {
	var st domain.Store
	err := row.Scan(&st.ID, &st.Name, &st.Code, &st.Address, &st.City, &st.State, &st.PostalCode, &st.Country, &st.Phone, &st.Email, &st.ManagerName, &st.Timezone, &st.IsActive, &st.OpeningDate, &st.SquareFootage, &st.CustomerRating, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (s *Store) ListStores(ctx context.Context, includeInactive bool) ([]domain.Store, error) {
	query := `SELECT ` + storeColumns + ` FROM stores`
	if !includeInactive {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stores := make([]domain.Store, 0, 16)
	for rows.Next() {
		st, err := scanStore(rows)
		if err != nil {
			return nil, err
		}
		stores = append(stores, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

func (s *Store) GetStore(ctx context.Context, id int64) (*domain.Store, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	return scanStore(row)
}

func (s *Store) CreateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO stores (name, code, address, city, state, postal_code, country, phone, email, manager_name, timezone, is_active, opening_date, square_footage, customer_rating, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id
	`, st.Name, st.Code, st.Address, st.City, st.State, st.PostalCode, st.Country, st.Phone, st.Email, st.ManagerName, st.Timezone, st.IsActive, st.OpeningDate, st.SquareFootage, st.CustomerRating, st.CreatedAt, st.UpdatedAt).Scan(&st.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &st, nil
}

func (s *Store) UpdateStore(ctx context.Context, st domain.Store) (*domain.Store, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE stores
		SET name=$2, code=$3, address=$4, city=$5, state=$6, postal_code=$7, country=$8, phone=$9, email=$10, manager_name=$11, timezone=$12, is_active=$13, opening_date=$14, square_footage=$15, customer_rating=$16, updated_at=$17
		WHERE id = $1
	`, st.ID, st.Name, st.Code, st.Address, st.City, st.State, st.PostalCode, st.Country, st.Phone, st.Email, st.ManagerName, st.Timezone, st.IsActive, st.OpeningDate, st.SquareFootage, st.CustomerRating, st.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &st, requireAffected(res)
}

const productColumns = `id, name, code, COALESCE(barcode,''), description, brand, category_id, cost_price, selling_price, is_active, status, track_inventory, allow_backorder, min_stock_level, max_stock_level, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Code, &p.Barcode, &p.Description, &p.Brand, &p.CategoryID, &p.CostPrice, &p.SellingPrice, &p.IsActive, &p.Status, &p.TrackInventory, &p.AllowBackorder, &p.MinStockLevel, &p.MaxStockLevel, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]domain.Product, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if !filter.IncludeInactive {
		where = append(where, "is_active = true")
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		where = append(where, fmt.Sprintf("id IN (SELECT product_id FROM inventory WHERE store_id = $%d)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR code ILIKE $%d OR COALESCE(barcode,'') ILIKE $%d OR brand ILIKE $%d)", len(args), len(args), len(args), len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "name, id"
	switch filter.SortBy {
	case "price":
		order = "selling_price, id"
	case "created":
		order = "created_at, id"
	}
	if filter.SortDesc {
		parts := strings.Split(order, ", ")
		for i := range parts {
			parts[i] += " DESC"
		}
		order = strings.Join(parts, ", ")
	}

	query := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s`, productColumns, cond, order)
	if filter.Page != 0 || filter.PerPage != 0 {
		page, perPage := normalizePage(filter.Page, filter.PerPage)
		args = append(args, perPage, (page-1)*perPage)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (s *Store) GetProductByCode(ctx context.Context, code string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE lower(code) = lower($1)`, code)
	return scanProduct(row)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product, initial []domain.Inventory) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (name, code, barcode, description, brand, category_id, cost_price, selling_price, is_active, status, track_inventory, allow_backorder, min_stock_level, max_stock_level, created_at, updated_at)
		VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id
	`, product.Name, product.Code, product.Barcode, product.Description, product.Brand, product.CategoryID, product.CostPrice, product.SellingPrice, product.IsActive, product.Status, product.TrackInventory, product.AllowBackorder, product.MinStockLevel, product.MaxStockLevel, product.CreatedAt, product.UpdatedAt).Scan(&product.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	for _, inv := range initial {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO inventory (product_id, store_id, quantity, min_stock, last_updated)
			VALUES ($1,$2,$3,$4,$5)
		`, product.ID, inv.StoreID, inv.Quantity, inv.MinStock, inv.LastUpdated)
		if err != nil {
			return nil, mapConstraintError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapConstraintError(err)
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name=$2, code=$3, barcode=NULLIF($4,''), description=$5, brand=$6, category_id=$7, cost_price=$8, selling_price=$9, is_active=$10, status=$11, track_inventory=$12, allow_backorder=$13, min_stock_level=$14, max_stock_level=$15, updated_at=$16
		WHERE id = $1
	`, product.ID, product.Name, product.Code, product.Barcode, product.Description, product.Brand, product.CategoryID, product.CostPrice, product.SellingPrice, product.IsActive, product.Status, product.TrackInventory, product.AllowBackorder, product.MinStockLevel, product.MaxStockLevel, product.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &product, requireAffected(res)
}

func (s *Store) CountActiveProductsByCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM products WHERE category_id = $1 AND is_active = true
	`, categoryID).Scan(&count)
	return count, err
}

const inventoryColumns = `id, product_id, store_id, quantity, min_stock, last_updated`

func scanInventory(row interface{ Scan(...any) error }) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(&inv.ID, &inv.ProductID, &inv.StoreID, &inv.Quantity, &inv.MinStock, &inv.LastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) ListInventory(ctx context.Context, filter store.InventoryFilter) ([]domain.Inventory, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE `+strings.Join(where, " AND ")+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Inventory, 0, 64)
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetInventory(ctx context.Context, id int64) (*domain.Inventory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE id = $1`, id)
	return scanInventory(row)
}

func (s *Store) GetInventoryByProductStore(ctx context.Context, productID, storeID int64) (*domain.Inventory, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+inventoryColumns+` FROM inventory WHERE product_id = $1 AND store_id = $2`, productID, storeID)
	return scanInventory(row)
}

func (s *Store) CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventory (product_id, store_id, quantity, min_stock, last_updated)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id
	`, inv.ProductID, inv.StoreID, inv.Quantity, inv.MinStock, inv.LastUpdated).Scan(&inv.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &inv, nil
}

func (s *Store) UpdateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inventory
		SET quantity=$2, min_stock=$3, last_updated=$4
		WHERE id = $1
	`, inv.ID, inv.Quantity, inv.MinStock, inv.LastUpdated)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &inv, requireAffected(res)
}

const saleColumns = `id, order_number, product_id, store_id, quantity, unit_cost, unit_price, discount_amount, tax_amount, total_price, customer_name, customer_email, customer_phone, status, payment_method, payment_status, packed_at, shipped_at, delivered_at, sold_by_user_id, notes, sale_date, created_at, updated_at`

func scanSale(row interface{ Scan(...any) error }) (*domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.OrderNumber, &sale.ProductID, &sale.StoreID, &sale.Quantity, &sale.UnitCost, &sale.UnitPrice, &sale.DiscountAmount, &sale.TaxAmount, &sale.TotalPrice, &sale.CustomerName, &sale.CustomerEmail, &sale.CustomerPhone, &sale.Status, &sale.PaymentMethod, &sale.PaymentStatus, &sale.PackedAt, &sale.ShippedAt, &sale.DeliveredAt, &sale.SoldByUserID, &sale.Notes, &sale.SaleDate, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]domain.Sale, int, error) {
	where := []string{"1=1"}
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		where = append(where, fmt.Sprintf("store_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where = append(where, fmt.Sprintf("sale_date >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where = append(where, fmt.Sprintf("sale_date <= $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM sales WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + saleColumns + ` FROM sales WHERE ` + cond + ` ORDER BY sale_date DESC, id DESC`
	if filter.Page != 0 || filter.PerPage != 0 {
		page, perPage := normalizePage(filter.Page, filter.PerPage)
		args = append(args, perPage, (page-1)*perPage)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, 64)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

func (s *Store) GetSale(ctx context.Context, id int64) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	return scanSale(row)
}

func (s *Store) GetSaleByOrderNumber(ctx context.Context, orderNumber string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE order_number = $1`, orderNumber)
	return scanSale(row)
}

// CreateSale inserts the sale row and the optional stock decrement in one
// transaction. The guarded UPDATE makes the no-negative rule hold under
// concurrent sales: the row version checked is the one being committed.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale, decrement bool, allowNegative bool) (*domain.Sale, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if decrement {
		query := `UPDATE inventory SET quantity = quantity - $3, last_updated = $4 WHERE product_id = $1 AND store_id = $2`
		if !allowNegative {
			query += ` AND quantity >= $3`
		}
		res, err := tx.ExecContext(ctx, query, sale.ProductID, sale.StoreID, sale.Quantity, sale.CreatedAt)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			if !allowNegative {
				return nil, store.ErrInsufficientStock
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO inventory (product_id, store_id, quantity, min_stock, last_updated)
				VALUES ($1,$2,$3,0,$4)
			`, sale.ProductID, sale.StoreID, -sale.Quantity, sale.CreatedAt)
			if err != nil {
				return nil, mapConstraintError(err)
			}
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO sales (order_number, product_id, store_id, quantity, unit_cost, unit_price, discount_amount, tax_amount, total_price, customer_name, customer_email, customer_phone, status, payment_method, payment_status, packed_at, shipped_at, delivered_at, sold_by_user_id, notes, sale_date, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING id
	`, sale.OrderNumber, sale.ProductID, sale.StoreID, sale.Quantity, sale.UnitCost, sale.UnitPrice, sale.DiscountAmount, sale.TaxAmount, sale.TotalPrice, sale.CustomerName, sale.CustomerEmail, sale.CustomerPhone, sale.Status, sale.PaymentMethod, sale.PaymentStatus, sale.PackedAt, sale.ShippedAt, sale.DeliveredAt, sale.SoldByUserID, sale.Notes, sale.SaleDate, sale.CreatedAt, sale.UpdatedAt).Scan(&sale.ID)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapConstraintError(err)
	}
	return &sale, nil
}

func (s *Store) UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET status=$2, payment_status=$3, packed_at=$4, shipped_at=$5, delivered_at=$6, notes=$7, updated_at=$8
		WHERE id = $1
	`, sale.ID, sale.Status, sale.PaymentStatus, sale.PackedAt, sale.ShippedAt, sale.DeliveredAt, sale.Notes, sale.UpdatedAt)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return &sale, requireAffected(res)
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

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// mapConstraintError translates postgres constraint violations to the
// repository's sentinel errors: unique violations are conflicts, foreign key
// violations mean the referenced row does not exist.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return store.ErrConflict
		case "23503":
			return store.ErrNotFound
		}
	}
	return err
}
