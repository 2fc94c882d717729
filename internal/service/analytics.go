package service

import (
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/metrics"
	"github.com/Matongos/inventory/internal/store"
)

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayEnd(t time.Time) time.Time {
	return dayStart(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// parseRange resolves an optional from/to pair of "2006-01-02" dates to a
// day-granular inclusive window. Empty inputs default to the last 30 days.
func parseRange(fromRaw, toRaw string) (time.Time, time.Time, error) {
	to := dayStart(time.Now().UTC())
	from := to.AddDate(0, 0, -29)

	if toRaw != "" {
		parsed, err := parseDate(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = dayStart(parsed)
	}
	if fromRaw != "" {
		parsed, err := parseDate(fromRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = dayStart(parsed)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, invalid("from date is after to date")
	}
	return from, to, nil
}

func (s *Service) salesBetween(ctx context.Context, from, to time.Time, storeID int64) ([]domain.Sale, error) {
	sales, _, err := s.repo.ListSales(ctx, store.SaleFilter{From: from, To: to, StoreID: storeID})
	return sales, err
}

func (s *Service) productNames(ctx context.Context) (map[int64]string, error) {
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names, nil
}

func (s *Service) categoryNames(ctx context.Context) (map[int64]string, error) {
	categories, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names, nil
}

func (s *Service) storeNames(ctx context.Context) (map[int64]string, error) {
	stores, err := s.repo.ListStores(ctx, true)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(stores))
	for _, st := range stores {
		names[st.ID] = st.Name
	}
	return names, nil
}

// ---- rollups ----

// categoryRollups aggregates per category: stock figures come from the
// product's combined inventory, the 30-day sales block from the window.
func categoryRollups(products []domain.Product, inventory []domain.Inventory, sales []domain.Sale) map[int64]*domain.Rollup {
	byProduct := make(map[int64][]domain.Inventory)
	for _, inv := range inventory {
		byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
	}
	productCategory := make(map[int64]int64, len(products))

	rollups := make(map[int64]*domain.Rollup)
	get := func(id int64) *domain.Rollup {
		r, ok := rollups[id]
		if !ok {
			r = &domain.Rollup{}
			rollups[id] = r
		}
		return r
	}

	for _, p := range products {
		productCategory[p.ID] = p.CategoryID
		r := get(p.CategoryID)
		r.ProductCount++
		total := metrics.TotalStock(byProduct[p.ID])
		r.TotalStock += total
		if metrics.IsOutOfStock(total) {
			r.OutOfStockCount++
		} else if metrics.IsLowStock(total, p.MinStockLevel) {
			r.LowStockCount++
		}
	}
	for _, sale := range sales {
		if !metrics.Counted(sale) {
			continue
		}
		categoryID, ok := productCategory[sale.ProductID]
		if !ok {
			continue
		}
		r := get(categoryID)
		r.SalesCount30d++
		r.Revenue30d += sale.TotalPrice
	}
	for _, r := range rollups {
		r.Revenue30d = metrics.Round2(r.Revenue30d)
	}
	return rollups
}

// storeRollups aggregates per store over its own inventory rows and sales.
func storeRollups(inventory []domain.Inventory, sales []domain.Sale) map[int64]*domain.Rollup {
	rollups := make(map[int64]*domain.Rollup)
	get := func(id int64) *domain.Rollup {
		r, ok := rollups[id]
		if !ok {
			r = &domain.Rollup{}
			rollups[id] = r
		}
		return r
	}

	for _, inv := range inventory {
		r := get(inv.StoreID)
		r.ProductCount++
		if inv.Quantity > 0 {
			r.TotalStock += inv.Quantity
		}
		if inv.Quantity <= 0 {
			r.OutOfStockCount++
		} else if inv.Quantity <= inv.MinStock {
			r.LowStockCount++
		}
	}
	for _, sale := range sales {
		if !metrics.Counted(sale) {
			continue
		}
		r := get(sale.StoreID)
		r.SalesCount30d++
		r.Revenue30d += sale.TotalPrice
	}
	for _, r := range rollups {
		r.Revenue30d = metrics.Round2(r.Revenue30d)
	}
	return rollups
}

func (s *Service) last30DaySales(ctx context.Context) ([]domain.Sale, error) {
	now := time.Now().UTC()
	return s.salesBetween(ctx, now.AddDate(0, 0, -30), now, 0)
}

// ---- categories with stats ----

func (s *Service) ListCategories(ctx context.Context, includeInactive bool) ([]domain.CategoryWithStats, error) {
	categories, err := s.repo.ListCategories(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return nil, err
	}
	sales, err := s.last30DaySales(ctx)
	if err != nil {
		return nil, err
	}

	rollups := categoryRollups(products, inventory, sales)
	out := make([]domain.CategoryWithStats, 0, len(categories))
	for _, c := range categories {
		stats := domain.CategoryWithStats{Category: c}
		if r, ok := rollups[c.ID]; ok {
			stats.Rollup = *r
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (domain.CategoryWithStats, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.CategoryWithStats{}, err
	}
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{CategoryID: id})
	if err != nil {
		return domain.CategoryWithStats{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return domain.CategoryWithStats{}, err
	}
	sales, err := s.last30DaySales(ctx)
	if err != nil {
		return domain.CategoryWithStats{}, err
	}

	stats := domain.CategoryWithStats{Category: *category}
	if r, ok := categoryRollups(products, inventory, sales)[id]; ok {
		stats.Rollup = *r
	}
	return stats, nil
}

// ---- stores with stats ----

func (s *Service) ListStores(ctx context.Context, includeInactive bool) ([]domain.StoreWithStats, error) {
	stores, err := s.repo.ListStores(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return nil, err
	}
	sales, err := s.last30DaySales(ctx)
	if err != nil {
		return nil, err
	}

	rollups := storeRollups(inventory, sales)
	out := make([]domain.StoreWithStats, 0, len(stores))
	for _, st := range stores {
		stats := domain.StoreWithStats{Store: st}
		if r, ok := rollups[st.ID]; ok {
			stats.Rollup = *r
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *Service) GetStore(ctx context.Context, id int64) (domain.StoreWithStats, error) {
	st, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return domain.StoreWithStats{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{StoreID: id})
	if err != nil {
		return domain.StoreWithStats{}, err
	}
	now := time.Now().UTC()
	sales, err := s.salesBetween(ctx, now.AddDate(0, 0, -30), now, id)
	if err != nil {
		return domain.StoreWithStats{}, err
	}

	stats := domain.StoreWithStats{Store: *st}
	if r, ok := storeRollups(inventory, sales)[id]; ok {
		stats.Rollup = *r
	}
	return stats, nil
}

// ---- dashboard ----

func (s *Service) DashboardOverview(ctx context.Context) (domain.DashboardOverview, error) {
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return domain.DashboardOverview{}, err
	}
	categories, err := s.repo.ListCategories(ctx, false)
	if err != nil {
		return domain.DashboardOverview{}, err
	}
	stores, err := s.repo.ListStores(ctx, false)
	if err != nil {
		return domain.DashboardOverview{}, err
	}
	_, userTotal, err := s.repo.ListUsers(ctx, store.UserFilter{})
	if err != nil {
		return domain.DashboardOverview{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return domain.DashboardOverview{}, err
	}
	sales, err := s.last30DaySales(ctx)
	if err != nil {
		return domain.DashboardOverview{}, err
	}

	now := time.Now().UTC()
	today := dayStart(now)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -7)

	var revenueToday, revenueYesterday, revenue30d float64
	var ordersToday, orders7d int
	for _, sale := range sales {
		if !metrics.Counted(sale) {
			continue
		}
		revenue30d += sale.TotalPrice
		if !sale.SaleDate.Before(today) {
			revenueToday += sale.TotalPrice
			ordersToday++
		} else if !sale.SaleDate.Before(yesterday) {
			revenueYesterday += sale.TotalPrice
		}
		if !sale.SaleDate.Before(weekAgo) {
			orders7d++
		}
	}

	byProduct := make(map[int64][]domain.Inventory)
	for _, inv := range inventory {
		byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
	}
	var lowStock, outOfStock int
	for _, p := range products {
		total := metrics.TotalStock(byProduct[p.ID])
		if metrics.IsOutOfStock(total) {
			outOfStock++
		} else if metrics.IsLowStock(total, p.MinStockLevel) {
			lowStock++
		}
	}

	return domain.DashboardOverview{
		TotalProducts:    len(products),
		TotalCategories:  len(categories),
		TotalStores:      len(stores),
		TotalUsers:       userTotal,
		RevenueToday:     metrics.Round2(revenueToday),
		RevenueYesterday: metrics.Round2(revenueYesterday),
		Revenue30d:       metrics.Round2(revenue30d),
		SalesGrowth:      metrics.Round2(metrics.Growth(revenueToday, revenueYesterday)),
		OrdersToday:      ordersToday,
		Orders7d:         orders7d,
		InventoryUnits:   metrics.TotalStock(inventory),
		LowStockItems:    lowStock,
		OutOfStockItems:  outOfStock,
	}, nil
}

// SalesChart returns the zero-filled daily series for the trailing window.
func (s *Service) SalesChart(ctx context.Context, days int) ([]domain.DailyPoint, error) {
	if days < 1 {
		days = 30
	}
	if days > 365 {
		days = 365
	}
	now := time.Now().UTC()
	from := dayStart(now).AddDate(0, 0, -(days - 1))

	sales, err := s.salesBetween(ctx, from, dayEnd(now), 0)
	if err != nil {
		return nil, err
	}
	return metrics.RoundDaily(metrics.DailySeries(sales, from, now)), nil
}

func (s *Service) TopCategories(ctx context.Context, days, limit int) ([]domain.BreakdownRow, error) {
	if days < 1 {
		days = 30
	}
	now := time.Now().UTC()
	sales, err := s.salesBetween(ctx, now.AddDate(0, 0, -days), now, 0)
	if err != nil {
		return nil, err
	}
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	productCategory := make(map[int64]int64, len(products))
	for _, p := range products {
		productCategory[p.ID] = p.CategoryID
	}
	rows := metrics.Breakdown(sales,
		func(sale domain.Sale) (int64, bool) {
			id, ok := productCategory[sale.ProductID]
			return id, ok
		},
		func(id int64) string { return names[id] },
	)
	return metrics.RoundBreakdown(metrics.TopN(rows, limit)), nil
}

// SalesStatusCounts tallies sales per status over the trailing window.
// Cancelled sales are included here; the chart shows them on purpose.
func (s *Service) SalesStatusCounts(ctx context.Context, days int) (map[string]int, error) {
	if days < 1 {
		days = 30
	}
	now := time.Now().UTC()
	sales, err := s.salesBetween(ctx, now.AddDate(0, 0, -days), now, 0)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, sale := range sales {
		counts[sale.Status]++
	}
	return counts, nil
}

func (s *Service) RecentActivity(ctx context.Context, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	sales, _, err := s.repo.ListSales(ctx, store.SaleFilter{Page: 1, PerPage: limit})
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i] = roundSale(sales[i])
	}
	return sales, nil
}

func (s *Service) InventoryStats(ctx context.Context) (domain.InventoryStats, error) {
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return domain.InventoryStats{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return domain.InventoryStats{}, err
	}

	costByProduct := make(map[int64]float64, len(products))
	for _, p := range products {
		costByProduct[p.ID] = p.CostPrice
	}

	var totalValue float64
	for _, inv := range inventory {
		if inv.Quantity > 0 {
			totalValue += float64(inv.Quantity) * costByProduct[inv.ProductID]
		}
	}

	byProduct := make(map[int64][]domain.Inventory)
	for _, inv := range inventory {
		byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
	}
	var tracked, lowStock, outOfStock int
	for _, p := range products {
		if p.TrackInventory {
			tracked++
		}
		total := metrics.TotalStock(byProduct[p.ID])
		if metrics.IsOutOfStock(total) {
			outOfStock++
		} else if metrics.IsLowStock(total, p.MinStockLevel) {
			lowStock++
		}
	}

	return domain.InventoryStats{
		TotalUnits:      metrics.TotalStock(inventory),
		TotalValue:      metrics.Round2(totalValue),
		TrackedProducts: tracked,
		LowStockItems:   lowStock,
		OutOfStockItems: outOfStock,
	}, nil
}

// ---- finance ----

// FinanceAnalytics compares the requested window against the equal-length
// window immediately before it.
func (s *Service) FinanceAnalytics(ctx context.Context, fromRaw, toRaw string, storeID int64) (domain.PeriodComparison, error) {
	from, to, err := parseRange(fromRaw, toRaw)
	if err != nil {
		return domain.PeriodComparison{}, err
	}

	current, err := s.salesBetween(ctx, from, dayEnd(to), storeID)
	if err != nil {
		return domain.PeriodComparison{}, err
	}
	prevFrom, prevTo := metrics.PreviousPeriod(from, to)
	previous, err := s.salesBetween(ctx, prevFrom, dayEnd(prevTo), storeID)
	if err != nil {
		return domain.PeriodComparison{}, err
	}
	return metrics.RoundComparison(metrics.Compare(current, previous)), nil
}

// Margins lists active products ordered by profit margin, best first.
func (s *Service) Margins(ctx context.Context, limit int) ([]domain.ProductWithMetrics, error) {
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64][]domain.Inventory)
	for _, inv := range inventory {
		byProduct[inv.ProductID] = append(byProduct[inv.ProductID], inv)
	}
	out := make([]domain.ProductWithMetrics, 0, len(products))
	for _, p := range products {
		out = append(out, s.productWithMetrics(p, byProduct[p.ID]))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProfitMargin != out[j].ProfitMargin {
			return out[i].ProfitMargin > out[j].ProfitMargin
		}
		return out[i].ID < out[j].ID
	})
	if limit < 1 {
		limit = 10
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Service) CategoryBreakdown(ctx context.Context, fromRaw, toRaw string) ([]domain.BreakdownRow, error) {
	from, to, err := parseRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	sales, err := s.salesBetween(ctx, from, dayEnd(to), 0)
	if err != nil {
		return nil, err
	}
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	names, err := s.categoryNames(ctx)
	if err != nil {
		return nil, err
	}

	productCategory := make(map[int64]int64, len(products))
	for _, p := range products {
		productCategory[p.ID] = p.CategoryID
	}
	rows := metrics.Breakdown(sales,
		func(sale domain.Sale) (int64, bool) {
			id, ok := productCategory[sale.ProductID]
			return id, ok
		},
		func(id int64) string { return names[id] },
	)
	return metrics.RoundBreakdown(rows), nil
}

// StorePerformance includes every active store, zero-filled when it sold
// nothing in the window.
func (s *Service) StorePerformance(ctx context.Context, fromRaw, toRaw string) ([]domain.BreakdownRow, error) {
	from, to, err := parseRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	sales, err := s.salesBetween(ctx, from, dayEnd(to), 0)
	if err != nil {
		return nil, err
	}
	stores, err := s.repo.ListStores(ctx, false)
	if err != nil {
		return nil, err
	}

	names := make(map[int64]string, len(stores))
	for _, st := range stores {
		names[st.ID] = st.Name
	}
	rows := metrics.Breakdown(sales,
		func(sale domain.Sale) (int64, bool) { return sale.StoreID, true },
		func(id int64) string { return names[id] },
	)

	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		seen[row.ID] = true
	}
	for _, st := range stores {
		if !seen[st.ID] {
			rows = append(rows, domain.BreakdownRow{ID: st.ID, Name: st.Name})
		}
	}
	return metrics.RoundBreakdown(rows), nil
}

func (s *Service) SalesTrends(ctx context.Context, fromRaw, toRaw string, storeID int64) ([]domain.DailyPoint, error) {
	from, to, err := parseRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	sales, err := s.salesBetween(ctx, from, dayEnd(to), storeID)
	if err != nil {
		return nil, err
	}
	return metrics.RoundDaily(metrics.DailySeries(sales, from, to)), nil
}

func (s *Service) TopProducts(ctx context.Context, fromRaw, toRaw string, storeID int64, limit int) ([]domain.BreakdownRow, error) {
	from, to, err := parseRange(fromRaw, toRaw)
	if err != nil {
		return nil, err
	}
	sales, err := s.salesBetween(ctx, from, dayEnd(to), storeID)
	if err != nil {
		return nil, err
	}
	names, err := s.productNames(ctx)
	if err != nil {
		return nil, err
	}

	rows := metrics.Breakdown(sales,
		func(sale domain.Sale) (int64, bool) { return sale.ProductID, true },
		func(id int64) string { return names[id] },
	)
	return metrics.RoundBreakdown(metrics.TopN(rows, limit)), nil
}

func (s *Service) FinanceSummary(ctx context.Context) (domain.FinanceOverview, error) {
	now := time.Now().UTC()
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	todayStart := dayStart(now)

	sales, err := s.salesBetween(ctx, yearStart, now, 0)
	if err != nil {
		return domain.FinanceOverview{}, err
	}

	var todaySales, monthSales []domain.Sale
	for _, sale := range sales {
		if !sale.SaleDate.Before(monthStart) {
			monthSales = append(monthSales, sale)
		}
		if !sale.SaleDate.Before(todayStart) {
			todaySales = append(todaySales, sale)
		}
	}

	return domain.FinanceOverview{
		Today:     metrics.RoundSummary(metrics.Summarize(todaySales)),
		ThisMonth: metrics.RoundSummary(metrics.Summarize(monthSales)),
		ThisYear:  metrics.RoundSummary(metrics.Summarize(sales)),
	}, nil
}

// ---- settings ----

// BackupData collects the full snapshot. Sales cover the last three months;
// password hashes never leave the store layer.
func (s *Service) BackupData(ctx context.Context) (domain.Backup, error) {
	if _, err := requirePermission(ctx, domain.PermissionAdmin); err != nil {
		return domain.Backup{}, err
	}

	users, _, err := s.repo.ListUsers(ctx, store.UserFilter{})
	if err != nil {
		return domain.Backup{}, err
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	categories, err := s.repo.ListCategories(ctx, true)
	if err != nil {
		return domain.Backup{}, err
	}
	stores, err := s.repo.ListStores(ctx, true)
	if err != nil {
		return domain.Backup{}, err
	}
	products, _, err := s.repo.ListProducts(ctx, store.ProductFilter{IncludeInactive: true})
	if err != nil {
		return domain.Backup{}, err
	}
	inventory, err := s.repo.ListInventory(ctx, store.InventoryFilter{})
	if err != nil {
		return domain.Backup{}, err
	}
	now := time.Now().UTC()
	sales, err := s.salesBetween(ctx, now.AddDate(0, -3, 0), now, 0)
	if err != nil {
		return domain.Backup{}, err
	}

	return domain.Backup{
		GeneratedAt: now,
		Users:       users,
		Categories:  categories,
		Stores:      stores,
		Products:    products,
		Inventory:   inventory,
		Sales:       sales,
	}, nil
}

// ExportSalesCSV streams the filtered sales as CSV.
func (s *Service) ExportSalesCSV(ctx context.Context, w io.Writer, filter store.SaleFilter) error {
	filter.Page = 0
	filter.PerPage = 0
	sales, _, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return err
	}
	productNames, err := s.productNames(ctx)
	if err != nil {
		return err
	}
	storeNames, err := s.storeNames(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"order_number", "sale_date", "product", "store", "quantity", "unit_price", "discount", "tax", "total", "status", "payment_method", "customer_name"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, sale := range sales {
		record := []string{
			sale.OrderNumber,
			sale.SaleDate.Format("2006-01-02"),
			productNames[sale.ProductID],
			storeNames[sale.StoreID],
			strconv.Itoa(sale.Quantity),
			strconv.FormatFloat(metrics.Round2(sale.UnitPrice), 'f', 2, 64),
			strconv.FormatFloat(metrics.Round2(sale.DiscountAmount), 'f', 2, 64),
			strconv.FormatFloat(metrics.Round2(sale.TaxAmount), 'f', 2, 64),
			strconv.FormatFloat(metrics.Round2(sale.TotalPrice), 'f', 2, 64),
			sale.Status,
			sale.PaymentMethod,
			sale.CustomerName,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
