// Package metrics computes every derived figure in the system as pure
// functions over entity slices. Nothing here touches storage; both repository
// implementations feed the same code so the numbers cannot drift.
package metrics

import (
	"math"
	"sort"
	"time"

	"github.com/Matongos/inventory/internal/domain"
)

// Round2 rounds to two decimals. Applied at the response boundary only;
// intermediate arithmetic keeps full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ProductMargin is the markup over cost, as a percentage. Zero cost yields
// zero rather than a division blowup.
func ProductMargin(costPrice, sellingPrice float64) float64 {
	if costPrice == 0 {
		return 0
	}
	return (sellingPrice - costPrice) / costPrice * 100
}

// TotalStock sums positive quantities across inventory rows. Negative rows
// (backordered stock) do not reduce the total.
func TotalStock(rows []domain.Inventory) int {
	total := 0
	for _, row := range rows {
		if row.Quantity > 0 {
			total += row.Quantity
		}
	}
	return total
}

func IsLowStock(totalStock int, minStockLevel int) bool {
	return totalStock <= minStockLevel
}

func IsOutOfStock(totalStock int) bool {
	return totalStock <= 0
}

// Counted reports whether a sale participates in financial aggregates.
// Only cancelled sales are excluded; refunded sales still count.
func Counted(s domain.Sale) bool {
	return s.Status != domain.SaleStatusCancelled
}

func saleCost(s domain.Sale) float64 {
	return s.UnitCost * float64(s.Quantity)
}

// Summarize folds sales into a financial summary, skipping cancelled sales.
func Summarize(sales []domain.Sale) domain.FinancialSummary {
	var out domain.FinancialSummary
	for _, s := range sales {
		if !Counted(s) {
			continue
		}
		out.TotalRevenue += s.TotalPrice
		out.TotalCost += saleCost(s)
		out.TotalOrders++
		out.TotalItemsSold += s.Quantity
	}
	out.GrossProfit = out.TotalRevenue - out.TotalCost
	if out.TotalRevenue != 0 {
		out.ProfitMargin = out.GrossProfit / out.TotalRevenue * 100
	}
	if out.TotalOrders > 0 {
		out.AverageOrderValue = out.TotalRevenue / float64(out.TotalOrders)
	}
	return out
}

// PreviousPeriod returns the window of equal length immediately before
// [start, end]. For an inclusive span of L days the previous window is
// [start-L-1 days, start-1 day].
func PreviousPeriod(start, end time.Time) (time.Time, time.Time) {
	length := int(end.Sub(start).Hours() / 24)
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := start.AddDate(0, 0, -(length + 1))
	return prevStart, prevEnd
}

// Growth is the percentage change from previous to current. A zero previous
// value yields zero, not infinity.
func Growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// Compare builds a period comparison from the two windows' sales.
func Compare(current, previous []domain.Sale) domain.PeriodComparison {
	cur := Summarize(current)
	prev := Summarize(previous)
	return domain.PeriodComparison{
		Current:       cur,
		Previous:      prev,
		RevenueGrowth: Growth(cur.TotalRevenue, prev.TotalRevenue),
		ProfitGrowth:  Growth(cur.GrossProfit, prev.GrossProfit),
		OrdersGrowth:  Growth(float64(cur.TotalOrders), float64(prev.TotalOrders)),
	}
}

// Breakdown groups sales by an integer key and returns rows sorted by
// revenue descending, key ascending on ties. Sales without a key (ok=false)
// and cancelled sales are skipped. Names are resolved via nameOf.
func Breakdown(sales []domain.Sale, keyOf func(domain.Sale) (int64, bool), nameOf func(int64) string) []domain.BreakdownRow {
	acc := make(map[int64]*domain.BreakdownRow)
	for _, s := range sales {
		if !Counted(s) {
			continue
		}
		key, ok := keyOf(s)
		if !ok {
			continue
		}
		row, ok := acc[key]
		if !ok {
			row = &domain.BreakdownRow{ID: key, Name: nameOf(key)}
			acc[key] = row
		}
		row.Revenue += s.TotalPrice
		row.Profit += s.TotalPrice - saleCost(s)
		row.Orders++
		row.UnitsSold += s.Quantity
	}

	rows := make([]domain.BreakdownRow, 0, len(acc))
	for _, row := range acc {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Revenue != rows[j].Revenue {
			return rows[i].Revenue > rows[j].Revenue
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

// DailySeries buckets sales per calendar day over [from, to] inclusive.
// Every day in the window appears, zero-filled when nothing sold.
func DailySeries(sales []domain.Sale, from, to time.Time) []domain.DailyPoint {
	from = from.Truncate(24 * time.Hour)
	to = to.Truncate(24 * time.Hour)

	byDay := make(map[string]*domain.DailyPoint)
	for _, s := range sales {
		if !Counted(s) {
			continue
		}
		day := s.SaleDate.Format("2006-01-02")
		point, ok := byDay[day]
		if !ok {
			point = &domain.DailyPoint{Date: day}
			byDay[day] = point
		}
		point.Revenue += s.TotalPrice
		point.Profit += s.TotalPrice - saleCost(s)
		point.Orders++
		point.UnitsSold += s.Quantity
	}

	points := make([]domain.DailyPoint, 0)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		if point, ok := byDay[key]; ok {
			points = append(points, *point)
		} else {
			points = append(points, domain.DailyPoint{Date: key})
		}
	}
	return points
}

// TopN truncates a sorted breakdown to its first n rows. Non-positive n
// falls back to 10.
func TopN(rows []domain.BreakdownRow, n int) []domain.BreakdownRow {
	if n < 1 {
		n = 10
	}
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// RoundSummary applies response-boundary rounding to monetary fields.
func RoundSummary(s domain.FinancialSummary) domain.FinancialSummary {
	s.TotalRevenue = Round2(s.TotalRevenue)
	s.TotalCost = Round2(s.TotalCost)
	s.GrossProfit = Round2(s.GrossProfit)
	s.ProfitMargin = Round2(s.ProfitMargin)
	s.AverageOrderValue = Round2(s.AverageOrderValue)
	return s
}

func RoundComparison(c domain.PeriodComparison) domain.PeriodComparison {
	c.Current = RoundSummary(c.Current)
	c.Previous = RoundSummary(c.Previous)
	c.RevenueGrowth = Round2(c.RevenueGrowth)
	c.ProfitGrowth = Round2(c.ProfitGrowth)
	c.OrdersGrowth = Round2(c.OrdersGrowth)
	return c
}

func RoundBreakdown(rows []domain.BreakdownRow) []domain.BreakdownRow {
	for i := range rows {
		rows[i].Revenue = Round2(rows[i].Revenue)
		rows[i].Profit = Round2(rows[i].Profit)
	}
	return rows
}

func RoundDaily(points []domain.DailyPoint) []domain.DailyPoint {
	for i := range points {
		points[i].Revenue = Round2(points[i].Revenue)
		points[i].Profit = Round2(points[i].Profit)
	}
	return points
}
