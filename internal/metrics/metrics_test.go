package metrics

import (
	"testing"
	"time"

	"github.com/Matongos/inventory/internal/domain"
)

func TestSummarizeComputesRevenueCostProfitMargin(t *testing.T) {
	sales := []domain.Sale{
		{Quantity: 2, UnitCost: 40, TotalPrice: 150, Status: domain.SaleStatusDelivered},
	}

	summary := Summarize(sales)
	if summary.TotalRevenue != 150 {
		t.Fatalf("expected revenue 150, got %v", summary.TotalRevenue)
	}
	if summary.TotalCost != 80 {
		t.Fatalf("expected cost 80, got %v", summary.TotalCost)
	}
	if summary.GrossProfit != 70 {
		t.Fatalf("expected profit 70, got %v", summary.GrossProfit)
	}
	if Round2(summary.ProfitMargin) != 46.67 {
		t.Fatalf("expected margin 46.67, got %v", Round2(summary.ProfitMargin))
	}
	if summary.TotalOrders != 1 || summary.TotalItemsSold != 2 {
		t.Fatalf("unexpected order/items counts: %+v", summary)
	}
	if summary.AverageOrderValue != 150 {
		t.Fatalf("expected average order value 150, got %v", summary.AverageOrderValue)
	}
}

func TestSummarizeSkipsCancelledSales(t *testing.T) {
	sales := []domain.Sale{
		{Quantity: 1, UnitCost: 10, TotalPrice: 30, Status: domain.SaleStatusConfirmed},
		{Quantity: 5, UnitCost: 10, TotalPrice: 500, Status: domain.SaleStatusCancelled},
		{Quantity: 1, UnitCost: 10, TotalPrice: 20, Status: domain.SaleStatusRefunded},
	}

	summary := Summarize(sales)
	if summary.TotalRevenue != 50 {
		t.Fatalf("expected cancelled sale excluded, revenue 50, got %v", summary.TotalRevenue)
	}
	if summary.TotalOrders != 2 {
		t.Fatalf("expected 2 counted orders, got %d", summary.TotalOrders)
	}
}

func TestSummarizeEmptyWindowIsAllZeros(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalRevenue != 0 || summary.ProfitMargin != 0 || summary.AverageOrderValue != 0 {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestGrowthZeroPreviousYieldsZero(t *testing.T) {
	if got := Growth(500, 0); got != 0 {
		t.Fatalf("expected growth 0 when previous is 0, got %v", got)
	}
	if got := Growth(150, 100); got != 50 {
		t.Fatalf("expected growth 50, got %v", got)
	}
	if got := Growth(50, 100); got != -50 {
		t.Fatalf("expected growth -50, got %v", got)
	}
}

func TestPreviousPeriodIsEqualLengthImmediatelyBefore(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 19, 0, 0, 0, 0, time.UTC)

	prevStart, prevEnd := PreviousPeriod(start, end)
	if !prevEnd.Equal(time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected previous end 2026-03-09, got %v", prevEnd)
	}
	if !prevStart.Equal(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected previous start 2026-02-28, got %v", prevStart)
	}
	if prevEnd.Sub(prevStart) != end.Sub(start) {
		t.Fatalf("expected equal window lengths")
	}
}

func TestBreakdownSortsByRevenueThenID(t *testing.T) {
	sales := []domain.Sale{
		{ProductID: 3, Quantity: 1, UnitCost: 5, TotalPrice: 100, Status: domain.SaleStatusDelivered},
		{ProductID: 1, Quantity: 1, UnitCost: 5, TotalPrice: 100, Status: domain.SaleStatusDelivered},
		{ProductID: 2, Quantity: 1, UnitCost: 5, TotalPrice: 300, Status: domain.SaleStatusDelivered},
		{ProductID: 4, Quantity: 9, UnitCost: 5, TotalPrice: 50, Status: domain.SaleStatusCancelled},
	}

	rows := Breakdown(sales,
		func(s domain.Sale) (int64, bool) { return s.ProductID, true },
		func(id int64) string { return "p" },
	)
	if len(rows) != 3 {
		t.Fatalf("expected cancelled sale excluded, got %d rows", len(rows))
	}
	if rows[0].ID != 2 {
		t.Fatalf("expected highest revenue first, got id %d", rows[0].ID)
	}
	if rows[1].ID != 1 || rows[2].ID != 3 {
		t.Fatalf("expected revenue ties ordered by id ascending, got %d then %d", rows[1].ID, rows[2].ID)
	}
	if rows[0].Profit != 295 {
		t.Fatalf("expected profit 295 for top row, got %v", rows[0].Profit)
	}
}

func TestDailySeriesZeroFillsMissingDays(t *testing.T) {
	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)
	sales := []domain.Sale{
		{Quantity: 1, UnitCost: 5, TotalPrice: 20, Status: domain.SaleStatusDelivered, SaleDate: time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)},
	}

	points := DailySeries(sales, from, to)
	if len(points) != 3 {
		t.Fatalf("expected 3 days, got %d", len(points))
	}
	if points[0].Revenue != 0 || points[2].Revenue != 0 {
		t.Fatalf("expected empty days zero-filled: %+v", points)
	}
	if points[1].Date != "2026-05-02" || points[1].Revenue != 20 {
		t.Fatalf("unexpected middle point: %+v", points[1])
	}
}

func TestProductMargin(t *testing.T) {
	if got := ProductMargin(0, 100); got != 0 {
		t.Fatalf("expected zero-cost margin 0, got %v", got)
	}
	if got := ProductMargin(80, 120); got != 50 {
		t.Fatalf("expected margin 50, got %v", got)
	}
}

func TestTotalStockIgnoresNegativeRows(t *testing.T) {
	rows := []domain.Inventory{{Quantity: 5}, {Quantity: -3}, {Quantity: 2}}
	if got := TotalStock(rows); got != 7 {
		t.Fatalf("expected total stock 7, got %d", got)
	}
}

func TestStockFlags(t *testing.T) {
	if !IsLowStock(5, 5) {
		t.Fatalf("expected total equal to min to be low stock")
	}
	if IsLowStock(6, 5) {
		t.Fatalf("expected total above min to not be low stock")
	}
	if !IsOutOfStock(0) || IsOutOfStock(1) {
		t.Fatalf("out-of-stock boundary wrong")
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(46.666666); got != 46.67 {
		t.Fatalf("expected 46.67, got %v", got)
	}
	if got := Round2(-1.005); got != -1 {
		t.Fatalf("expected -1, got %v", got)
	}
}

func TestTopNDefaultsToTen(t *testing.T) {
	rows := make([]domain.BreakdownRow, 15)
	if got := len(TopN(rows, 0)); got != 10 {
		t.Fatalf("expected default limit 10, got %d", got)
	}
	if got := len(TopN(rows, 3)); got != 3 {
		t.Fatalf("expected limit 3, got %d", got)
	}
}
