package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/Matongos/inventory/internal/domain"
	"github.com/Matongos/inventory/internal/store"
	"github.com/Matongos/inventory/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	svc := New(memory.New(), zap.NewNop())
	if err := svc.EnsureBootstrapAdmin(context.Background(), "bootstrap-secret"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	admin, err := svc.Authenticate(context.Background(), "admin", "bootstrap-secret")
	if err != nil {
		t.Fatalf("authenticate bootstrap admin: %v", err)
	}
	ctx := WithActor(context.Background(), domain.Actor{UserID: admin.ID, Username: admin.Username, Role: admin.Role})
	return svc, ctx
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func seedCatalog(t *testing.T, svc *Service, ctx context.Context, initialStock int) (domain.Category, domain.Store, domain.ProductWithMetrics) {
	t.Helper()
	category, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Groceries"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	st, err := svc.CreateStore(ctx, domain.StoreCreateRequest{Name: "Main Branch", Code: "main"})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:         "Rice 5kg",
		Code:         "gro-001",
		CategoryID:   category.ID,
		CostPrice:    40,
		SellingPrice: 75,
		InitialStock: intPtr(initialStock),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return category, st, product
}

func TestAuthenticateCaseInsensitiveAndRejectsBadPassword(t *testing.T) {
	svc, _ := newTestService(t)

	user, err := svc.Authenticate(context.Background(), "ADMIN", "bootstrap-secret")
	if err != nil {
		t.Fatalf("expected case-insensitive login, got %v", err)
	}
	if user.LastLogin == nil {
		t.Fatalf("expected last_login to be recorded")
	}

	if _, err := svc.Authenticate(context.Background(), "admin", "wrong"); err == nil {
		t.Fatalf("expected bad password to fail")
	}
}

func TestAuthenticateRejectsInactiveAccount(t *testing.T) {
	svc, ctx := newTestService(t)

	created, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "clerk", Password: "secret1", Name: "Clerk", Email: "clerk@example.com", Role: domain.RoleUser,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := svc.UpdateUser(ctx, created.ID, domain.UserUpdateRequest{IsActive: boolPtr(false)}); err != nil {
		t.Fatalf("deactivate user: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "clerk", "secret1"); err == nil {
		t.Fatalf("expected inactive account to be rejected")
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	userCtx := WithActor(context.Background(), domain.Actor{UserID: 99, Username: "clerk", Role: domain.RoleUser})

	_, err := svc.CreateUser(userCtx, domain.UserCreateRequest{
		Username: "other", Password: "secret1", Name: "Other", Email: "other@example.com", Role: domain.RoleUser,
	})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestBootstrapAdminIsProtected(t *testing.T) {
	svc, ctx := newTestService(t)

	if err := svc.DeleteUser(ctx, 1); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected deleting bootstrap admin to be forbidden, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, 1, domain.UserUpdateRequest{Role: strPtr(domain.RoleUser)}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected demoting bootstrap admin to be forbidden, got %v", err)
	}
	if _, err := svc.UpdateUser(ctx, 1, domain.UserUpdateRequest{IsActive: boolPtr(false)}); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected deactivating bootstrap admin to be forbidden, got %v", err)
	}
}

func TestDeleteOwnAccountForbidden(t *testing.T) {
	svc, ctx := newTestService(t)

	created, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Username: "second", Password: "secret1", Name: "Second Admin", Email: "second@example.com", Role: domain.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	selfCtx := WithActor(context.Background(), domain.Actor{UserID: created.ID, Username: created.Username, Role: created.Role})
	if err := svc.DeleteUser(selfCtx, created.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected self-delete to be forbidden, got %v", err)
	}
}

func TestCategoryCycleRejected(t *testing.T) {
	svc, ctx := newTestService(t)

	parent, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Household"})
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Cleaning", ParentID: &parent.ID})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	_, err = svc.UpdateCategory(ctx, parent.ID, domain.CategoryUpdateRequest{ParentID: &child.ID})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected cycle to be rejected, got %v", err)
	}
	if _, err := svc.UpdateCategory(ctx, parent.ID, domain.CategoryUpdateRequest{ParentID: &parent.ID}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected self-parent to be rejected, got %v", err)
	}
}

func TestDeleteCategoryWithActiveProductsConflicts(t *testing.T) {
	svc, ctx := newTestService(t)
	category, _, product := seedCatalog(t, svc, ctx, 0)

	if err := svc.DeleteCategory(ctx, category.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict while products are active, got %v", err)
	}

	if err := svc.DeleteProduct(ctx, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if err := svc.DeleteCategory(ctx, category.ID); err != nil {
		t.Fatalf("expected delete to succeed after products deactivated, got %v", err)
	}
}

func TestCreateProductSpreadsInitialStock(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	if product.Code != "GRO-001" {
		t.Fatalf("expected upper-cased code, got %q", product.Code)
	}
	if product.TotalStock != 10 {
		t.Fatalf("expected initial total stock 10, got %d", product.TotalStock)
	}

	rows, err := svc.ListInventory(ctx, store.InventoryFilter{ProductID: product.ID, StoreID: st.ID})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(rows) != 1 || rows[0].Quantity != 10 {
		t.Fatalf("expected one row with quantity 10, got %+v", rows)
	}
}

func TestDuplicateProductCodeConflicts(t *testing.T) {
	svc, ctx := newTestService(t)
	category, _, _ := seedCatalog(t, svc, ctx, 0)

	_, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Other", Code: "gro-001", CategoryID: category.ID, CostPrice: 1, SellingPrice: 2,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate code conflict, got %v", err)
	}
}

func TestRecordSaleSnapshotsPricesAndDecrementsStock(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, StoreID: st.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if sale.OrderNumber == "" {
		t.Fatalf("expected generated order number")
	}
	if sale.UnitCost != 40 || sale.UnitPrice != 75 {
		t.Fatalf("expected price snapshots 40/75, got %v/%v", sale.UnitCost, sale.UnitPrice)
	}
	if sale.TotalPrice != 150 {
		t.Fatalf("expected total 150, got %v", sale.TotalPrice)
	}
	if sale.Status != domain.SaleStatusConfirmed {
		t.Fatalf("expected confirmed status, got %q", sale.Status)
	}

	rows, err := svc.ListInventory(ctx, store.InventoryFilter{ProductID: product.ID, StoreID: st.ID})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if rows[0].Quantity != 8 {
		t.Fatalf("expected stock decremented to 8, got %d", rows[0].Quantity)
	}
}

func TestRecordSaleDiscountAndTax(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, StoreID: st.ID, Quantity: 2, DiscountAmount: 10, TaxAmount: 5,
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if sale.TotalPrice != 145 {
		t.Fatalf("expected total 145 (150 - 10 + 5), got %v", sale.TotalPrice)
	}

	_, err = svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, StoreID: st.ID, Quantity: 1, DiscountAmount: 100,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected discount above gross to be rejected, got %v", err)
	}
}

func TestRecordSaleInsufficientStockConflicts(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 3)

	_, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		ProductID: product.ID, StoreID: st.ID, Quantity: 5,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected insufficient stock conflict, got %v", err)
	}

	rows, err := svc.ListInventory(ctx, store.InventoryFilter{ProductID: product.ID, StoreID: st.ID})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if rows[0].Quantity != 3 {
		t.Fatalf("expected stock untouched after failed sale, got %d", rows[0].Quantity)
	}
}

func TestRecordSaleBackorderGoesNegative(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 3)

	if _, err := svc.UpdateProduct(ctx, product.ID, domain.ProductUpdateRequest{AllowBackorder: boolPtr(true)}); err != nil {
		t.Fatalf("enable backorder: %v", err)
	}
	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 5}); err != nil {
		t.Fatalf("expected backorder sale to succeed, got %v", err)
	}

	rows, err := svc.ListInventory(ctx, store.InventoryFilter{ProductID: product.ID, StoreID: st.ID})
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if rows[0].Quantity != -2 {
		t.Fatalf("expected quantity -2, got %d", rows[0].Quantity)
	}

	detail, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if detail.TotalStock != 0 || !detail.IsOutOfStock {
		t.Fatalf("expected negative rows to not count toward total stock: %+v", detail.ProductWithMetrics)
	}
}

func TestUntrackedProductSkipsDecrement(t *testing.T) {
	svc, ctx := newTestService(t)
	category, st, _ := seedCatalog(t, svc, ctx, 0)

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Gift Card", Code: "SRV-001", CategoryID: category.ID,
		CostPrice: 0, SellingPrice: 25, TrackInventory: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 3}); err != nil {
		t.Fatalf("expected untracked sale to succeed with no stock row, got %v", err)
	}
}

func TestSaleFulfillmentChain(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}

	packed, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusPacked)
	if err != nil || packed.PackedAt == nil {
		t.Fatalf("expected packed with timestamp, got %+v err %v", packed, err)
	}
	shipped, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusShipped)
	if err != nil || shipped.ShippedAt == nil {
		t.Fatalf("expected shipped with timestamp, got %+v err %v", shipped, err)
	}
	delivered, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusDelivered)
	if err != nil || delivered.DeliveredAt == nil {
		t.Fatalf("expected delivered with timestamp, got %+v err %v", delivered, err)
	}

	if _, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusPacked); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected backwards transition to conflict, got %v", err)
	}
	if _, err := svc.CancelSale(ctx, sale.ID); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected cancel after delivery to conflict, got %v", err)
	}

	refunded, err := svc.UpdateSaleStatus(ctx, sale.ID, domain.SaleStatusRefunded)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.PaymentStatus != domain.PaymentStatusRefunded {
		t.Fatalf("expected payment status refunded, got %q", refunded.PaymentStatus)
	}
}

func TestCancelledSaleExcludedFromAggregatesButRetrievable(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	kept, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	cancelled, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := svc.CancelSale(ctx, cancelled.ID); err != nil {
		t.Fatalf("cancel sale: %v", err)
	}

	got, err := svc.GetSale(ctx, cancelled.ID)
	if err != nil {
		t.Fatalf("expected cancelled sale retrievable, got %v", err)
	}
	if got.Status != domain.SaleStatusCancelled {
		t.Fatalf("expected cancelled status, got %q", got.Status)
	}

	summary, err := svc.FinanceSummary(ctx)
	if err != nil {
		t.Fatalf("finance summary: %v", err)
	}
	if summary.Today.TotalRevenue != kept.TotalPrice {
		t.Fatalf("expected today revenue %v (cancelled excluded), got %v", kept.TotalPrice, summary.Today.TotalRevenue)
	}
	if summary.Today.TotalOrders != 1 {
		t.Fatalf("expected 1 counted order, got %d", summary.Today.TotalOrders)
	}
}

func TestAdjustInventoryGuards(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 5)

	rows, err := svc.ListInventory(ctx, store.InventoryFilter{ProductID: product.ID, StoreID: st.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("list inventory: %v (%d rows)", err, len(rows))
	}
	row := rows[0]

	if _, err := svc.AdjustInventory(ctx, row.ID, domain.InventorySetRequest{Quantity: intPtr(-1)}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected negative set to be rejected, got %v", err)
	}
	if _, err := svc.AdjustInventory(ctx, row.ID, domain.InventorySetRequest{Delta: intPtr(-10)}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected over-large negative delta to be rejected, got %v", err)
	}
	if _, err := svc.AdjustInventory(ctx, row.ID, domain.InventorySetRequest{Quantity: intPtr(3), Delta: intPtr(1)}); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected quantity+delta to be rejected, got %v", err)
	}

	updated, err := svc.AdjustInventory(ctx, row.ID, domain.InventorySetRequest{Delta: intPtr(-2), MinStock: intPtr(4)})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if updated.Quantity != 3 || updated.MinStock != 4 {
		t.Fatalf("unexpected row after adjust: %+v", updated)
	}
}

func TestDuplicateInventoryPairConflicts(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 5)

	_, err := svc.CreateInventory(ctx, domain.InventoryCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 1})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate (product, store) pair conflict, got %v", err)
	}
}

func TestUserRoleCannotDelete(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 5)

	userCtx := WithActor(context.Background(), domain.Actor{UserID: 50, Username: "clerk", Role: domain.RoleUser})
	if err := svc.DeleteProduct(userCtx, product.ID); !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected user role delete to be forbidden, got %v", err)
	}

	if _, err := svc.RecordSale(userCtx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 1}); err != nil {
		t.Fatalf("expected user role to record sales, got %v", err)
	}
}

func TestStoreRollupsCountSales(t *testing.T) {
	svc, ctx := newTestService(t)
	_, st, product := seedCatalog(t, svc, ctx, 10)

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{ProductID: product.ID, StoreID: st.ID, Quantity: 2}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	withStats, err := svc.GetStore(ctx, st.ID)
	if err != nil {
		t.Fatalf("get store: %v", err)
	}
	if withStats.SalesCount30d != 1 {
		t.Fatalf("expected one sale in rollup, got %d", withStats.SalesCount30d)
	}
	if withStats.Revenue30d != 150 {
		t.Fatalf("expected rollup revenue 150, got %v", withStats.Revenue30d)
	}
	if withStats.TotalStock != 8 {
		t.Fatalf("expected rollup stock 8, got %d", withStats.TotalStock)
	}
}

func TestBackupExcludesPasswordHashes(t *testing.T) {
	svc, ctx := newTestService(t)
	seedCatalog(t, svc, ctx, 5)

	backup, err := svc.BackupData(ctx)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(backup.Users) == 0 {
		t.Fatalf("expected users in backup")
	}
	for _, u := range backup.Users {
		if u.PasswordHash != "" {
			t.Fatalf("expected password hashes stripped from backup")
		}
	}
	if len(backup.Products) == 0 || len(backup.Stores) == 0 {
		t.Fatalf("expected catalog data in backup")
	}
}
