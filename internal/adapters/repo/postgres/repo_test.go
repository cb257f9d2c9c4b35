package postgres_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/testutil"
)

func TestProductRepo_TenantScopingAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	a := testutil.NewTenant(t, db, "a", domain.TenantSettings{})
	b := testutil.NewTenant(t, db, "b", domain.TenantSettings{})
	repo := postgres.NewProductRepo(db)

	p := testutil.NewProduct(t, db, a.ID, "SKU-1", 10, 4)
	testutil.NewProduct(t, db, a.ID, "SKU-2", 30, 10)
	testutil.NewProduct(t, db, b.ID, "SKU-1", 99, 1)

	_, err := repo.FindByID(ctx, b.ID, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dup := &domain.Product{TenantID: a.ID, SKU: "SKU-1", Name: "dup"}
	assert.True(t, domain.IsConflict(repo.Create(ctx, dup)))

	min := 20.0
	list, total, err := repo.List(ctx, a.ID, domain.ProductFilter{MinPrice: &min})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "SKU-2", list[0].SKU)

	list, total, err = repo.List(ctx, a.ID, domain.ProductFilter{Category: "general", Sort: "price_desc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, 30.0, list[0].Price)

	_, total, err = repo.List(ctx, a.ID, domain.ProductFilter{Query: "sku-2"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	cats, err := repo.DistinctCategories(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"general"}, cats)

	require.NoError(t, repo.Delete(ctx, a.ID, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, a.ID, p.ID), domain.ErrNotFound)
}

func TestCartRepo_AddQuantityMerges(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	p := testutil.NewProduct(t, db, tn.ID, "P", 5, 1)
	repo := postgres.NewCartRepo(db)

	c := &domain.Cart{TenantID: tn.ID}
	require.NoError(t, repo.Create(ctx, c))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AddQuantity(ctx, c.ID, p.ID, 2))
		}()
	}
	wg.Wait()

	got, err := repo.FindByID(ctx, tn.ID, c.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 10, got.Items[0].Quantity)

	ok, err := repo.SetQuantity(ctx, c.ID, uuid.New(), 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.RemoveItem(ctx, c.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func newOrder(tenantID uuid.UUID, p *domain.Product, qty int) *domain.Order {
	it := domain.SnapshotItem(p, qty)
	return &domain.Order{
		TenantID: tenantID,
		Email:    "buyer@example.com",
		Status:   domain.OrderStatusPending,
		Items:    []domain.OrderItem{it},
		Subtotal: it.TotalPrice,
		Total:    it.TotalPrice,
	}
}

func TestOrderRepo_CompareAndSwap(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	p := testutil.NewProduct(t, db, tn.ID, "P", 10, 3)
	repo := postgres.NewOrderRepo(db)

	o := newOrder(tn.ID, p, 2)
	require.NoError(t, repo.Create(ctx, o))

	paid := domain.OrderStatusPaid
	require.NoError(t, repo.CompareAndSwap(ctx, tn.ID, o.ID, 1, domain.OrderChanges{Status: &paid}))

	cancelled := domain.OrderStatusCancelled
	err := repo.CompareAndSwap(ctx, tn.ID, o.ID, 1, domain.OrderChanges{Status: &cancelled})
	assert.True(t, domain.IsConflict(err))

	got, err := repo.FindByID(ctx, tn.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)
	assert.Equal(t, 2, got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 20.0, got.Items[0].TotalPrice)

	err = repo.CompareAndSwap(ctx, tn.ID, uuid.New(), 1, domain.OrderChanges{Status: &paid})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	owner, err := repo.TenantOf(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, tn.ID, owner)
	_, err = repo.TenantOf(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_ListSummariesAndItems(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	p := testutil.NewProduct(t, db, tn.ID, "P", 10, 3)
	repo := postgres.NewOrderRepo(db)

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Create(ctx, newOrder(tn.ID, p, i)))
	}
	list, total, err := repo.List(ctx, tn.ID, domain.OrderFilter{PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 2)

	_, total, err = repo.List(ctx, tn.ID, domain.OrderFilter{Status: domain.OrderStatusPaid})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)

	sums, err := repo.Summaries(ctx, tn.ID, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.EqualValues(t, 3, sums[0].Orders)
	assert.Equal(t, 60.0, sums[0].Revenue)

	details, err := repo.ItemsWithProducts(ctx, tn.ID, list[0].ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.NotNil(t, details[0].CurrentStock)
	assert.Equal(t, 10, *details[0].CurrentStock)

	_, err = repo.ItemsWithProducts(ctx, uuid.New(), list[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactor_RollsBack(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tx := postgres.NewTransactor(db)
	tenants := postgres.NewTenantRepo(db)

	boom := errors.New("boom")
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := tenants.Create(ctx, &domain.Tenant{Name: "x", Slug: "x", Active: true}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = tenants.FindBySlug(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderRepo_FindForUpdateInsideTx(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	p := testutil.NewProduct(t, db, tn.ID, "P", 10, 3)
	repo := postgres.NewOrderRepo(db)
	o := newOrder(tn.ID, p, 2)
	require.NoError(t, repo.Create(ctx, o))

	err := postgres.NewTransactor(db).WithinTx(ctx, func(ctx context.Context) error {
		got, err := repo.FindForUpdate(ctx, tn.ID, o.ID)
		if err != nil {
			return err
		}
		assert.Len(t, got.Items, 1)
		_, err = repo.FindForUpdate(ctx, uuid.New(), o.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "other tenant")
		return nil
	})
	require.NoError(t, err)
}

func TestShipmentRepo_ShippedQuantities(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	p := testutil.NewProduct(t, db, tn.ID, "P", 10, 3)
	orders := postgres.NewOrderRepo(db)
	repo := postgres.NewShipmentRepo(db)

	o := newOrder(tn.ID, p, 5)
	require.NoError(t, orders.Create(ctx, o))
	itemID := o.Items[0].ID

	for _, q := range []int{2, 1} {
		s := &domain.Shipment{TenantID: tn.ID, OrderID: o.ID, Status: domain.ShipmentPending, ShippingMethod: "standard"}
		require.NoError(t, repo.Create(ctx, s))
		require.NoError(t, repo.AddItems(ctx, []domain.ShipmentItem{{ShipmentID: s.ID, OrderItemID: itemID, Quantity: q}}))
	}

	shipped, err := repo.ShippedQuantities(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, shipped[itemID])

	statuses, err := repo.StatusesForOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.ShipmentStatus{domain.ShipmentPending, domain.ShipmentPending}, statuses)
}

func TestEstimateRepo_SaveReplacesLines(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	repo := postgres.NewEstimateRepo(db)

	e := &domain.Estimate{
		TenantID:     tn.ID,
		CustomerName: "c",
		Status:       domain.EstimateDraft,
		Materials:    []domain.EstimateMaterial{{Name: "a", Quantity: 1}, {Name: "b", Quantity: 2}},
	}
	require.NoError(t, repo.Create(ctx, e))

	e.Materials = []domain.EstimateMaterial{{Name: "c", Quantity: 3}}
	e.Labor = []domain.EstimateLabor{{Description: "fit", Hours: 1}}
	require.NoError(t, repo.Save(ctx, e))

	got, err := repo.FindByID(ctx, tn.ID, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Materials, 1)
	assert.Equal(t, "c", got.Materials[0].Name)
	assert.Len(t, got.Labor, 1)
	assert.Equal(t, 2, got.Version)
}

func TestEstimateRepo_SaveRejectsStaleVersion(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	tn := testutil.NewTenant(t, db, "t", domain.TenantSettings{})
	repo := postgres.NewEstimateRepo(db)

	e := &domain.Estimate{TenantID: tn.ID, CustomerName: "c", Status: domain.EstimateAccepted}
	require.NoError(t, repo.Create(ctx, e))

	first, err := repo.FindByID(ctx, tn.ID, e.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, tn.ID, e.ID)
	require.NoError(t, err)

	orderID := uuid.New()
	first.Status, first.OrderID = domain.EstimateConverted, &orderID
	require.NoError(t, repo.Save(ctx, first))

	second.Status = domain.EstimateSent
	err = repo.Save(ctx, second)
	assert.True(t, domain.IsConflict(err))

	got, err := repo.FindByID(ctx, tn.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EstimateConverted, got.Status)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, orderID, *got.OrderID)

	missing := &domain.Estimate{ID: uuid.New(), TenantID: tn.ID, Version: 1}
	assert.ErrorIs(t, repo.Save(ctx, missing), domain.ErrNotFound)
}
