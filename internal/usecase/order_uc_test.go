package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/testutil"
	"github.com/phenrril/storefront/internal/usecase"
)

func TestCheckoutPaymentAndCancel(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)

	o := f.placeOrder(t, p, 2)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.Equal(t, 20.0, o.Subtotal)
	assert.Equal(t, 20.0, o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 20.0, o.Items[0].TotalPrice)
	assert.Equal(t, "P1", o.Items[0].ProductSKU)
	assert.Equal(t, "US", o.ShippingAddress.Country)

	paid, err := f.orders.UpdatePayment(ctx, f.tenant.ID, o.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, paid.Status)
	assert.Equal(t, "pi_123", paid.PaymentID)

	again, err := f.orders.UpdatePayment(ctx, f.tenant.ID, o.ID, "pi_123")
	require.NoError(t, err)
	assert.Equal(t, paid.Version, again.Version, "repeated payment is a no-op")

	cancelled, err := f.orders.Cancel(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	stored, err := f.orders.Get(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, stored.Status)
	assert.Equal(t, "pi_123", stored.PaymentID)

	assert.Eventually(t, func() bool { return f.notifier.count() == 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.metrics.created)
}

func TestCheckoutClearsCartAndAddsTaxAndShipping(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{TaxRate: 10, ShippingFlat: 5})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 19.99, 8)

	c, err := f.carts.Create(ctx, f.tenant.ID, nil)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, f.tenant.ID, c.ID, p.ID, 3)
	require.NoError(t, err)

	o, err := f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{
		CartID:          c.ID,
		Email:           " Buyer@Example.com ",
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", o.Email)
	assert.Equal(t, 59.97, o.Subtotal)
	assert.Equal(t, 6.0, o.Tax)
	assert.Equal(t, 5.0, o.ShippingCost)
	assert.Equal(t, 70.97, o.Total)

	cart, err := f.carts.Get(ctx, f.tenant.ID, c.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestCheckoutRejects(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	c, err := f.carts.Create(ctx, f.tenant.ID, nil)
	require.NoError(t, err)

	_, err = f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{CartID: c.ID, Email: "a@b.co", ShippingAddress: address()})
	assert.True(t, domain.IsValidation(err), "empty cart")

	_, err = f.carts.AddItem(ctx, f.tenant.ID, c.ID, p.ID, 1)
	require.NoError(t, err)

	bad := address()
	bad.City = " "
	_, err = f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{CartID: c.ID, Email: "a@b.co", ShippingAddress: bad})
	assert.True(t, domain.IsValidation(err), "missing city")

	_, err = f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{CartID: c.ID, Email: "nope", ShippingAddress: address()})
	assert.True(t, domain.IsValidation(err), "bad email")

	_, err = f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{CartID: uuid.New(), Email: "a@b.co", ShippingAddress: address()})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	cart, err := f.carts.Get(ctx, f.tenant.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "failed checkouts keep the cart")
}

func TestUpdateStatusFollowsTransitions(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	o := f.placeOrder(t, p, 1)

	_, err := f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, domain.OrderStatusShipped)
	assert.True(t, domain.IsConflict(err), "pending cannot jump to shipped")

	_, err = f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, "lost")
	assert.True(t, domain.IsValidation(err))

	same, err := f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, domain.OrderStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 1, same.Version)

	for _, st := range []domain.OrderStatus{
		domain.OrderStatusPaid,
		domain.OrderStatusProcessing,
		domain.OrderStatusShipped,
	} {
		got, err := f.orders.UpdateStatus(ctx, f.tenant.ID, o.ID, st)
		require.NoError(t, err, st)
		assert.Equal(t, st, got.Status)
	}

	_, err = f.orders.Cancel(ctx, f.tenant.ID, o.ID)
	assert.True(t, domain.IsConflict(err), "shipped orders cannot be cancelled")

	got, err := f.orders.Get(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Version)
	assert.Equal(t, []string{"paid", "processing", "shipped"}, f.metrics.changes)
}

func TestStaleWritesConflict(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	o := f.placeOrder(t, p, 1)

	paid := domain.OrderStatusPaid
	require.NoError(t, f.orders.Orders.CompareAndSwap(ctx, f.tenant.ID, o.ID, 1, domain.OrderChanges{Status: &paid}))
	cancelled := domain.OrderStatusCancelled
	err := f.orders.Orders.CompareAndSwap(ctx, f.tenant.ID, o.ID, 1, domain.OrderChanges{Status: &cancelled})
	assert.True(t, domain.IsConflict(err))
}

func TestUpdatePaymentForcesPaid(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	o := f.placeOrder(t, p, 1)

	_, err := f.orders.Cancel(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	got, err := f.orders.UpdatePayment(ctx, f.tenant.ID, o.ID, "pi_late")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)

	_, err = f.orders.UpdatePayment(ctx, f.tenant.ID, o.ID, " ")
	assert.True(t, domain.IsValidation(err))
}

func TestOrderQueriesUseCacheAndInvalidate(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	o := f.placeOrder(t, p, 2)

	got, err := f.queries.OrderDetail(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	sums, err := f.queries.OrderSummaries(ctx, f.tenant.ID, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, 20.0, sums[0].Revenue)
	assert.Positive(t, f.store.Len())

	_, err = f.orders.UpdatePayment(ctx, f.tenant.ID, o.ID, "pi_1")
	require.NoError(t, err)

	got, err = f.queries.OrderDetail(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status, "writes invalidate the cached detail")
	sums, err = f.queries.OrderSummaries(ctx, f.tenant.ID, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, domain.OrderStatusPaid, sums[0].Status)

	items, err := f.queries.OrderItemsWithProducts(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].CurrentPrice)
	assert.Equal(t, 10.0, *items[0].CurrentPrice)

	_, err = f.queries.OrderSummaries(ctx, f.tenant.ID, domain.OrderFilter{Status: "bogus"})
	assert.True(t, domain.IsValidation(err))

	edit := *p
	edit.Price = 12
	_, err = f.products.Update(ctx, f.tenant.ID, p.ID, &edit)
	require.NoError(t, err)
	items, err = f.queries.OrderItemsWithProducts(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	require.NotNil(t, items[0].CurrentPrice)
	assert.Equal(t, 12.0, *items[0].CurrentPrice, "product edits invalidate cached item views")
}

func TestAddNote(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()
	p := testutil.NewProduct(t, f.db, f.tenant.ID, "P1", 10, 6)
	o := f.placeOrder(t, p, 1)

	_, err := f.orders.AddNote(ctx, f.tenant.ID, o.ID, "staff", "  ", true)
	assert.True(t, domain.IsValidation(err))

	n, err := f.orders.AddNote(ctx, f.tenant.ID, o.ID, "staff", "gift wrap", true)
	require.NoError(t, err)
	got, err := f.orders.Get(ctx, f.tenant.ID, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, n.ID, got.Notes[0].ID)
}
