package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/adapters/auth"
	"github.com/phenrril/storefront/internal/adapters/cache"
	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/testutil"
	"github.com/phenrril/storefront/internal/usecase"
)

type sentNotice struct {
	orderID uuid.UUID
	from    domain.OrderStatus
	to      domain.OrderStatus
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotice
}

func (n *fakeNotifier) OrderPlaced(_ context.Context, o *domain.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{orderID: o.ID, to: o.Status})
	return nil
}

func (n *fakeNotifier) OrderStatusChanged(_ context.Context, o *domain.Order, from domain.OrderStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotice{orderID: o.ID, from: from, to: o.Status})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type fakeMetrics struct {
	mu      sync.Mutex
	created int
	changes []string
}

func (m *fakeMetrics) OrderCreated() {
	m.mu.Lock()
	m.created++
	m.mu.Unlock()
}

func (m *fakeMetrics) OrderStatusChanged(s string) {
	m.mu.Lock()
	m.changes = append(m.changes, s)
	m.mu.Unlock()
}

type fixture struct {
	db        *gorm.DB
	tenant    *domain.Tenant
	store     *cache.Memory
	cache     *cache.Manager
	notifier  *fakeNotifier
	metrics   *fakeMetrics
	tenants   *usecase.TenantUC
	users     *usecase.UserUC
	products  *usecase.ProductUC
	carts     *usecase.CartUC
	orders    *usecase.OrderUC
	queries   *usecase.OrderQueries
	shipments *usecase.ShipmentUC
	estimates *usecase.EstimateUC
}

func newFixture(t *testing.T, settings domain.TenantSettings) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		tenant:   testutil.NewTenant(t, db, "shop", settings),
		store:    cache.NewMemory(time.Minute),
		notifier: &fakeNotifier{},
		metrics:  &fakeMetrics{},
	}
	t.Cleanup(func() { _ = f.store.Close() })

	tx := postgres.NewTransactor(db)
	tenantRepo := postgres.NewTenantRepo(db)
	userRepo := postgres.NewUserRepo(db)
	productRepo := postgres.NewProductRepo(db)
	orderRepo := postgres.NewOrderRepo(db)
	f.cache = cache.NewManager(f.store, orderRepo, nil)

	tokens, err := auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	hasher := auth.NewBcryptHasher(4)

	f.tenants = &usecase.TenantUC{Tenants: tenantRepo, Users: userRepo, Hasher: hasher, Tx: tx}
	f.users = &usecase.UserUC{Users: userRepo, Hasher: hasher, Tokens: tokens}
	f.products = &usecase.ProductUC{Products: productRepo, Cache: f.cache}
	f.carts = &usecase.CartUC{Carts: postgres.NewCartRepo(db), Products: productRepo, Tenants: tenantRepo, Tx: tx}
	f.orders = &usecase.OrderUC{Orders: orderRepo, Carts: f.carts, Tx: tx, Cache: f.cache, Notifier: f.notifier, Metrics: f.metrics}
	f.queries = &usecase.OrderQueries{Orders: f.cache}
	f.shipments = &usecase.ShipmentUC{Shipments: postgres.NewShipmentRepo(db), Orders: f.orders, Tx: tx, Cache: f.cache}
	f.estimates = &usecase.EstimateUC{
		Estimates: postgres.NewEstimateRepo(db),
		Orders:    orderRepo,
		Tenants:   tenantRepo,
		Tx:        tx,
		Cache:     f.cache,
		Metrics:   f.metrics,
	}
	return f
}

func address() domain.Address {
	return domain.Address{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		AddressLine1: "1 Main St",
		City:         "Springfield",
		State:        "IL",
		PostalCode:   "62701",
		Country:      "us",
	}
}

// placeOrder checks out a fresh cart holding qty units of p.
func (f *fixture) placeOrder(t *testing.T, p *domain.Product, qty int) *domain.Order {
	t.Helper()
	ctx := context.Background()
	c, err := f.carts.Create(ctx, f.tenant.ID, nil)
	if err != nil {
		t.Fatalf("create cart: %v", err)
	}
	if _, err := f.carts.AddItem(ctx, f.tenant.ID, c.ID, p.ID, qty); err != nil {
		t.Fatalf("add item: %v", err)
	}
	o, err := f.orders.CreateFromCart(ctx, f.tenant.ID, usecase.CheckoutInput{
		CartID:          c.ID,
		Email:           "buyer@example.com",
		ShippingAddress: address(),
	})
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	return o
}
