package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
)

type fakeReader struct {
	orders map[uuid.UUID]*domain.Order
	calls  int
}

func (f *fakeReader) FindByID(_ context.Context, _, id uuid.UUID) (*domain.Order, error) {
	f.calls++
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeReader) List(context.Context, uuid.UUID, domain.OrderFilter) ([]domain.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeReader) Summaries(_ context.Context, _ uuid.UUID, _ domain.OrderFilter) ([]domain.OrderStatusSummary, error) {
	f.calls++
	out := []domain.OrderStatusSummary{}
	for _, o := range f.orders {
		out = append(out, domain.OrderStatusSummary{Status: o.Status, Orders: 1, Revenue: o.Total})
	}
	return out, nil
}

func (f *fakeReader) ItemsWithProducts(context.Context, uuid.UUID, uuid.UUID) ([]domain.OrderItemDetail, error) {
	f.calls++
	return []domain.OrderItemDetail{}, nil
}

type countingRecorder struct{ hits, misses int }

func (c *countingRecorder) CacheHit(string)  { c.hits++ }
func (c *countingRecorder) CacheMiss(string) { c.misses++ }

func setup(t *testing.T) (*Manager, *fakeReader, *countingRecorder, *domain.Order) {
	t.Helper()
	store := NewMemory(time.Minute)
	t.Cleanup(func() { _ = store.Close() })
	o := &domain.Order{ID: uuid.New(), Status: domain.OrderStatusPending, Total: 20}
	reader := &fakeReader{orders: map[uuid.UUID]*domain.Order{o.ID: o}}
	rec := &countingRecorder{}
	return NewManager(store, reader, rec), reader, rec, o
}

func TestManager_ReadThrough(t *testing.T) {
	m, reader, rec, o := setup(t)
	ctx := context.Background()
	tenant := uuid.New()

	first, err := m.FindByID(ctx, tenant, o.ID)
	require.NoError(t, err)
	second, err := m.FindByID(ctx, tenant, o.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, reader.calls)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, first.ID, second.ID)

	second.Status = domain.OrderStatusCancelled
	third, err := m.FindByID(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, third.Status)
}

func TestManager_ErrorsAreNotCached(t *testing.T) {
	m, reader, _, _ := setup(t)
	ctx := context.Background()
	id := uuid.New()

	_, err := m.FindByID(ctx, uuid.New(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = m.FindByID(ctx, uuid.New(), id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 2, reader.calls)
}

func TestManager_InvalidateOrderDropsStaleReads(t *testing.T) {
	m, reader, _, o := setup(t)
	ctx := context.Background()
	tenant := uuid.New()

	_, err := m.FindByID(ctx, tenant, o.ID)
	require.NoError(t, err)
	sums, err := m.Summaries(ctx, tenant, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, domain.OrderStatusPending, sums[0].Status)

	o.Status = domain.OrderStatusPaid
	m.InvalidateOrder(ctx, tenant, o.ID)

	got, err := m.FindByID(ctx, tenant, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, got.Status)

	sums, err = m.Summaries(ctx, tenant, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaid, sums[0].Status)
	assert.Equal(t, 4, reader.calls)
}

func TestManager_InvalidateTenantIsScoped(t *testing.T) {
	m, reader, _, o := setup(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()

	_, _ = m.FindByID(ctx, a, o.ID)
	_, _ = m.FindByID(ctx, b, o.ID)
	m.InvalidateTenant(ctx, a)
	_, _ = m.FindByID(ctx, a, o.ID)
	_, _ = m.FindByID(ctx, b, o.ID)
	assert.Equal(t, 3, reader.calls)
}
