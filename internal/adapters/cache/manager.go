package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

const (
	DetailTTL    = 60 * time.Second
	ItemsTTL     = 30 * time.Second
	SummariesTTL = 30 * time.Second
)

// Recorder counts cache lookups per read function.
type Recorder interface {
	CacheHit(fn string)
	CacheMiss(fn string)
}

// Manager decorates an OrderReader with a read-through cache and implements
// domain.OrderCacheInvalidator. List is never cached.
type Manager struct {
	store  Store
	orders domain.OrderReader
	rec    Recorder
}

func NewManager(store Store, orders domain.OrderReader, rec Recorder) *Manager {
	return &Manager{store: store, orders: orders, rec: rec}
}

func tenantPrefix(tenantID uuid.UUID) string { return "t:" + tenantID.String() + ":" }

func orderPrefix(tenantID, orderID uuid.UUID) string {
	return tenantPrefix(tenantID) + "order:" + orderID.String() + ":"
}

func ordersPrefix(tenantID uuid.UUID) string { return tenantPrefix(tenantID) + "orders:" }

func filterArgs(f domain.OrderFilter) string {
	parts := []string{string(f.Status)}
	if f.UserID != nil {
		parts = append(parts, "u="+f.UserID.String())
	} else {
		parts = append(parts, "u=")
	}
	for _, ts := range []*time.Time{f.From, f.To} {
		if ts != nil {
			parts = append(parts, ts.UTC().Format(time.RFC3339))
		} else {
			parts = append(parts, "")
		}
	}
	return strings.Join(parts, "|")
}

func readThrough[T any](ctx context.Context, m *Manager, fn, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if b, ok, err := m.store.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache get failed")
	} else if ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			m.hit(fn)
			return v, nil
		}
	}
	m.miss(fn)
	v, err := load()
	if err != nil {
		return v, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v, nil
	}
	if err := m.store.Set(ctx, key, b, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
	return v, nil
}

func (m *Manager) hit(fn string) {
	if m.rec != nil {
		m.rec.CacheHit(fn)
	}
}

func (m *Manager) miss(fn string) {
	if m.rec != nil {
		m.rec.CacheMiss(fn)
	}
}

// FindByID returns the order with items and notes (order detail).
func (m *Manager) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	key := orderPrefix(tenantID, id) + "detail"
	return readThrough(ctx, m, "order_detail", key, DetailTTL, func() (*domain.Order, error) {
		return m.orders.FindByID(ctx, tenantID, id)
	})
}

func (m *Manager) ItemsWithProducts(ctx context.Context, tenantID, orderID uuid.UUID) ([]domain.OrderItemDetail, error) {
	key := orderPrefix(tenantID, orderID) + "items_with_products"
	return readThrough(ctx, m, "order_items", key, ItemsTTL, func() ([]domain.OrderItemDetail, error) {
		return m.orders.ItemsWithProducts(ctx, tenantID, orderID)
	})
}

func (m *Manager) Summaries(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.OrderStatusSummary, error) {
	key := fmt.Sprintf("%ssummaries:%s", ordersPrefix(tenantID), filterArgs(f))
	return readThrough(ctx, m, "order_summaries", key, SummariesTTL, func() ([]domain.OrderStatusSummary, error) {
		return m.orders.Summaries(ctx, tenantID, f)
	})
}

func (m *Manager) List(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.Order, int64, error) {
	return m.orders.List(ctx, tenantID, f)
}

func (m *Manager) InvalidateOrder(ctx context.Context, tenantID, orderID uuid.UUID) {
	for _, p := range []string{orderPrefix(tenantID, orderID), ordersPrefix(tenantID)} {
		if err := m.store.DeletePrefix(ctx, p); err != nil {
			log.Error().Err(err).Str("prefix", p).Msg("cache invalidation failed")
		}
	}
}

func (m *Manager) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	if err := m.store.DeletePrefix(ctx, tenantPrefix(tenantID)); err != nil {
		log.Error().Err(err).Str("tenant_id", tenantID.String()).Msg("cache invalidation failed")
	}
}
