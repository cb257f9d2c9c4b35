package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

// OrderQueries serves the read side of orders. Orders is normally the
// cache.Manager wrapping the order repository.
type OrderQueries struct {
	Orders domain.OrderReader
}

func (q *OrderQueries) OrderDetail(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	return q.Orders.FindByID(ctx, tenantID, id)
}

func (q *OrderQueries) OrderItemsWithProducts(ctx context.Context, tenantID, id uuid.UUID) ([]domain.OrderItemDetail, error) {
	return q.Orders.ItemsWithProducts(ctx, tenantID, id)
}

func (q *OrderQueries) OrderSummaries(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.OrderStatusSummary, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Invalid("status", "unknown order status "+string(f.Status))
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.Invalid("to", "must not be before from")
	}
	return q.Orders.Summaries(ctx, tenantID, f)
}

// AllOrders pages through every order matching f, for exports.
func (q *OrderQueries) AllOrders(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.Order, error) {
	var out []domain.Order
	f.PageSize = 100
	for page := 1; ; page++ {
		f.Page = page
		list, total, err := q.Orders.List(ctx, tenantID, f)
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
		if len(list) == 0 || int64(len(out)) >= total {
			return out, nil
		}
	}
}
