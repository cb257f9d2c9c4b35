package httpserver

import (
	"context"

	"github.com/phenrril/storefront/internal/domain"
)

// orderView adds the derived financials staff see on every order.
type orderView struct {
	*domain.Order
	TotalCost    *float64 `json:"total_cost,omitempty"`
	Profit       *float64 `json:"profit,omitempty"`
	ProfitMargin *float64 `json:"profit_margin,omitempty"`
}

func viewOrder(ctx context.Context, o *domain.Order) orderView {
	if isStaff(ctx) {
		cost, profit, margin := o.TotalCost(), o.Profit(), o.ProfitMargin()
		return orderView{Order: o, TotalCost: &cost, Profit: &profit, ProfitMargin: &margin}
	}
	cp := *o
	cp.Items = make([]domain.OrderItem, len(o.Items))
	for i, it := range o.Items {
		it.CostPrice = 0
		cp.Items[i] = it
	}
	cp.Notes = nil
	for _, n := range o.Notes {
		if !n.Internal {
			cp.Notes = append(cp.Notes, n)
		}
	}
	return orderView{Order: &cp}
}

func viewOrders(ctx context.Context, list []domain.Order) []orderView {
	out := make([]orderView, len(list))
	for i := range list {
		out[i] = viewOrder(ctx, &list[i])
	}
	return out
}

func viewItems(ctx context.Context, items []domain.OrderItemDetail) []domain.OrderItemDetail {
	if isStaff(ctx) {
		return items
	}
	out := make([]domain.OrderItemDetail, len(items))
	for i, it := range items {
		it.CostPrice = 0
		it.CurrentStock = nil
		out[i] = it
	}
	return out
}

// ownsOrder lets customers see only their own orders.
func ownsOrder(ctx context.Context, o *domain.Order) bool {
	if isStaff(ctx) {
		return true
	}
	c := claimsFrom(ctx)
	return c != nil && o.UserID != nil && *o.UserID == c.UserID
}
