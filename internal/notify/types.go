// Package notify sends customer e-mails about orders through a Temporal
// workflow.
package notify

import (
	"time"

	"github.com/phenrril/storefront/internal/domain"
)

const (
	DefaultTaskQueue = "storefront-notify"

	KindOrderPlaced   = "order_placed"
	KindStatusChanged = "status_changed"

	// ErrTypeInvalidAddress marks activity failures that retrying cannot fix.
	ErrTypeInvalidAddress = "InvalidAddress"
)

type EmailLine struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

// OrderEmail is the workflow input; it carries a snapshot so the worker
// needs no database access.
type OrderEmail struct {
	Kind       string
	TenantID   string
	OrderID    string
	To         string
	FromStatus string
	Status     string
	Subtotal   float64
	Tax        float64
	Shipping   float64
	Total      float64
	Lines      []EmailLine
	SentAt     time.Time
}

func newOrderEmail(kind string, o *domain.Order) OrderEmail {
	lines := make([]EmailLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, EmailLine{Name: it.ProductName, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	return OrderEmail{
		Kind:     kind,
		TenantID: o.TenantID.String(),
		OrderID:  o.ID.String(),
		To:       o.Email,
		Status:   string(o.Status),
		Subtotal: o.Subtotal,
		Tax:      o.Tax,
		Shipping: o.ShippingCost,
		Total:    o.Total,
		Lines:    lines,
	}
}
