package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

// OrderMetrics is implemented by adapters/metrics.
type OrderMetrics interface {
	OrderCreated()
	OrderStatusChanged(status string)
}

type OrderUC struct {
	Orders   domain.OrderRepo
	Carts    *CartUC
	Tx       domain.Transactor
	Cache    domain.OrderCacheInvalidator
	Notifier domain.Notifier
	Metrics  OrderMetrics
}

type CheckoutInput struct {
	CartID          uuid.UUID
	Email           string
	UserID          *uuid.UUID
	ShippingAddress domain.Address
	Metadata        map[string]string
}

// CreateFromCart snapshots the cart into a pending order and empties the
// cart in the same transaction.
func (uc *OrderUC) CreateFromCart(ctx context.Context, tenantID uuid.UUID, in CheckoutInput) (*domain.Order, error) {
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	addr := in.ShippingAddress
	var o *domain.Order
	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := uc.Carts.Carts.FindByID(ctx, tenantID, in.CartID)
		if err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return domain.Invalid("cart_id", "cart is empty")
		}
		lines, missing, err := uc.Carts.resolve(ctx, c)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return domain.Invalid("items", "product "+missing[0].String()+" is no longer available")
		}
		settings, err := uc.Carts.tenantSettings(ctx, tenantID)
		if err != nil {
			return err
		}
		totals := totalsFor(lines, settings)
		if err := addr.Normalize(); err != nil {
			return err
		}

		o = &domain.Order{
			ID:              uuid.New(),
			TenantID:        tenantID,
			UserID:          in.UserID,
			Email:           email,
			Status:          domain.OrderStatusPending,
			ShippingAddress: &addr,
			Metadata:        in.Metadata,
			Version:         1,
		}
		if o.UserID == nil {
			o.UserID = c.UserID
		}
		for _, l := range lines {
			it := domain.SnapshotItem(&l.product, l.quantity)
			it.OrderID = o.ID
			o.Items = append(o.Items, it)
		}
		o.Subtotal = totals.Subtotal
		o.Tax = totals.Tax
		o.ShippingCost = domain.Round2(settings.ShippingFlat)
		o.Total = domain.Sum(o.Subtotal, o.Tax, o.ShippingCost)
		if err := o.CheckTotals(); err != nil {
			return err
		}
		if err := uc.Orders.Create(ctx, o); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		return uc.Carts.Carts.Clear(ctx, c.ID)
	})
	if err != nil {
		return nil, err
	}

	uc.Cache.InvalidateOrder(ctx, tenantID, o.ID)
	if uc.Metrics != nil {
		uc.Metrics.OrderCreated()
	}
	uc.notify(ctx, o, "")
	log.Info().Str("order_id", o.ID.String()).Str("tenant_id", tenantID.String()).Float64("total", o.Total).Msg("order created")
	return o, nil
}

// notify runs off the request goroutine; failures are logged only.
func (uc *OrderUC) notify(ctx context.Context, o *domain.Order, from domain.OrderStatus) {
	if uc.Notifier == nil {
		return
	}
	snapshot := *o
	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		var err error
		if from == "" {
			err = uc.Notifier.OrderPlaced(ctx, &snapshot)
		} else {
			err = uc.Notifier.OrderStatusChanged(ctx, &snapshot, from)
		}
		if err != nil {
			log.Error().Err(err).Str("order_id", snapshot.ID.String()).Msg("order notification failed")
		}
	}()
}

func (uc *OrderUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	return uc.Orders.FindByID(ctx, tenantID, id)
}

func (uc *OrderUC) List(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.Order, int64, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("status", "unknown order status "+string(f.Status))
	}
	f.Page, f.PageSize = domain.Paging(f.Page, f.PageSize, 20, 100)
	return uc.Orders.List(ctx, tenantID, f)
}

// swap applies ch with the order's current version and mirrors it on o.
func (uc *OrderUC) swap(ctx context.Context, o *domain.Order, ch domain.OrderChanges) error {
	if err := uc.Orders.CompareAndSwap(ctx, o.TenantID, o.ID, o.Version, ch); err != nil {
		return err
	}
	if ch.Status != nil {
		o.Status = *ch.Status
	}
	if ch.PaymentID != nil {
		o.PaymentID = *ch.PaymentID
	}
	o.Version++
	o.UpdatedAt = time.Now()
	return nil
}

func (uc *OrderUC) changed(ctx context.Context, o *domain.Order, from domain.OrderStatus) {
	uc.Cache.InvalidateOrder(ctx, o.TenantID, o.ID)
	if o.Status == from {
		return
	}
	if uc.Metrics != nil {
		uc.Metrics.OrderStatusChanged(string(o.Status))
	}
	uc.notify(ctx, o, from)
}

// UpdateStatus moves the order along the transition table. Setting the
// current status again is a no-op.
func (uc *OrderUC) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Invalid("status", "unknown order status "+string(status))
	}
	o, err := uc.Orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if from == status {
		return o, nil
	}
	if !from.CanTransition(status) {
		return nil, domain.Conflict("cannot change order status from %s to %s", from, status)
	}
	if err := uc.swap(ctx, o, domain.OrderChanges{Status: &status}); err != nil {
		return nil, err
	}
	uc.changed(ctx, o, from)
	return o, nil
}

func (uc *OrderUC) Cancel(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if from == domain.OrderStatusShipped || from.Terminal() {
		return nil, domain.Conflict("order in status %s cannot be cancelled", from)
	}
	cancelled := domain.OrderStatusCancelled
	if err := uc.swap(ctx, o, domain.OrderChanges{Status: &cancelled}); err != nil {
		return nil, err
	}
	uc.changed(ctx, o, from)
	return o, nil
}

// UpdatePayment records the payment reference and marks the order paid
// whatever its previous status. A repeated delivery of the same payment is
// a no-op.
func (uc *OrderUC) UpdatePayment(ctx context.Context, tenantID, id uuid.UUID, paymentID string) (*domain.Order, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, domain.Invalid("payment_id", "required")
	}
	o, err := uc.Orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if from == domain.OrderStatusPaid && o.PaymentID == paymentID {
		return o, nil
	}
	if from != domain.OrderStatusPending {
		log.Warn().Str("order_id", id.String()).Str("from", string(from)).Msg("payment forces order to paid from non-pending status")
	}
	paid := domain.OrderStatusPaid
	if err := uc.swap(ctx, o, domain.OrderChanges{Status: &paid, PaymentID: &paymentID}); err != nil {
		return nil, err
	}
	uc.changed(ctx, o, from)
	return o, nil
}

// PayByID is UpdatePayment for callers that only know the order id, such as
// payment providers.
func (uc *OrderUC) PayByID(ctx context.Context, id uuid.UUID, paymentID string) (*domain.Order, error) {
	tenantID, err := uc.Orders.TenantOf(ctx, id)
	if err != nil {
		return nil, err
	}
	return uc.UpdatePayment(ctx, tenantID, id, paymentID)
}

// ApplyShipmentStatuses derives the order status from its shipments and
// stores it only when it moves the order forward through fulfillment.
// Pending and closed orders are left alone, and a shipment moving back never
// moves the order back. It reports whether the order changed.
func (uc *OrderUC) ApplyShipmentStatuses(ctx context.Context, o *domain.Order, statuses []domain.ShipmentStatus) (bool, error) {
	next, ok := domain.DeriveOrderStatus(statuses)
	if !ok || !o.Status.Advances(next) {
		return false, nil
	}
	if err := uc.swap(ctx, o, domain.OrderChanges{Status: &next}); err != nil {
		return false, err
	}
	return true, nil
}

func (uc *OrderUC) AddNote(ctx context.Context, tenantID, id uuid.UUID, author, body string, internal bool) (*domain.OrderNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, domain.Invalid("body", "required")
	}
	o, err := uc.Orders.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	n := &domain.OrderNote{ID: uuid.New(), OrderID: o.ID, Author: strings.TrimSpace(author), Body: body, Internal: internal}
	if err := uc.Orders.AddNote(ctx, n); err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	uc.Cache.InvalidateOrder(ctx, tenantID, id)
	return n, nil
}
