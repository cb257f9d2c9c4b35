package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

type ShipmentUC struct {
	Shipments domain.ShipmentRepo
	Orders    *OrderUC
	Tx        domain.Transactor
	Cache     domain.OrderCacheInvalidator
	Now       func() time.Time
}

type ShipmentInput struct {
	ShippingMethod    string
	TrackingNumber    string
	Carrier           string
	ShippingAddress   *domain.Address
	ShippingCost      float64
	TrackingURL       string
	LabelURL          string
	EstimatedDelivery *time.Time
	Metadata          map[string]string
}

type ShipmentItemInput struct {
	OrderItemID uuid.UUID
	ProductID   *uuid.UUID
	Quantity    int
}

// TrackingUpdate carries optional tracking fields sent with a status change.
type TrackingUpdate struct {
	TrackingNumber string
	Carrier        string
	TrackingURL    string
}

func (uc *ShipmentUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func (uc *ShipmentUC) Create(ctx context.Context, tenantID, orderID uuid.UUID, in ShipmentInput) (*domain.Shipment, error) {
	method := strings.TrimSpace(in.ShippingMethod)
	if method == "" {
		return nil, domain.Invalid("shipping_method", "required")
	}
	if in.ShippingCost < 0 {
		return nil, domain.Invalid("shipping_cost", "must be >= 0")
	}
	if in.ShippingAddress != nil {
		if err := in.ShippingAddress.Normalize(); err != nil {
			return nil, err
		}
	}
	o, err := uc.Orders.Orders.FindByID(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.OrderStatusCancelled || o.Status == domain.OrderStatusRefunded {
		return nil, domain.Conflict("order in status %s cannot be shipped", o.Status)
	}
	addr := in.ShippingAddress
	if addr == nil {
		addr = o.ShippingAddress
	}
	s := &domain.Shipment{
		ID:                uuid.New(),
		TenantID:          tenantID,
		OrderID:           o.ID,
		Status:            domain.ShipmentPending,
		TrackingNumber:    strings.TrimSpace(in.TrackingNumber),
		Carrier:           strings.TrimSpace(in.Carrier),
		ShippingMethod:    method,
		ShippingCost:      domain.Round2(in.ShippingCost),
		ShippingAddress:   addr,
		TrackingURL:       in.TrackingURL,
		LabelURL:          in.LabelURL,
		EstimatedDelivery: in.EstimatedDelivery,
		Metadata:          in.Metadata,
		Items:             []domain.ShipmentItem{},
	}
	if err := uc.Shipments.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create shipment: %w", err)
	}
	uc.Cache.InvalidateOrder(ctx, tenantID, orderID)
	return s, nil
}

// AddItems attaches order lines to a shipment. Across all shipments of the
// order, a line never ships more units than were ordered; the order row stays
// locked between the quantity check and the insert.
func (uc *ShipmentUC) AddItems(ctx context.Context, tenantID, shipmentID uuid.UUID, items []ShipmentItemInput) (*domain.Shipment, error) {
	if len(items) == 0 {
		return nil, domain.Invalid("items", "at least one item is required")
	}
	var out *domain.Shipment
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		s, err := uc.Shipments.FindByID(ctx, tenantID, shipmentID)
		if err != nil {
			return err
		}
		o, err := uc.Orders.Orders.FindForUpdate(ctx, tenantID, s.OrderID)
		if err != nil {
			return err
		}
		shipped, err := uc.Shipments.ShippedQuantities(ctx, o.ID)
		if err != nil {
			return err
		}
		rows := make([]domain.ShipmentItem, 0, len(items))
		for _, in := range items {
			if in.Quantity <= 0 {
				return domain.Invalid("items.quantity", "must be > 0")
			}
			line, ok := o.Item(in.OrderItemID)
			if !ok {
				return domain.Invalid("items.order_item_id", "item "+in.OrderItemID.String()+" does not belong to order "+o.ID.String())
			}
			shipped[line.ID] += in.Quantity
			if shipped[line.ID] > line.Quantity {
				return domain.Conflict("item %s: %d units shipped but only %d ordered", line.ID, shipped[line.ID], line.Quantity)
			}
			pid := in.ProductID
			if pid == nil {
				pid = line.ProductID
			}
			rows = append(rows, domain.ShipmentItem{
				ID:          uuid.New(),
				ShipmentID:  s.ID,
				OrderItemID: line.ID,
				ProductID:   pid,
				Quantity:    in.Quantity,
			})
		}
		if err := uc.Shipments.AddItems(ctx, rows); err != nil {
			return err
		}
		out, err = uc.Shipments.FindByID(ctx, tenantID, shipmentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	uc.Cache.InvalidateOrder(ctx, tenantID, out.OrderID)
	return out, nil
}

// UpdateStatus changes the shipment status and folds every shipment of the
// order back into the order status within the same transaction.
func (uc *ShipmentUC) UpdateStatus(ctx context.Context, tenantID, shipmentID uuid.UUID, status domain.ShipmentStatus, tracking *TrackingUpdate) (*domain.Shipment, error) {
	if _, err := domain.ParseShipmentStatus(string(status)); err != nil {
		return nil, err
	}
	var (
		s       *domain.Shipment
		o       *domain.Order
		from    domain.OrderStatus
		changed bool
	)
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		s, err = uc.Shipments.FindByID(ctx, tenantID, shipmentID)
		if err != nil {
			return err
		}
		s.ApplyStatus(status, uc.now())
		if tracking != nil {
			if v := strings.TrimSpace(tracking.TrackingNumber); v != "" {
				s.TrackingNumber = v
			}
			if v := strings.TrimSpace(tracking.Carrier); v != "" {
				s.Carrier = v
			}
			if v := strings.TrimSpace(tracking.TrackingURL); v != "" {
				s.TrackingURL = v
			}
		}
		if err := uc.Shipments.Save(ctx, s); err != nil {
			return err
		}
		statuses, err := uc.Shipments.StatusesForOrder(ctx, s.OrderID)
		if err != nil {
			return err
		}
		o, err = uc.Orders.Orders.FindByID(ctx, tenantID, s.OrderID)
		if err != nil {
			return err
		}
		from = o.Status
		changed, err = uc.Orders.ApplyShipmentStatuses(ctx, o, statuses)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		uc.Orders.changed(ctx, o, from)
	} else {
		uc.Cache.InvalidateOrder(ctx, tenantID, s.OrderID)
	}
	return s, nil
}

func (uc *ShipmentUC) ListForOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]domain.Shipment, error) {
	if _, err := uc.Orders.Orders.FindByID(ctx, tenantID, orderID); err != nil {
		return nil, err
	}
	return uc.Shipments.ListByOrder(ctx, tenantID, orderID)
}

func (uc *ShipmentUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Shipment, error) {
	return uc.Shipments.FindByID(ctx, tenantID, id)
}
