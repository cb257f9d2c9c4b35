package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ShipmentStatus string

const (
	ShipmentPending        ShipmentStatus = "pending"
	ShipmentProcessing     ShipmentStatus = "processing"
	ShipmentShipped        ShipmentStatus = "shipped"
	ShipmentInTransit      ShipmentStatus = "in_transit"
	ShipmentOutForDelivery ShipmentStatus = "out_for_delivery"
	ShipmentDelivered      ShipmentStatus = "delivered"
	ShipmentException      ShipmentStatus = "exception"
	ShipmentReturned       ShipmentStatus = "returned"
)

func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	st := ShipmentStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ShipmentPending, ShipmentProcessing, ShipmentShipped, ShipmentInTransit,
		ShipmentOutForDelivery, ShipmentDelivered, ShipmentException, ShipmentReturned:
		return st, nil
	}
	return "", Invalid("status", "unknown shipment status "+strings.TrimSpace(s))
}

// dispatched statuses mean the parcel has left the warehouse.
func (s ShipmentStatus) dispatched() bool {
	switch s {
	case ShipmentShipped, ShipmentInTransit, ShipmentOutForDelivery, ShipmentDelivered:
		return true
	}
	return false
}

type Shipment struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          uuid.UUID         `gorm:"type:uuid;not null;index" json:"tenant_id"`
	OrderID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	Status            ShipmentStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	TrackingNumber    string            `gorm:"size:120" json:"tracking_number,omitempty"`
	Carrier           string            `gorm:"size:80" json:"carrier,omitempty"`
	ShippingMethod    string            `gorm:"size:60" json:"shipping_method"`
	ShippingCost      float64           `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_cost"`
	ShippingAddress   *Address          `gorm:"type:jsonb;serializer:json" json:"shipping_address,omitempty"`
	TrackingURL       string            `gorm:"size:255" json:"tracking_url,omitempty"`
	LabelURL          string            `gorm:"size:255" json:"label_url,omitempty"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery,omitempty"`
	ShippedAt         *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time        `json:"delivered_at,omitempty"`
	Metadata          map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	Items             []ShipmentItem    `gorm:"foreignKey:ShipmentID" json:"items"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type ShipmentItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ShipmentID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"shipment_id"`
	OrderItemID uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_item_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ApplyStatus sets the status and stamps shipped/delivered times.
func (s *Shipment) ApplyStatus(st ShipmentStatus, now time.Time) {
	s.Status = st
	switch st {
	case ShipmentShipped:
		if s.ShippedAt == nil {
			s.ShippedAt = &now
		}
	case ShipmentDelivered:
		if s.ShippedAt == nil {
			s.ShippedAt = &now
		}
		s.DeliveredAt = &now
	}
	s.UpdatedAt = now
}

// DeriveOrderStatus folds shipment statuses into the order status:
// all delivered -> delivered; any dispatched -> shipped; all pending or
// processing -> processing. Other mixes (exceptions, returns) report false
// and the order keeps its current status.
func DeriveOrderStatus(statuses []ShipmentStatus) (OrderStatus, bool) {
	if len(statuses) == 0 {
		return "", false
	}
	allDelivered, anyDispatched, allPrep := true, false, true
	for _, s := range statuses {
		if s != ShipmentDelivered {
			allDelivered = false
		}
		if s.dispatched() {
			anyDispatched = true
		}
		if s != ShipmentPending && s != ShipmentProcessing {
			allPrep = false
		}
	}
	switch {
	case allDelivered:
		return OrderStatusDelivered, true
	case anyDispatched:
		return OrderStatusShipped, true
	case allPrep:
		return OrderStatusProcessing, true
	}
	return "", false
}
