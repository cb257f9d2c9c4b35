package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Address struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone,omitempty"`
}

// Normalize trims every field and rejects missing required parts. Country is
// an ISO 3166-1 alpha-2 code.
func (a *Address) Normalize() error {
	for _, f := range []*string{&a.FirstName, &a.LastName, &a.AddressLine1, &a.AddressLine2,
		&a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone} {
		*f = strings.TrimSpace(*f)
	}
	required := []struct {
		name, val string
	}{
		{"first_name", a.FirstName},
		{"last_name", a.LastName},
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, r := range required {
		if r.val == "" {
			return Invalid("shipping_address."+r.name, "required")
		}
	}
	a.Country = strings.ToUpper(a.Country)
	if len(a.Country) != 2 {
		return Invalid("shipping_address.country", "must be a 2-letter country code")
	}
	return nil
}

type Order struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_orders_tenant_created,priority:1" json:"tenant_id"`
	UserID          *uuid.UUID        `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Email           string            `gorm:"size:190" json:"email"`
	Status          OrderStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	Items           []OrderItem       `gorm:"foreignKey:OrderID" json:"items"`
	Notes           []OrderNote       `gorm:"foreignKey:OrderID" json:"notes,omitempty"`
	Subtotal        float64           `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Tax             float64           `gorm:"type:decimal(12,2);not null;default:0" json:"tax"`
	ShippingCost    float64           `gorm:"type:decimal(12,2);not null;default:0" json:"shipping_cost"`
	Total           float64           `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	ShippingAddress *Address          `gorm:"type:jsonb;serializer:json" json:"shipping_address,omitempty"`
	PaymentID       string            `gorm:"size:140;index" json:"payment_id,omitempty"`
	Metadata        map[string]string `gorm:"type:jsonb;serializer:json" json:"metadata,omitempty"`
	Version         int               `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time         `gorm:"index:idx_orders_tenant_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type OrderItem struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   *uuid.UUID `gorm:"type:uuid;index" json:"product_id,omitempty"`
	ProductName string     `gorm:"size:180" json:"product_name"`
	ProductSKU  string     `gorm:"size:100" json:"product_sku"`
	Quantity    int        `gorm:"not null" json:"quantity"`
	UnitPrice   float64    `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	TotalPrice  float64    `gorm:"type:decimal(12,2);not null" json:"total_price"`
	CostPrice   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"cost_price,omitempty"`
	IsMaterial  bool       `gorm:"not null" json:"is_material"`
	IsLabor     bool       `gorm:"not null" json:"is_labor"`
}

type OrderNote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	Author    string    `gorm:"size:140" json:"author"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Internal  bool      `gorm:"not null" json:"internal"`
	CreatedAt time.Time `json:"created_at"`
}

// SnapshotItem freezes the product as it is right now into an order line.
func SnapshotItem(p *Product, qty int) OrderItem {
	pid := p.ID
	return OrderItem{
		ID:          uuid.New(),
		ProductID:   &pid,
		ProductName: p.Name,
		ProductSKU:  p.SKU,
		Quantity:    qty,
		UnitPrice:   p.Price,
		TotalPrice:  LineTotal(p.Price, qty),
		CostPrice:   p.CostPrice,
		IsMaterial:  p.IsMaterial,
		IsLabor:     p.IsLabor,
	}
}

// TotalCost sums the unit-cost snapshots of every line.
func (o *Order) TotalCost() float64 {
	costs := make([]float64, 0, len(o.Items))
	for _, it := range o.Items {
		costs = append(costs, LineTotal(it.CostPrice, it.Quantity))
	}
	return Sum(costs...)
}

func (o *Order) Profit() float64 { return Sub(o.Total, o.TotalCost()) }

// ProfitMargin is profit/total*100, 0 when total <= 0.
func (o *Order) ProfitMargin() float64 { return Percent(o.Profit(), o.Total) }

// CheckTotals verifies line and header arithmetic.
func (o *Order) CheckTotals() error {
	for _, it := range o.Items {
		if it.Quantity <= 0 {
			return Invalid("items.quantity", "must be > 0")
		}
		if it.UnitPrice < 0 || it.TotalPrice < 0 {
			return Invalid("items.unit_price", "must be >= 0")
		}
		if it.TotalPrice != LineTotal(it.UnitPrice, it.Quantity) {
			return Invalid("items.total_price", "does not match unit_price * quantity")
		}
	}
	if o.Subtotal < 0 || o.Tax < 0 || o.ShippingCost < 0 || o.Total < 0 {
		return Invalid("total", "amounts must be >= 0")
	}
	if o.Total != Sum(o.Subtotal, o.Tax, o.ShippingCost) {
		return Invalid("total", "does not match subtotal + tax + shipping_cost")
	}
	return nil
}

func (o *Order) Item(id uuid.UUID) (*OrderItem, bool) {
	for i := range o.Items {
		if o.Items[i].ID == id {
			return &o.Items[i], true
		}
	}
	return nil, false
}

type OrderFilter struct {
	UserID   *uuid.UUID
	Status   OrderStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// Paging clamps page/size the way the listing endpoints expect.
func Paging(page, size, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return page, size
}

type OrderStatusSummary struct {
	Status  OrderStatus `json:"status"`
	Orders  int64       `json:"orders"`
	Revenue float64     `json:"revenue"`
}

// OrderItemDetail is an order line joined with the product's current state.
type OrderItemDetail struct {
	OrderItem
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	CurrentStock  *int     `json:"current_stock,omitempty"`
	ProductActive *bool    `json:"product_active,omitempty"`
}
