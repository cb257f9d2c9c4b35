package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EstimateStatus string

const (
	EstimateDraft     EstimateStatus = "draft"
	EstimateSent      EstimateStatus = "sent"
	EstimateAccepted  EstimateStatus = "accepted"
	EstimateRejected  EstimateStatus = "rejected"
	EstimateConverted EstimateStatus = "converted"
)

func ParseEstimateStatus(s string) (EstimateStatus, error) {
	st := EstimateStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case EstimateDraft, EstimateSent, EstimateAccepted, EstimateRejected, EstimateConverted:
		return st, nil
	}
	return "", Invalid("status", "unknown estimate status "+strings.TrimSpace(s))
}

type Estimate struct {
	ID              uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID          `gorm:"type:uuid;not null;index" json:"tenant_id"`
	UserID          *uuid.UUID         `gorm:"type:uuid;index" json:"user_id,omitempty"`
	CustomerName    string             `gorm:"size:140" json:"customer_name"`
	CustomerEmail   string             `gorm:"size:190" json:"customer_email"`
	CustomerPhone   string             `gorm:"size:60" json:"customer_phone,omitempty"`
	CustomerAddress string             `gorm:"size:255" json:"customer_address,omitempty"`
	Status          EstimateStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TaxRate         float64            `gorm:"type:decimal(6,2);not null;default:0" json:"tax_rate"`
	Notes           string             `gorm:"type:text" json:"notes,omitempty"`
	Materials       []EstimateMaterial `gorm:"foreignKey:EstimateID" json:"materials"`
	Labor           []EstimateLabor    `gorm:"foreignKey:EstimateID" json:"labor"`
	MaterialCost    float64            `gorm:"type:decimal(12,2);not null;default:0" json:"material_cost"`
	MaterialPrice   float64            `gorm:"type:decimal(12,2);not null;default:0" json:"material_price"`
	LaborCost       float64            `gorm:"type:decimal(12,2);not null;default:0" json:"labor_cost"`
	LaborPrice      float64            `gorm:"type:decimal(12,2);not null;default:0" json:"labor_price"`
	TotalCost       float64            `gorm:"type:decimal(12,2);not null;default:0" json:"total_cost"`
	Subtotal        float64            `gorm:"type:decimal(12,2);not null;default:0" json:"subtotal"`
	Tax             float64            `gorm:"type:decimal(12,2);not null;default:0" json:"tax"`
	Total           float64            `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	TotalProfit     float64            `gorm:"type:decimal(12,2);not null;default:0" json:"total_profit"`
	ProfitMargin    float64            `gorm:"type:decimal(8,2);not null;default:0" json:"profit_margin"`
	OrderID         *uuid.UUID         `gorm:"type:uuid" json:"order_id,omitempty"`
	Version         int                `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type EstimateMaterial struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	EstimateID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"estimate_id"`
	ProductID    *uuid.UUID `gorm:"type:uuid" json:"product_id,omitempty"`
	Name         string     `gorm:"size:180;not null" json:"name"`
	Quantity     int        `gorm:"not null" json:"quantity"`
	CostPrice    float64    `gorm:"type:decimal(12,2);not null" json:"cost_price"`
	SellingPrice float64    `gorm:"type:decimal(12,2);not null" json:"selling_price"`
}

type EstimateLabor struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EstimateID  uuid.UUID `gorm:"type:uuid;not null;index" json:"estimate_id"`
	Description string    `gorm:"size:255;not null" json:"description"`
	Hours       float64   `gorm:"type:decimal(8,2);not null" json:"hours"`
	CostRate    float64   `gorm:"type:decimal(12,2);not null" json:"cost_rate"`
	SellingRate float64   `gorm:"type:decimal(12,2);not null" json:"selling_rate"`
}

// RoundInputs brings rates, prices and hours to the two decimals their
// columns store, so totals computed now match totals computed after a reload.
func (e *Estimate) RoundInputs() {
	e.TaxRate = Round2(e.TaxRate)
	for i := range e.Materials {
		e.Materials[i].CostPrice = Round2(e.Materials[i].CostPrice)
		e.Materials[i].SellingPrice = Round2(e.Materials[i].SellingPrice)
	}
	for i := range e.Labor {
		e.Labor[i].Hours = Round2(e.Labor[i].Hours)
		e.Labor[i].CostRate = Round2(e.Labor[i].CostRate)
		e.Labor[i].SellingRate = Round2(e.Labor[i].SellingRate)
	}
}

// CalculateTotals recomputes every derived amount from the current lines.
// It never reads the previous results, so repeated calls are stable. Each
// line is rounded to cents before summing, the same way OrderItems prices
// them.
func (e *Estimate) CalculateTotals() {
	matCost, matPrice := decimal.Zero, decimal.Zero
	for _, m := range e.Materials {
		matCost = matCost.Add(dec(LineTotal(m.CostPrice, m.Quantity)))
		matPrice = matPrice.Add(dec(LineTotal(m.SellingPrice, m.Quantity)))
	}
	labCost, labPrice := decimal.Zero, decimal.Zero
	for _, l := range e.Labor {
		labCost = labCost.Add(dec(Mul(l.CostRate, l.Hours)))
		labPrice = labPrice.Add(dec(Mul(l.SellingRate, l.Hours)))
	}
	totalCost := matCost.Add(labCost)
	subtotal := matPrice.Add(labPrice)
	tax := subtotal.Mul(dec(e.TaxRate)).Div(decimal.NewFromInt(100))
	profit := subtotal.Sub(totalCost)

	e.MaterialCost = toMoney(matCost)
	e.MaterialPrice = toMoney(matPrice)
	e.LaborCost = toMoney(labCost)
	e.LaborPrice = toMoney(labPrice)
	e.TotalCost = toMoney(totalCost)
	e.Subtotal = toMoney(subtotal)
	e.Tax = toMoney(tax)
	e.Total = toMoney(subtotal.Add(tax))
	e.TotalProfit = toMoney(profit)
	e.ProfitMargin = 0
	if subtotal.IsPositive() {
		e.ProfitMargin = toMoney(profit.Div(subtotal).Mul(decimal.NewFromInt(100)))
	}
}

func (e *Estimate) Validate() error {
	if strings.TrimSpace(e.CustomerName) == "" {
		return Invalid("customer_name", "required")
	}
	if e.TaxRate < 0 || e.TaxRate > 100 {
		return Invalid("tax_rate", "must be between 0 and 100")
	}
	for _, m := range e.Materials {
		if strings.TrimSpace(m.Name) == "" {
			return Invalid("materials.name", "required")
		}
		if m.Quantity <= 0 {
			return Invalid("materials.quantity", "must be > 0")
		}
		if m.CostPrice < 0 || m.SellingPrice < 0 {
			return Invalid("materials.price", "must be >= 0")
		}
	}
	for _, l := range e.Labor {
		if strings.TrimSpace(l.Description) == "" {
			return Invalid("labor.description", "required")
		}
		if l.Hours <= 0 {
			return Invalid("labor.hours", "must be > 0")
		}
		if l.CostRate < 0 || l.SellingRate < 0 {
			return Invalid("labor.rate", "must be >= 0")
		}
	}
	return nil
}

// OrderItems turns the estimate lines into order lines: one per material and
// one per labor entry (quantity 1, priced at rate * hours).
func (e *Estimate) OrderItems(orderID uuid.UUID) []OrderItem {
	items := make([]OrderItem, 0, len(e.Materials)+len(e.Labor))
	for _, m := range e.Materials {
		items = append(items, OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   m.ProductID,
			ProductName: m.Name,
			Quantity:    m.Quantity,
			UnitPrice:   m.SellingPrice,
			TotalPrice:  LineTotal(m.SellingPrice, m.Quantity),
			CostPrice:   m.CostPrice,
			IsMaterial:  true,
		})
	}
	for _, l := range e.Labor {
		price := Mul(l.SellingRate, l.Hours)
		items = append(items, OrderItem{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductName: l.Description,
			Quantity:    1,
			UnitPrice:   price,
			TotalPrice:  price,
			CostPrice:   Mul(l.CostRate, l.Hours),
			IsLabor:     true,
		})
	}
	return items
}

type EstimateFilter struct {
	Status   EstimateStatus
	Page     int
	PageSize int
}
