package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_products_tenant_sku,priority:1" json:"tenant_id"`
	SKU         string    `gorm:"size:100;not null;uniqueIndex:idx_products_tenant_sku,priority:2" json:"sku"`
	Name        string    `gorm:"size:180;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Price       float64   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	CostPrice   float64   `gorm:"type:decimal(12,2);not null;default:0" json:"cost_price"`
	Stock       int       `gorm:"not null;default:0" json:"stock"`
	Categories  []string  `gorm:"type:jsonb;serializer:json" json:"categories"`
	IsMaterial  bool      `gorm:"not null" json:"is_material"`
	IsLabor     bool      `gorm:"not null" json:"is_labor"`
	LaborRate   float64   `gorm:"type:decimal(12,2);not null;default:0" json:"labor_rate"`
	Active      bool      `gorm:"not null;index" json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Normalize trims text fields and checks the catalog invariants.
func (p *Product) Normalize() error {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if p.SKU == "" {
		return Invalid("sku", "required")
	}
	if p.Name == "" {
		return Invalid("name", "required")
	}
	if p.Price < 0 {
		return Invalid("price", "must be >= 0")
	}
	if p.CostPrice < 0 {
		return Invalid("cost_price", "must be >= 0")
	}
	if p.Stock < 0 {
		return Invalid("stock", "must be >= 0")
	}
	if p.LaborRate < 0 {
		return Invalid("labor_rate", "must be >= 0")
	}
	cats := p.Categories[:0]
	for _, c := range p.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	p.Categories = cats
	p.Price = Round2(p.Price)
	p.CostPrice = Round2(p.CostPrice)
	p.LaborRate = Round2(p.LaborRate)
	return nil
}

type ProductFilter struct {
	Query      string
	Category   string
	Material   *bool
	Labor      *bool
	ActiveOnly bool
	MinPrice   *float64
	MaxPrice   *float64
	Sort       string // price_asc, price_desc, newest, name (default)
	Page       int
	PageSize   int
}
