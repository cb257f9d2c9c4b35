package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultTenantSlug = "default"

type TenantSettings struct {
	Theme            map[string]string `json:"theme,omitempty"`
	TaxRate          float64           `json:"tax_rate"`
	ShippingFlat     float64           `json:"shipping_flat"`
	EstimatesEnabled *bool             `json:"estimates_enabled,omitempty"`
}

// EstimatesOn defaults to true when the tenant never set the flag.
func (s TenantSettings) EstimatesOn() bool {
	return s.EstimatesEnabled == nil || *s.EstimatesEnabled
}

func (s TenantSettings) Validate() error {
	if s.TaxRate < 0 || s.TaxRate > 100 {
		return Invalid("tax_rate", "must be between 0 and 100")
	}
	if s.ShippingFlat < 0 {
		return Invalid("shipping_flat", "must be >= 0")
	}
	return nil
}

type Tenant struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"size:140;not null" json:"name"`
	Slug      string         `gorm:"size:80;not null;uniqueIndex" json:"slug"`
	Domain    *string        `gorm:"size:190;uniqueIndex" json:"domain,omitempty"`
	Active    bool           `gorm:"not null;index" json:"active"`
	Settings  TenantSettings `gorm:"type:jsonb;serializer:json" json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NormalizeSlug lower-cases and dashes a display name or slug candidate.
func NormalizeSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
