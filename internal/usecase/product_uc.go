package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

type ProductUC struct {
	Products  domain.ProductRepo
	Describer domain.ProductDescriber
	Pages     domain.ProductPageReader
	// Cache drops order views that embed current product data.
	Cache domain.OrderCacheInvalidator
}

func (uc *ProductUC) invalidate(ctx context.Context, tenantID uuid.UUID) {
	if uc.Cache != nil {
		uc.Cache.InvalidateTenant(ctx, tenantID)
	}
}

func (uc *ProductUC) List(ctx context.Context, tenantID uuid.UUID, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return nil, 0, domain.Invalid("min_price", "must be <= max_price")
	}
	return uc.Products.List(ctx, tenantID, f)
}

func (uc *ProductUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Product, error) {
	return uc.Products.FindByID(ctx, tenantID, id)
}

func (uc *ProductUC) GetBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*domain.Product, error) {
	if sku == "" {
		return nil, domain.Invalid("sku", "required")
	}
	return uc.Products.FindBySKU(ctx, tenantID, sku)
}

func (uc *ProductUC) Create(ctx context.Context, tenantID uuid.UUID, p *domain.Product) error {
	p.ID = uuid.New()
	p.TenantID = tenantID
	if err := p.Normalize(); err != nil {
		return err
	}
	if err := uc.skuFree(ctx, tenantID, p.SKU, uuid.Nil); err != nil {
		return err
	}
	if p.Description == "" && uc.Describer != nil {
		desc, err := uc.Describer.Describe(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("sku", p.SKU).Msg("product description generation failed")
		} else {
			p.Description = desc
		}
	}
	if err := uc.Products.Create(ctx, p); err != nil {
		return fmt.Errorf("create product %s: %w", p.SKU, err)
	}
	return nil
}

// Update replaces the editable fields of product id with those of in.
func (uc *ProductUC) Update(ctx context.Context, tenantID, id uuid.UUID, in *domain.Product) (*domain.Product, error) {
	p, err := uc.Products.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	p.SKU = in.SKU
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	p.CostPrice = in.CostPrice
	p.Stock = in.Stock
	p.Categories = in.Categories
	p.IsMaterial = in.IsMaterial
	p.IsLabor = in.IsLabor
	p.LaborRate = in.LaborRate
	p.Active = in.Active
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	if err := uc.skuFree(ctx, tenantID, p.SKU, p.ID); err != nil {
		return nil, err
	}
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("update product %s: %w", p.SKU, err)
	}
	uc.invalidate(ctx, tenantID)
	return p, nil
}

func (uc *ProductUC) skuFree(ctx context.Context, tenantID uuid.UUID, sku string, self uuid.UUID) error {
	other, err := uc.Products.FindBySKU(ctx, tenantID, sku)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return domain.Conflict("sku %s already exists", sku)
	}
	return nil
}

func (uc *ProductUC) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := uc.Products.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	uc.invalidate(ctx, tenantID)
	return nil
}

func (uc *ProductUC) Categories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	return uc.Products.DistinctCategories(ctx, tenantID)
}

type ImportInput struct {
	URL       string
	SKU       string
	CostPrice float64
	Stock     int
}

// Import drafts an inactive product from a vendor page so staff can review
// it before it is listed. Attribute tables are appended to the description.
func (uc *ProductUC) Import(ctx context.Context, tenantID uuid.UUID, in ImportInput) (*domain.Product, error) {
	if uc.Pages == nil {
		return nil, domain.Unavailable("product import is not configured")
	}
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, domain.Invalid("url", "must be an absolute http(s) url")
	}
	page, err := uc.Pages.Read(ctx, u.String())
	if err != nil {
		log.Warn().Err(err).Str("url", u.String()).Msg("product page import failed")
		return nil, domain.Invalid("url", "page could not be read")
	}

	p := &domain.Product{
		SKU:         in.SKU,
		Name:        page.Title,
		Description: pageDescription(page),
		CostPrice:   in.CostPrice,
		Stock:       in.Stock,
	}
	if page.Price != nil {
		p.Price = *page.Price
	}
	if page.Category != "" {
		p.Categories = []string{page.Category}
	}
	if err := uc.Create(ctx, tenantID, p); err != nil {
		return nil, err
	}
	log.Info().Str("sku", p.SKU).Str("url", u.String()).Msg("product imported")
	return p, nil
}

func pageDescription(page *domain.ProductPage) string {
	lines := make([]string, 0, len(page.Specs))
	for k, v := range page.Specs {
		lines = append(lines, k+": "+v)
	}
	sort.Strings(lines)
	parts := make([]string, 0, 2)
	if page.Description != "" {
		parts = append(parts, page.Description)
	}
	if len(lines) > 0 {
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}
