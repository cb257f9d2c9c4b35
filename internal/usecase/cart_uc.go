package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

type CartUC struct {
	Carts    domain.CartRepo
	Products domain.ProductRepo
	Tenants  domain.TenantRepo
	Tx       domain.Transactor
}

func (uc *CartUC) Create(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) (*domain.Cart, error) {
	c := &domain.Cart{ID: uuid.New(), TenantID: tenantID, UserID: userID, Items: []domain.CartItem{}}
	if err := uc.Carts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

func (uc *CartUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.Cart, error) {
	return uc.Carts.FindByID(ctx, tenantID, id)
}

func (uc *CartUC) AddItem(ctx context.Context, tenantID, cartID, productID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty <= 0 {
		return nil, domain.Invalid("quantity", "must be > 0")
	}
	var out *domain.Cart
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.Carts.FindByID(ctx, tenantID, cartID); err != nil {
			return err
		}
		p, err := uc.Products.FindByID(ctx, tenantID, productID)
		if err != nil {
			return err
		}
		if !p.Active {
			return fmt.Errorf("product %s is inactive: %w", p.SKU, domain.ErrNotFound)
		}
		if err := uc.Carts.AddQuantity(ctx, cartID, productID, qty); err != nil {
			return err
		}
		if err := uc.Carts.Touch(ctx, cartID); err != nil {
			return err
		}
		out, err = uc.Carts.FindByID(ctx, tenantID, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem sets the line quantity; zero removes the line.
func (uc *CartUC) UpdateItem(ctx context.Context, tenantID, cartID, productID uuid.UUID, qty int) (*domain.Cart, error) {
	if qty < 0 {
		return nil, domain.Invalid("quantity", "must be >= 0")
	}
	var out *domain.Cart
	err := uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.Carts.FindByID(ctx, tenantID, cartID); err != nil {
			return err
		}
		var found bool
		var err error
		if qty == 0 {
			found, err = uc.Carts.RemoveItem(ctx, cartID, productID)
		} else {
			found, err = uc.Carts.SetQuantity(ctx, cartID, productID, qty)
		}
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("cart line %s: %w", productID, domain.ErrNotFound)
		}
		if err := uc.Carts.Touch(ctx, cartID); err != nil {
			return err
		}
		out, err = uc.Carts.FindByID(ctx, tenantID, cartID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (uc *CartUC) RemoveItem(ctx context.Context, tenantID, cartID, productID uuid.UUID) (*domain.Cart, error) {
	return uc.UpdateItem(ctx, tenantID, cartID, productID, 0)
}

func (uc *CartUC) Clear(ctx context.Context, tenantID, cartID uuid.UUID) error {
	return uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := uc.Carts.FindByID(ctx, tenantID, cartID); err != nil {
			return err
		}
		if err := uc.Carts.Clear(ctx, cartID); err != nil {
			return err
		}
		return uc.Carts.Touch(ctx, cartID)
	})
}

type cartLine struct {
	product  domain.Product
	quantity int
}

// resolve pairs cart lines with their active products. Lines whose product
// is gone or inactive come back in missing.
func (uc *CartUC) resolve(ctx context.Context, c *domain.Cart) (lines []cartLine, missing []uuid.UUID, err error) {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := uc.Products.FindByIDs(ctx, c.TenantID, ids)
	if err != nil {
		return nil, nil, err
	}
	for _, it := range c.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.Active {
			missing = append(missing, it.ProductID)
			continue
		}
		lines = append(lines, cartLine{product: p, quantity: it.Quantity})
	}
	return lines, missing, nil
}

func (uc *CartUC) tenantSettings(ctx context.Context, tenantID uuid.UUID) (domain.TenantSettings, error) {
	t, err := uc.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return domain.TenantSettings{}, fmt.Errorf("load tenant: %w", err)
	}
	return t.Settings, nil
}

func totalsFor(lines []cartLine, settings domain.TenantSettings) domain.CartTotals {
	amounts := make([]float64, 0, len(lines))
	for _, l := range lines {
		amounts = append(amounts, domain.LineTotal(l.product.Price, l.quantity))
	}
	subtotal := domain.Sum(amounts...)
	tax := domain.ApplyRate(subtotal, settings.TaxRate)
	return domain.CartTotals{Subtotal: subtotal, Tax: tax, Total: domain.Sum(subtotal, tax)}
}

func (uc *CartUC) CalculateTotals(ctx context.Context, tenantID, cartID uuid.UUID) (domain.CartTotals, error) {
	c, err := uc.Carts.FindByID(ctx, tenantID, cartID)
	if err != nil {
		return domain.CartTotals{}, err
	}
	lines, missing, err := uc.resolve(ctx, c)
	if err != nil {
		return domain.CartTotals{}, err
	}
	for _, id := range missing {
		log.Warn().Str("cart_id", cartID.String()).Str("product_id", id.String()).Msg("cart line skipped, product unavailable")
	}
	settings, err := uc.tenantSettings(ctx, tenantID)
	if err != nil {
		return domain.CartTotals{}, err
	}
	return totalsFor(lines, settings), nil
}
