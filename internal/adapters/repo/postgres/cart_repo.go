package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/storefront/internal/domain"
)

type CartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) *CartRepo { return &CartRepo{db: db} }

func (r *CartRepo) Create(ctx context.Context, c *domain.Cart) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return conn(ctx, r.db).Omit("Items").Create(c).Error
}

func (r *CartRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Cart, error) {
	var c domain.Cart
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&c, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// AddQuantity inserts the line or increments it in a single upsert so
// concurrent adds of the same product never lose an update.
func (r *CartRepo) AddQuantity(ctx context.Context, cartID, productID uuid.UUID, delta int) error {
	now := time.Now()
	item := domain.CartItem{
		ID:        uuid.New(),
		CartID:    cartID,
		ProductID: productID,
		Quantity:  delta,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"quantity":   gorm.Expr("cart_items.quantity + ?", delta),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

func (r *CartRepo) SetQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (bool, error) {
	res := conn(ctx, r.db).Model(&domain.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now()})
	return res.RowsAffected > 0, res.Error
}

func (r *CartRepo) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	res := conn(ctx, r.db).Where("cart_id = ? AND product_id = ?", cartID, productID).Delete(&domain.CartItem{})
	return res.RowsAffected > 0, res.Error
}

func (r *CartRepo) Clear(ctx context.Context, cartID uuid.UUID) error {
	return conn(ctx, r.db).Where("cart_id = ?", cartID).Delete(&domain.CartItem{}).Error
}

func (r *CartRepo) Touch(ctx context.Context, cartID uuid.UUID) error {
	return conn(ctx, r.db).Model(&domain.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now()).Error
}
