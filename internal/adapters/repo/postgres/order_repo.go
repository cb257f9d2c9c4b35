package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/storefront/internal/domain"
)

type OrderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) *OrderRepo { return &OrderRepo{db: db} }

// Create inserts the order with its items.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Version == 0 {
		o.Version = 1
	}
	for i := range o.Items {
		if o.Items[i].ID == uuid.Nil {
			o.Items[i].ID = uuid.New()
		}
		o.Items[i].OrderID = o.ID
	}
	return conn(ctx, r.db).Omit("Notes").Create(o).Error
}

func (r *OrderRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := conn(ctx, r.db).
		Preload("Items").
		Preload("Notes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&o, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepo) FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&o, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (r *OrderRepo) filtered(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) *gorm.DB {
	q := conn(ctx, r.db).Model(&domain.Order{}).Where("tenant_id = ?", tenantID)
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("created_at < ?", *f.To)
	}
	return q
}

// List returns one page of orders, newest first, plus the total count.
func (r *OrderRepo) List(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.Order, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := domain.Paging(f.Page, f.PageSize, 20, 100)
	var list []domain.Order
	err := r.filtered(ctx, tenantID, f).
		Preload("Items").
		Order("created_at desc").
		Offset(offset(page, size)).Limit(size).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *OrderRepo) Summaries(ctx context.Context, tenantID uuid.UUID, f domain.OrderFilter) ([]domain.OrderStatusSummary, error) {
	out := []domain.OrderStatusSummary{}
	err := r.filtered(ctx, tenantID, f).
		Select("status, COUNT(*) AS orders, COALESCE(SUM(total), 0) AS revenue").
		Group("status").
		Order("status asc").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Revenue = domain.Round2(out[i].Revenue)
	}
	return out, nil
}

// ItemsWithProducts attaches the current catalog state to each line. Lines
// whose product was deleted keep nil product fields.
func (r *OrderRepo) ItemsWithProducts(ctx context.Context, tenantID, orderID uuid.UUID) ([]domain.OrderItemDetail, error) {
	var n int64
	if err := conn(ctx, r.db).Model(&domain.Order{}).Where("tenant_id = ? AND id = ?", tenantID, orderID).Count(&n).Error; err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, domain.ErrNotFound
	}
	var items []domain.OrderItem
	if err := conn(ctx, r.db).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if it.ProductID != nil {
			ids = append(ids, *it.ProductID)
		}
	}
	products := map[uuid.UUID]domain.Product{}
	if len(ids) > 0 {
		var list []domain.Product
		if err := conn(ctx, r.db).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&list).Error; err != nil {
			return nil, err
		}
		for _, p := range list {
			products[p.ID] = p
		}
	}
	out := make([]domain.OrderItemDetail, 0, len(items))
	for _, it := range items {
		d := domain.OrderItemDetail{OrderItem: it}
		if it.ProductID != nil {
			if p, ok := products[*it.ProductID]; ok {
				price, stock, active := p.Price, p.Stock, p.Active
				d.CurrentPrice, d.CurrentStock, d.ProductActive = &price, &stock, &active
			}
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *OrderRepo) CompareAndSwap(ctx context.Context, tenantID, id uuid.UUID, version int, ch domain.OrderChanges) error {
	updates := map[string]any{
		"version":    version + 1,
		"updated_at": time.Now(),
	}
	if ch.Status != nil {
		updates["status"] = *ch.Status
	}
	if ch.PaymentID != nil {
		updates["payment_id"] = *ch.PaymentID
	}
	res := conn(ctx, r.db).Model(&domain.Order{}).
		Where("tenant_id = ? AND id = ? AND version = ?", tenantID, id, version).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var n int64
	if err := conn(ctx, r.db).Model(&domain.Order{}).Where("tenant_id = ? AND id = ?", tenantID, id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.Conflict("order %s was modified concurrently", id)
}

func (r *OrderRepo) TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var o domain.Order
	if err := conn(ctx, r.db).Select("tenant_id").First(&o, "id = ?", id).Error; err != nil {
		return uuid.Nil, notFound(err)
	}
	return o.TenantID, nil
}

func (r *OrderRepo) AddNote(ctx context.Context, n *domain.OrderNote) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	return conn(ctx, r.db).Create(n).Error
}
