package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type ShipmentRepo struct{ db *gorm.DB }

func NewShipmentRepo(db *gorm.DB) *ShipmentRepo { return &ShipmentRepo{db: db} }

func (r *ShipmentRepo) Create(ctx context.Context, s *domain.Shipment) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return conn(ctx, r.db).Omit("Items").Create(s).Error
}

func (r *ShipmentRepo) Save(ctx context.Context, s *domain.Shipment) error {
	return conn(ctx, r.db).Omit("Items").Save(s).Error
}

func (r *ShipmentRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Shipment, error) {
	var s domain.Shipment
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		First(&s, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *ShipmentRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]domain.Shipment, error) {
	var list []domain.Shipment
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Where("tenant_id = ? AND order_id = ?", tenantID, orderID).
		Order("created_at asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *ShipmentRepo) AddItems(ctx context.Context, items []domain.ShipmentItem) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
	}
	return conn(ctx, r.db).Create(&items).Error
}

func (r *ShipmentRepo) ShippedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		OrderItemID uuid.UUID
		Shipped     int
	}
	err := conn(ctx, r.db).Table("shipment_items").
		Select("shipment_items.order_item_id AS order_item_id, SUM(shipment_items.quantity) AS shipped").
		Joins("JOIN shipments ON shipments.id = shipment_items.shipment_id").
		Where("shipments.order_id = ?", orderID).
		Group("shipment_items.order_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.OrderItemID] = row.Shipped
	}
	return out, nil
}

func (r *ShipmentRepo) StatusesForOrder(ctx context.Context, orderID uuid.UUID) ([]domain.ShipmentStatus, error) {
	var out []domain.ShipmentStatus
	if err := conn(ctx, r.db).Model(&domain.Shipment{}).Where("order_id = ?", orderID).Pluck("status", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
