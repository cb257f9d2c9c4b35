package postgres

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type EstimateRepo struct{ db *gorm.DB }

func NewEstimateRepo(db *gorm.DB) *EstimateRepo { return &EstimateRepo{db: db} }

func prepareLines(e *domain.Estimate) {
	for i := range e.Materials {
		if e.Materials[i].ID == uuid.Nil {
			e.Materials[i].ID = uuid.New()
		}
		e.Materials[i].EstimateID = e.ID
	}
	for i := range e.Labor {
		if e.Labor[i].ID == uuid.Nil {
			e.Labor[i].ID = uuid.New()
		}
		e.Labor[i].EstimateID = e.ID
	}
}

func (r *EstimateRepo) Create(ctx context.Context, e *domain.Estimate) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Version == 0 {
		e.Version = 1
	}
	prepareLines(e)
	return conn(ctx, r.db).Create(e).Error
}

// Save rewrites the header and swaps every material and labor line. It only
// succeeds when the stored version still equals e.Version, and bumps it; a
// concurrent writer gets a ConflictError.
func (r *EstimateRepo) Save(ctx context.Context, e *domain.Estimate) error {
	prepareLines(e)
	write := func(tx *gorm.DB) error {
		res := tx.Model(&domain.Estimate{}).
			Where("tenant_id = ? AND id = ? AND version = ?", e.TenantID, e.ID, e.Version).
			UpdateColumn("version", gorm.Expr("version + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&domain.Estimate{}).Where("tenant_id = ? AND id = ?", e.TenantID, e.ID).Count(&n).Error; err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrNotFound
			}
			return domain.Conflict("estimate %s was modified concurrently", e.ID)
		}
		e.Version++
		if err := tx.Where("estimate_id = ?", e.ID).Delete(&domain.EstimateMaterial{}).Error; err != nil {
			return err
		}
		if err := tx.Where("estimate_id = ?", e.ID).Delete(&domain.EstimateLabor{}).Error; err != nil {
			return err
		}
		if err := tx.Omit("Materials", "Labor").Save(e).Error; err != nil {
			return err
		}
		if len(e.Materials) > 0 {
			if err := tx.Create(&e.Materials).Error; err != nil {
				return err
			}
		}
		if len(e.Labor) > 0 {
			if err := tx.Create(&e.Labor).Error; err != nil {
				return err
			}
		}
		return nil
	}
	if tx := txFromContext(ctx); tx != nil {
		return write(tx)
	}
	return r.db.WithContext(ctx).Transaction(write)
}

func (r *EstimateRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Estimate, error) {
	var e domain.Estimate
	err := conn(ctx, r.db).Preload("Materials").Preload("Labor").
		First(&e, "tenant_id = ? AND id = ?", tenantID, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (r *EstimateRepo) List(ctx context.Context, tenantID uuid.UUID, f domain.EstimateFilter) ([]domain.Estimate, int64, error) {
	q := conn(ctx, r.db).Model(&domain.Estimate{}).Where("tenant_id = ?", tenantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	page, size := domain.Paging(f.Page, f.PageSize, 20, 100)
	var list []domain.Estimate
	if err := q.Preload("Materials").Preload("Labor").Order("created_at desc").
		Offset(offset(page, size)).Limit(size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
