package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type TenantRepo struct{ db *gorm.DB }

func NewTenantRepo(db *gorm.DB) *TenantRepo { return &TenantRepo{db: db} }

func (r *TenantRepo) Create(ctx context.Context, t *domain.Tenant) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(t).Error; err != nil {
		if isDuplicate(err) {
			return domain.Conflict("tenant slug or domain already in use")
		}
		return err
	}
	return nil
}

func (r *TenantRepo) Save(ctx context.Context, t *domain.Tenant) error {
	t.UpdatedAt = time.Now()
	if err := conn(ctx, r.db).Save(t).Error; err != nil {
		if isDuplicate(err) {
			return domain.Conflict("tenant slug or domain already in use")
		}
		return err
	}
	return nil
}

func (r *TenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := conn(ctx, r.db).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TenantRepo) FindBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := conn(ctx, r.db).First(&t, "slug = ?", strings.ToLower(strings.TrimSpace(slug))).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TenantRepo) FindByDomain(ctx context.Context, domainName string) (*domain.Tenant, error) {
	var t domain.Tenant
	d := strings.ToLower(strings.TrimSpace(domainName))
	if d == "" {
		return nil, domain.ErrNotFound
	}
	if err := conn(ctx, r.db).First(&t, "domain = ?", d).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (r *TenantRepo) List(ctx context.Context) ([]domain.Tenant, error) {
	var list []domain.Tenant
	if err := conn(ctx, r.db).Order("created_at asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
