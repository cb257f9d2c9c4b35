package postgres

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type ProductRepo struct{ db *gorm.DB }

func NewProductRepo(db *gorm.DB) *ProductRepo { return &ProductRepo{db: db} }

func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if err := conn(ctx, r.db).Create(p).Error; err != nil {
		if isDuplicate(err) {
			return domain.Conflict("sku %s already exists", p.SKU)
		}
		return err
	}
	return nil
}

func (r *ProductRepo) Save(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now()
	if err := conn(ctx, r.db).Save(p).Error; err != nil {
		if isDuplicate(err) {
			return domain.Conflict("sku %s already exists", p.SKU)
		}
		return err
	}
	return nil
}

func (r *ProductRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Product, error) {
	var p domain.Product
	if err := conn(ctx, r.db).First(&p, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepo) FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*domain.Product, error) {
	var p domain.Product
	if err := conn(ctx, r.db).First(&p, "tenant_id = ? AND sku = ?", tenantID, strings.TrimSpace(sku)).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ProductRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	out := make(map[uuid.UUID]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []domain.Product
	if err := conn(ctx, r.db).Where("tenant_id = ? AND id IN ?", tenantID, ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepo) List(ctx context.Context, tenantID uuid.UUID, f domain.ProductFilter) ([]domain.Product, int64, error) {
	var list []domain.Product
	q := conn(ctx, r.db).Model(&domain.Product{}).Where("tenant_id = ?", tenantID)
	if f.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		// categories is a JSON array; match the quoted element.
		q = q.Where("CAST(categories AS TEXT) LIKE ?", `%"`+c+`"%`)
	}
	if f.Material != nil {
		q = q.Where("is_material = ?", *f.Material)
	}
	if f.Labor != nil {
		q = q.Where("is_labor = ?", *f.Labor)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if query := strings.TrimSpace(f.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	switch f.Sort {
	case "price_desc":
		q = q.Order("price desc")
	case "price_asc":
		q = q.Order("price asc")
	case "newest":
		q = q.Order("created_at desc")
	default:
		q = q.Order("name asc")
	}
	page, size := domain.Paging(f.Page, f.PageSize, 20, 100)
	if err := q.Offset(offset(page, size)).Limit(size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *ProductRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := conn(ctx, r.db).Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&domain.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DistinctCategories flattens every product's category list.
func (r *ProductRepo) DistinctCategories(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	var list []domain.Product
	if err := conn(ctx, r.db).Select("categories").Where("tenant_id = ?", tenantID).Find(&list).Error; err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	cats := []string{}
	for _, p := range list {
		for _, c := range p.Categories {
			if _, ok := seen[c]; ok || c == "" {
				continue
			}
			seen[c] = struct{}{}
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)
	return cats, nil
}
