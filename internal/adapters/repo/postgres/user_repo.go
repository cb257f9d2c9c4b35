package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/domain"
)

type UserRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(u.Email)
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return domain.Conflict("email %s already registered", u.Email)
		}
		return err
	}
	return nil
}

func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	u.Email = strings.ToLower(u.Email)
	return conn(ctx, r.db).Save(u).Error
}

func (r *UserRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	if err := conn(ctx, r.db).First(&u, "tenant_id = ? AND id = ?", tenantID, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error) {
	var u domain.User
	e := strings.ToLower(strings.TrimSpace(email))
	if e == "" {
		return nil, domain.ErrNotFound
	}
	if err := conn(ctx, r.db).First(&u, "tenant_id = ? AND LOWER(email) = ?", tenantID, e).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *UserRepo) FindByGoogleSub(ctx context.Context, tenantID uuid.UUID, sub string) (*domain.User, error) {
	var u domain.User
	if strings.TrimSpace(sub) == "" {
		return nil, domain.ErrNotFound
	}
	if err := conn(ctx, r.db).First(&u, "tenant_id = ? AND google_sub = ?", tenantID, sub).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
