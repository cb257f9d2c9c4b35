package usecase

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/storefront/internal/domain"
)

type TenantUC struct {
	Tenants domain.TenantRepo
	Users   domain.UserRepo
	Hasher  domain.PasswordHasher
	Tx      domain.Transactor
	// BaseDomainLabels is how many trailing host labels form the shared
	// domain (2 for storefront.com, 1 for localhost). Only hosts with more
	// labels are matched by subdomain. Zero means 2.
	BaseDomainLabels int
}

type TenantInput struct {
	Name     string
	Slug     string
	Domain   string
	Settings domain.TenantSettings
}

func (uc *TenantUC) Create(ctx context.Context, in TenantInput) (*domain.Tenant, error) {
	t, err := uc.build(in)
	if err != nil {
		return nil, err
	}
	if err := uc.checkFree(ctx, t); err != nil {
		return nil, err
	}
	if err := uc.Tenants.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

func (uc *TenantUC) build(in TenantInput) (*domain.Tenant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "required")
	}
	slug := domain.NormalizeSlug(in.Slug)
	if slug == "" {
		slug = domain.NormalizeSlug(name)
	}
	if slug == "" {
		return nil, domain.Invalid("slug", "required")
	}
	if err := in.Settings.Validate(); err != nil {
		return nil, err
	}
	t := &domain.Tenant{ID: uuid.New(), Name: name, Slug: slug, Active: true, Settings: in.Settings}
	if d := strings.ToLower(strings.TrimSpace(in.Domain)); d != "" {
		t.Domain = &d
	}
	return t, nil
}

func (uc *TenantUC) checkFree(ctx context.Context, t *domain.Tenant) error {
	if _, err := uc.Tenants.FindBySlug(ctx, t.Slug); err == nil {
		return domain.Conflict("tenant slug %s already in use", t.Slug)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if t.Domain != nil {
		if _, err := uc.Tenants.FindByDomain(ctx, *t.Domain); err == nil {
			return domain.Conflict("domain %s already in use", *t.Domain)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

type SignupInput struct {
	TenantInput
	AdminEmail    string
	AdminPassword string
	FirstName     string
	LastName      string
}

// Signup creates a tenant and its first admin in one transaction.
func (uc *TenantUC) Signup(ctx context.Context, in SignupInput) (*domain.Tenant, *domain.User, error) {
	t, err := uc.build(in.TenantInput)
	if err != nil {
		return nil, nil, err
	}
	email, err := domain.NormalizeEmail(in.AdminEmail)
	if err != nil {
		return nil, nil, err
	}
	hash, err := uc.Hasher.Hash(in.AdminPassword)
	if err != nil {
		return nil, nil, err
	}
	u := &domain.User{
		ID:           uuid.New(),
		TenantID:     t.ID,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		IsActive:     true,
	}
	err = uc.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := uc.checkFree(ctx, t); err != nil {
			return err
		}
		if err := uc.Tenants.Create(ctx, t); err != nil {
			return err
		}
		return uc.Users.Create(ctx, u)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("signup %s: %w", t.Slug, err)
	}
	log.Info().Str("tenant", t.Slug).Str("admin", email).Msg("tenant signed up")
	return t, u, nil
}

func (uc *TenantUC) Get(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return uc.Tenants.FindByID(ctx, id)
}

func (uc *TenantUC) BySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return uc.Tenants.FindBySlug(ctx, slug)
}

func (uc *TenantUC) ByDomain(ctx context.Context, d string) (*domain.Tenant, error) {
	return uc.Tenants.FindByDomain(ctx, d)
}

func (uc *TenantUC) Default(ctx context.Context) (*domain.Tenant, error) {
	return uc.Tenants.FindBySlug(ctx, domain.DefaultTenantSlug)
}

// EnsureDefault seeds the default tenant when it is missing.
func (uc *TenantUC) EnsureDefault(ctx context.Context) (*domain.Tenant, error) {
	t, err := uc.Default(ctx)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return uc.Create(ctx, TenantInput{Name: "Default store", Slug: domain.DefaultTenantSlug})
}

func (uc *TenantUC) UpdateSettings(ctx context.Context, id uuid.UUID, s domain.TenantSettings) (*domain.Tenant, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	t, err := uc.Tenants.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Settings = s
	if err := uc.Tenants.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("update tenant settings: %w", err)
	}
	return t, nil
}

// Resolve picks the tenant for a request: explicit header (id or slug),
// then the host as a custom domain, then the first host label as a slug,
// then the default tenant.
func (uc *TenantUC) Resolve(ctx context.Context, header, host string) (*domain.Tenant, error) {
	t, err := uc.resolve(ctx, strings.TrimSpace(header), hostname(host))
	if err != nil {
		return nil, err
	}
	if !t.Active {
		return nil, domain.Unavailable("tenant " + t.Slug + " is inactive")
	}
	return t, nil
}

func (uc *TenantUC) resolve(ctx context.Context, header, host string) (*domain.Tenant, error) {
	if header != "" {
		if id, err := uuid.Parse(header); err == nil {
			return uc.Tenants.FindByID(ctx, id)
		}
		return uc.Tenants.FindBySlug(ctx, header)
	}
	if host != "" && net.ParseIP(host) == nil {
		t, err := uc.Tenants.FindByDomain(ctx, host)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		base := uc.BaseDomainLabels
		if base <= 0 {
			base = 2
		}
		if labels := strings.Split(host, "."); len(labels) > base {
			t, err := uc.Tenants.FindBySlug(ctx, labels[0])
			if err == nil {
				return t, nil
			}
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
	}
	return uc.Default(ctx)
}

func hostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
