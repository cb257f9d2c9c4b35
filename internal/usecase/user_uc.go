package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/phenrril/storefront/internal/domain"
)

type UserUC struct {
	Users  domain.UserRepo
	Hasher domain.PasswordHasher
	Tokens domain.TokenIssuer
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

func (uc *UserUC) Register(ctx context.Context, tenantID uuid.UUID, in RegisterInput) (*domain.User, error) {
	email, err := domain.NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if role, err = domain.ParseRole(string(role)); err != nil {
		return nil, err
	}
	if _, err := uc.Users.FindByEmail(ctx, tenantID, email); err == nil {
		return nil, domain.Conflict("email %s already registered", email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	hash, err := uc.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Email:        email,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := uc.Users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	return u, nil
}

// Authenticate checks credentials and returns a signed token. Unknown
// emails and wrong passwords are indistinguishable to the caller.
func (uc *UserUC) Authenticate(ctx context.Context, tenantID uuid.UUID, email, password string) (string, *domain.User, error) {
	u, err := uc.Users.FindByEmail(ctx, tenantID, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrUnauthorized
		}
		return "", nil, err
	}
	if u.PasswordHash == "" || uc.Hasher.Compare(u.PasswordHash, password) != nil {
		return "", nil, domain.ErrUnauthorized
	}
	if !u.IsActive {
		return "", nil, domain.ErrForbidden
	}
	tok, err := uc.Tokens.Issue(u)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

type GoogleProfile struct {
	Sub           string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
}

// LoginWithGoogle links the Google account to an existing user with the same
// verified email, or creates a customer.
func (uc *UserUC) LoginWithGoogle(ctx context.Context, tenantID uuid.UUID, p GoogleProfile) (string, *domain.User, error) {
	if strings.TrimSpace(p.Sub) == "" {
		return "", nil, domain.Invalid("sub", "required")
	}
	u, err := uc.Users.FindByGoogleSub(ctx, tenantID, p.Sub)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", nil, err
	}
	if u == nil {
		if !p.EmailVerified {
			return "", nil, domain.ErrUnauthorized
		}
		email, err := domain.NormalizeEmail(p.Email)
		if err != nil {
			return "", nil, err
		}
		u, err = uc.Users.FindByEmail(ctx, tenantID, email)
		switch {
		case err == nil:
			sub := p.Sub
			u.GoogleSub = &sub
			if err := uc.Users.Save(ctx, u); err != nil {
				return "", nil, fmt.Errorf("link google account: %w", err)
			}
		case errors.Is(err, domain.ErrNotFound):
			sub := p.Sub
			u = &domain.User{
				ID:        uuid.New(),
				TenantID:  tenantID,
				Email:     email,
				FirstName: p.GivenName,
				LastName:  p.FamilyName,
				Role:      domain.RoleCustomer,
				IsActive:  true,
				GoogleSub: &sub,
			}
			if err := uc.Users.Create(ctx, u); err != nil {
				return "", nil, fmt.Errorf("create google user: %w", err)
			}
		default:
			return "", nil, err
		}
	}
	if !u.IsActive {
		return "", nil, domain.ErrForbidden
	}
	tok, err := uc.Tokens.Issue(u)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

func (uc *UserUC) Get(ctx context.Context, tenantID, id uuid.UUID) (*domain.User, error) {
	return uc.Users.FindByID(ctx, tenantID, id)
}
