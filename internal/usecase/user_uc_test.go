package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()

	u, err := f.users.Register(ctx, f.tenant.ID, usecase.RegisterInput{Email: "Jo@Example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, u.Role)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err = f.users.Register(ctx, f.tenant.ID, usecase.RegisterInput{Email: "jo@example.com", Password: "correct-horse"})
	assert.True(t, domain.IsConflict(err))

	tok, got, err := f.users.Authenticate(ctx, f.tenant.ID, "jo@example.com", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, u.ID, got.ID)

	_, _, err = f.users.Authenticate(ctx, f.tenant.ID, "jo@example.com", "wrong-horse")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	_, _, err = f.users.Authenticate(ctx, f.tenant.ID, "nobody@example.com", "correct-horse")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))

	other := newFixture(t, domain.TenantSettings{})
	_, _, err = other.users.Authenticate(ctx, other.tenant.ID, "jo@example.com", "correct-horse")
	assert.True(t, errors.Is(err, domain.ErrUnauthorized), "users are scoped to their tenant")

	u.IsActive = false
	require.NoError(t, f.users.Users.Save(ctx, u))
	_, _, err = f.users.Authenticate(ctx, f.tenant.ID, "jo@example.com", "correct-horse")
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestLoginWithGoogle(t *testing.T) {
	f := newFixture(t, domain.TenantSettings{})
	ctx := context.Background()

	existing, err := f.users.Register(ctx, f.tenant.ID, usecase.RegisterInput{Email: "lin@example.com", Password: "password123"})
	require.NoError(t, err)

	_, linked, err := f.users.LoginWithGoogle(ctx, f.tenant.ID, usecase.GoogleProfile{Sub: "g-1", Email: "lin@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID, "verified email links the account")
	require.NotNil(t, linked.GoogleSub)
	assert.Equal(t, "g-1", *linked.GoogleSub)

	_, fresh, err := f.users.LoginWithGoogle(ctx, f.tenant.ID, usecase.GoogleProfile{Sub: "g-2", Email: "new@example.com", EmailVerified: true, GivenName: "New"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, fresh.Role)
	assert.Equal(t, "New", fresh.FirstName)

	_, again, err := f.users.LoginWithGoogle(ctx, f.tenant.ID, usecase.GoogleProfile{Sub: "g-2"})
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, again.ID, "known subject logs in without email")

	_, _, err = f.users.LoginWithGoogle(ctx, f.tenant.ID, usecase.GoogleProfile{Sub: "g-3", Email: "unverified@example.com"})
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}
