package httpserver

import (
	"context"

	"github.com/phenrril/storefront/internal/adapters/auth"
	"github.com/phenrril/storefront/internal/domain"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	tenantKey
	claimsKey
)

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func tenantFrom(ctx context.Context) *domain.Tenant {
	t, _ := ctx.Value(tenantKey).(*domain.Tenant)
	return t
}

// claimsFrom is nil for anonymous requests.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey).(*auth.Claims)
	return c
}

func isStaff(ctx context.Context) bool {
	c := claimsFrom(ctx)
	return c != nil && c.Role.AtLeast(domain.RoleStaff)
}
