package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/phenrril/storefront/internal/adapters/auth"
	"github.com/phenrril/storefront/internal/domain"
)

const (
	tenantHeader     = "X-Tenant-ID"
	tenantSlugHeader = "X-Tenant"
)

// access is the minimum caller a route accepts.
type access int

const (
	anyone access = iota
	signedIn
	staffOnly
	adminOnly
)

func (a access) role() domain.Role {
	switch a {
	case staffOnly:
		return domain.RoleStaff
	case adminOnly:
		return domain.RoleAdmin
	}
	return domain.RoleCustomer
}

// scoped resolves the tenant, verifies an optional bearer token against it
// and enforces the route's access level.
func (s *Server) scoped(a access, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t, err := s.tenants.Resolve(r.Context(), r.Header.Get(tenantHeader), r.Host)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set(tenantSlugHeader, t.Slug)
		ctx := context.WithValue(r.Context(), tenantKey, t)

		claims, err := s.bearer(r, t)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if claims != nil {
			ctx = context.WithValue(ctx, claimsKey, claims)
		}
		if a != anyone {
			if claims == nil {
				writeErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !claims.Role.AtLeast(a.role()) {
				writeErr(w, http.StatusForbidden, "forbidden", "requires role "+string(a.role()))
				return
			}
		}
		h(w, r.WithContext(ctx))
	})
}

// bearer returns nil claims when no Authorization header was sent.
func (s *Server) bearer(r *http.Request, t *domain.Tenant) (*auth.Claims, error) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return nil, nil
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return nil, auth.ErrInvalidToken
	}
	claims, err := s.tokens.Verify(strings.TrimSpace(tok), t.ID)
	if err != nil {
		return nil, err
	}
	if claims.Role == domain.RoleCustomer {
		return claims, nil
	}
	// Elevated roles come from the stored user, not the token.
	u, err := s.users.Get(r.Context(), t.ID, claims.UserID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, auth.ErrInvalidToken
	case err != nil:
		return nil, err
	case !u.IsActive:
		return nil, auth.ErrInvalidToken
	}
	claims.Role = u.Role
	return claims, nil
}
