package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/usecase"
)

type signupRequest struct {
	Name          string                `json:"name"`
	Slug          string                `json:"slug"`
	Domain        string                `json:"domain"`
	Settings      domain.TenantSettings `json:"settings"`
	AdminEmail    string                `json:"admin_email"`
	AdminPassword string                `json:"admin_password"`
	FirstName     string                `json:"first_name"`
	LastName      string                `json:"last_name"`
}

type sessionResponse struct {
	Token  string         `json:"token,omitempty"`
	User   *domain.User   `json:"user"`
	Tenant *domain.Tenant `json:"tenant,omitempty"`
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, u, err := s.tenants.Signup(r.Context(), usecase.SignupInput{
		TenantInput: usecase.TenantInput{
			Name:     req.Name,
			Slug:     req.Slug,
			Domain:   req.Domain,
			Settings: req.Settings,
		},
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.tokens.Issue(u)
	if err != nil {
		writeError(w, r, fmt.Errorf("issue token: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Token: tok, User: u, Tenant: t})
}

func (s *Server) currentTenant(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tenantFrom(r.Context()))
}

func (s *Server) updateTenantSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.TenantSettings
	if err := decode(r, &settings); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.tenants.UpdateSettings(r.Context(), tenantFrom(r.Context()).ID, settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type credentials struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// register always creates customers; staff accounts are made by admins.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.users.Register(r.Context(), tenantFrom(r.Context()).ID, usecase.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleCustomer,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	tok, u, err := s.users.Authenticate(r.Context(), tenantFrom(r.Context()).ID, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: tok, User: u})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), tenantFrom(r.Context()).ID, claimsFrom(r.Context()).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

const oauthStateCookie = "oauth_state"

func (s *Server) googleLogin(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeError(w, r, domain.Unavailable("google sign-in is not configured"))
		return
	}
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/google",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

func (s *Server) googleCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauthCfg == nil {
		writeError(w, r, domain.Unavailable("google sign-in is not configured"))
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie(oauthStateCookie)
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		writeError(w, r, domain.Invalid("state", "does not match"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/auth/google", MaxAge: -1, Expires: time.Unix(0, 0)})

	tok, err := s.oauthCfg.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("google code exchange failed")
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	resp, err := s.oauthCfg.Client(r.Context(), tok).Get(s.userInfoURL)
	if err != nil {
		writeError(w, r, fmt.Errorf("google userinfo: %w", err))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("google userinfo rejected")
		writeError(w, r, domain.ErrUnauthorized)
		return
	}
	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&info); err != nil {
		writeError(w, r, fmt.Errorf("decode google userinfo: %w", err))
		return
	}
	jwt, u, err := s.users.LoginWithGoogle(r.Context(), tenantFrom(r.Context()).ID, usecase.GoogleProfile{
		Sub:           info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		GivenName:     info.GivenName,
		FamilyName:    info.FamilyName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: jwt, User: u})
}
