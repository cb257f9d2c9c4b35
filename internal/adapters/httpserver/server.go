package httpserver

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/phenrril/storefront/internal/adapters/auth"
	"github.com/phenrril/storefront/internal/adapters/payments/stripe"
	"github.com/phenrril/storefront/internal/usecase"
)

// Instrumentation is implemented by adapters/metrics.
type Instrumentation interface {
	Handler() http.Handler
	Middleware(http.Handler) http.Handler
}

// Deps holds everything the HTTP layer calls into.
type Deps struct {
	Tenants   *usecase.TenantUC
	Users     *usecase.UserUC
	Products  *usecase.ProductUC
	Carts     *usecase.CartUC
	Orders    *usecase.OrderUC
	Queries   *usecase.OrderQueries
	Shipments *usecase.ShipmentUC
	Estimates *usecase.EstimateUC
	Tokens    *auth.Tokens
	Webhooks  *stripe.Verifier
	OAuth     *oauth2.Config
	// Metrics serves /metrics and instruments routed requests when set.
	Metrics Instrumentation
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit int
}

type Server struct {
	mux       *http.ServeMux
	tenants   *usecase.TenantUC
	users     *usecase.UserUC
	products  *usecase.ProductUC
	carts     *usecase.CartUC
	orders    *usecase.OrderUC
	queries   *usecase.OrderQueries
	shipments *usecase.ShipmentUC
	estimates *usecase.EstimateUC
	tokens    *auth.Tokens
	webhooks  *stripe.Verifier
	oauthCfg  *oauth2.Config

	userInfoURL string
}

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

func New(d Deps) http.Handler {
	return newServer(d).handler(d)
}

func newServer(d Deps) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		tenants:     d.Tenants,
		users:       d.Users,
		products:    d.Products,
		carts:       d.Carts,
		orders:      d.Orders,
		queries:     d.Queries,
		shipments:   d.Shipments,
		estimates:   d.Estimates,
		tokens:      d.Tokens,
		webhooks:    d.Webhooks,
		oauthCfg:    d.OAuth,
		userInfoURL: googleUserInfoURL,
	}
	if s.webhooks == nil {
		s.webhooks = stripe.NewVerifier("", 0)
	}
	s.routes()
	if d.Metrics != nil {
		s.mux.Handle("GET /metrics", d.Metrics.Handler())
	}
	return s
}

func (s *Server) handler(d Deps) http.Handler {
	var h http.Handler = s.mux
	if d.Metrics != nil {
		// innermost, so the matched pattern is visible after routing
		h = d.Metrics.Middleware(h)
	}
	mws := []Middleware{SecurityHeaders}
	if d.RateLimit > 0 {
		mws = append(mws, RateLimit(d.RateLimit))
	}
	mws = append(mws, Recovery, Logging, RequestID)
	return Chain(h, mws...)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.healthz)

	s.mux.HandleFunc("POST /api/signup", s.signup)
	s.mux.Handle("GET /api/tenant", s.scoped(anyone, s.currentTenant))
	s.mux.Handle("PUT /api/tenant/settings", s.scoped(adminOnly, s.updateTenantSettings))

	s.mux.Handle("POST /api/auth/register", s.scoped(anyone, s.register))
	s.mux.Handle("POST /api/auth/login", s.scoped(anyone, s.login))
	s.mux.Handle("GET /api/me", s.scoped(signedIn, s.me))
	s.mux.Handle("GET /auth/google/login", s.scoped(anyone, s.googleLogin))
	s.mux.Handle("GET /auth/google/callback", s.scoped(anyone, s.googleCallback))

	s.mux.Handle("GET /api/products", s.scoped(anyone, s.listProducts))
	s.mux.Handle("GET /api/products/categories", s.scoped(anyone, s.productCategories))
	s.mux.Handle("GET /api/products/sku/{sku}", s.scoped(anyone, s.productBySKU))
	s.mux.Handle("GET /api/products/{id}", s.scoped(anyone, s.getProduct))
	s.mux.Handle("POST /api/products", s.scoped(staffOnly, s.createProduct))
	s.mux.Handle("POST /api/products/import", s.scoped(staffOnly, s.importProduct))
	s.mux.Handle("PUT /api/products/{id}", s.scoped(staffOnly, s.updateProduct))
	s.mux.Handle("DELETE /api/products/{id}", s.scoped(staffOnly, s.deleteProduct))

	s.mux.Handle("POST /api/carts", s.scoped(anyone, s.createCart))
	s.mux.Handle("GET /api/carts/{id}", s.scoped(anyone, s.getCart))
	s.mux.Handle("GET /api/carts/{id}/totals", s.scoped(anyone, s.cartTotals))
	s.mux.Handle("POST /api/carts/{id}/items", s.scoped(anyone, s.addCartItem))
	s.mux.Handle("PUT /api/carts/{id}/items/{product_id}", s.scoped(anyone, s.updateCartItem))
	s.mux.Handle("DELETE /api/carts/{id}/items/{product_id}", s.scoped(anyone, s.removeCartItem))
	s.mux.Handle("DELETE /api/carts/{id}/items", s.scoped(anyone, s.clearCart))

	s.mux.Handle("POST /api/orders", s.scoped(anyone, s.checkout))
	s.mux.Handle("GET /api/orders", s.scoped(signedIn, s.listOrders))
	s.mux.Handle("GET /api/orders/{id}", s.scoped(signedIn, s.getOrder))
	s.mux.Handle("GET /api/orders/{id}/items", s.scoped(signedIn, s.orderItems))
	s.mux.Handle("PATCH /api/orders/{id}/status", s.scoped(staffOnly, s.updateOrderStatus))
	s.mux.Handle("POST /api/orders/{id}/payment", s.scoped(staffOnly, s.recordPayment))
	s.mux.Handle("POST /api/orders/{id}/cancel", s.scoped(signedIn, s.cancelOrder))
	s.mux.Handle("POST /api/orders/{id}/notes", s.scoped(staffOnly, s.addOrderNote))
	s.mux.Handle("POST /api/orders/{id}/shipments", s.scoped(staffOnly, s.createShipment))
	s.mux.Handle("GET /api/orders/{id}/shipments", s.scoped(staffOnly, s.listShipments))

	s.mux.Handle("GET /api/shipments/{id}", s.scoped(staffOnly, s.getShipment))
	s.mux.Handle("POST /api/shipments/{id}/items", s.scoped(staffOnly, s.addShipmentItems))
	s.mux.Handle("PATCH /api/shipments/{id}/status", s.scoped(staffOnly, s.updateShipmentStatus))

	s.mux.Handle("GET /api/admin/orders/summary", s.scoped(staffOnly, s.orderSummary))
	s.mux.Handle("GET /api/admin/orders/export", s.scoped(staffOnly, s.exportOrders))

	s.mux.Handle("POST /api/estimates", s.scoped(staffOnly, s.createEstimate))
	s.mux.Handle("GET /api/estimates", s.scoped(staffOnly, s.listEstimates))
	s.mux.Handle("GET /api/estimates/{id}", s.scoped(staffOnly, s.getEstimate))
	s.mux.Handle("PUT /api/estimates/{id}", s.scoped(staffOnly, s.updateEstimate))
	s.mux.Handle("PATCH /api/estimates/{id}/status", s.scoped(staffOnly, s.setEstimateStatus))
	s.mux.Handle("POST /api/estimates/{id}/convert", s.scoped(staffOnly, s.convertEstimate))

	s.mux.HandleFunc("POST /webhooks/stripe", s.stripeWebhook)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
