package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"
	"go.temporal.io/sdk/client"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/phenrril/storefront/internal/adapters/ai"
	"github.com/phenrril/storefront/internal/adapters/auth"
	"github.com/phenrril/storefront/internal/adapters/cache"
	"github.com/phenrril/storefront/internal/adapters/httpserver"
	"github.com/phenrril/storefront/internal/adapters/metrics"
	"github.com/phenrril/storefront/internal/adapters/payments/stripe"
	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/adapters/scraper"
	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/notify"
	"github.com/phenrril/storefront/internal/usecase"
)

type App struct {
	Config *Config
	DB     *gorm.DB

	Metrics     *metrics.Metrics
	Tokens      *auth.Tokens
	Webhooks    *stripe.Verifier
	OAuthConfig *oauth2.Config

	TenantUC   *usecase.TenantUC
	UserUC     *usecase.UserUC
	ProductUC  *usecase.ProductUC
	CartUC     *usecase.CartUC
	OrderUC    *usecase.OrderUC
	Queries    *usecase.OrderQueries
	ShipmentUC *usecase.ShipmentUC
	EstimateUC *usecase.EstimateUC

	closers []io.Closer
}

// NewApp wires repositories, adapters and use cases. Optional backends
// fall back to in-process ones: Redis to the memory cache, Temporal to the
// log notifier, and product descriptions are skipped without an OpenAI key.
func NewApp(ctx context.Context, c *Config, db *gorm.DB) (*App, error) {
	a := &App{Config: c, DB: db}

	tokens, err := auth.NewTokens(c.JWTSecret, c.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	a.Tokens = tokens
	a.Metrics = metrics.New(c.MetricsNS)
	a.Webhooks = stripe.NewVerifier(c.StripeWHSec, 0)
	if c.StripeWHSec == "" {
		zlog.Warn().Msg("STRIPE_WEBHOOK_SECRET not set; stripe webhooks are disabled")
	}

	var store cache.Store
	if c.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			return nil, err
		}
		store = r
		a.closers = append(a.closers, r)
		zlog.Info().Str("addr", c.RedisAddr).Msg("order cache on redis")
	} else {
		m := cache.NewMemory(time.Minute)
		store = m
		a.closers = append(a.closers, m)
		zlog.Info().Msg("order cache in memory")
	}

	var notifier domain.Notifier = notify.LogNotifier{}
	if c.TemporalHost != "" {
		tc, err := client.Dial(client.Options{HostPort: c.TemporalHost, Namespace: c.TemporalNamespace})
		if err != nil {
			_ = a.closeAdapters()
			return nil, fmt.Errorf("temporal dial %s: %w", c.TemporalHost, err)
		}
		a.closers = append(a.closers, closerFunc(func() error { tc.Close(); return nil }))
		notifier = notify.NewTemporalNotifier(tc, c.NotifyTaskQueue)
		zlog.Info().Str("host", c.TemporalHost).Str("queue", c.NotifyTaskQueue).Msg("order notifications via temporal")
	}

	if c.GoogleClientID != "" && c.GoogleClientSecret != "" {
		a.OAuthConfig = &oauth2.Config{
			ClientID:     c.GoogleClientID,
			ClientSecret: c.GoogleClientSecret,
			RedirectURL:  c.BaseURL + "/auth/google/callback",
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		}
	}

	tx := postgres.NewTransactor(db)
	tenants := postgres.NewTenantRepo(db)
	users := postgres.NewUserRepo(db)
	products := postgres.NewProductRepo(db)
	orders := postgres.NewOrderRepo(db)
	manager := cache.NewManager(store, orders, a.Metrics)
	hasher := auth.NewBcryptHasher(c.BcryptCost)

	a.TenantUC = &usecase.TenantUC{Tenants: tenants, Users: users, Hasher: hasher, Tx: tx, BaseDomainLabels: c.BaseLabels}
	a.UserUC = &usecase.UserUC{Users: users, Hasher: hasher, Tokens: tokens}
	a.ProductUC = &usecase.ProductUC{Products: products, Pages: scraper.NewPageScraper(), Cache: manager}
	if c.OpenAIKey != "" {
		a.ProductUC.Describer = ai.NewDescriber(c.OpenAIKey, c.OpenAIModel)
	}
	a.CartUC = &usecase.CartUC{Carts: postgres.NewCartRepo(db), Products: products, Tenants: tenants, Tx: tx}
	a.OrderUC = &usecase.OrderUC{
		Orders:   orders,
		Carts:    a.CartUC,
		Tx:       tx,
		Cache:    manager,
		Notifier: notifier,
		Metrics:  a.Metrics,
	}
	a.Queries = &usecase.OrderQueries{Orders: manager}
	a.ShipmentUC = &usecase.ShipmentUC{Shipments: postgres.NewShipmentRepo(db), Orders: a.OrderUC, Tx: tx, Cache: manager}
	a.EstimateUC = &usecase.EstimateUC{
		Estimates: postgres.NewEstimateRepo(db),
		Orders:    orders,
		Tenants:   tenants,
		Tx:        tx,
		Cache:     manager,
		Metrics:   a.Metrics,
	}
	return a, nil
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(httpserver.Deps{
		Tenants:   a.TenantUC,
		Users:     a.UserUC,
		Products:  a.ProductUC,
		Carts:     a.CartUC,
		Orders:    a.OrderUC,
		Queries:   a.Queries,
		Shipments: a.ShipmentUC,
		Estimates: a.EstimateUC,
		Tokens:    a.Tokens,
		Webhooks:  a.Webhooks,
		OAuth:     a.OAuthConfig,
		Metrics:   a.Metrics,
		RateLimit: a.Config.RateLimit,
	})
}

// MigrateAndSeed creates the schema and makes sure the default tenant
// exists.
func (a *App) MigrateAndSeed(ctx context.Context) error {
	if err := postgres.Migrate(a.DB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	t, err := a.TenantUC.EnsureDefault(ctx)
	if err != nil {
		return fmt.Errorf("seed default tenant: %w", err)
	}
	zlog.Info().Str("tenant", t.Slug).Msg("default tenant ready")
	return nil
}

// Close releases the cache and workflow clients and the database pool.
func (a *App) Close() error {
	errs := []error{a.closeAdapters()}
	if sqlDB, err := a.DB.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}

func (a *App) closeAdapters() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
