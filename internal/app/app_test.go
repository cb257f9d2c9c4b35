package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/storefront/internal/domain"
	"github.com/phenrril/storefront/internal/notify"
	"github.com/phenrril/storefront/internal/testutil"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_TTL", "")
	t.Setenv("NOTIFY_TASK_QUEUE", "")
	t.Setenv("TENANT_BASE_DOMAIN_LABELS", "")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "development", c.Env)
	assert.False(t, c.Production())
	assert.NotEmpty(t, c.JWTSecret)
	assert.Equal(t, 24*time.Hour, c.JWTTTL)
	assert.Equal(t, notify.DefaultTaskQueue, c.NotifyTaskQueue)
	assert.Empty(t, c.DBDSN)
	assert.Equal(t, 2, c.BaseLabels)

	t.Setenv("TENANT_BASE_DOMAIN_LABELS", "1")
	c, err = LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, c.BaseLabels)
}

func TestLoadConfig_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "sqlite")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadConfig_PostgresFallbacks(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "")
	t.Setenv("POSTGRES_USER", "shop")
	t.Setenv("DB_NAME", "")
	t.Setenv("POSTGRES_DB", "")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Contains(t, c.DBDSN, "host=db ")
	assert.Contains(t, c.DBDSN, "user=shop ")
	assert.Contains(t, c.DBDSN, "dbname=storefront ")
}

func TestLoadConfig_Rejects(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_TTL", "soon")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "JWT_TTL")
}

func testConfig() *Config {
	return &Config{
		Env:        "test",
		BaseURL:    "http://localhost:8080",
		DBDriver:   "sqlite",
		JWTSecret:  strings.Repeat("s", 32),
		JWTTTL:     time.Hour,
		BcryptCost: 4,
		MetricsNS:  "storefront_app_test",
	}
}

func TestNewApp_ServesDefaultTenant(t *testing.T) {
	ctx := context.Background()
	a, err := NewApp(ctx, testConfig(), testutil.NewDB(t))
	require.NoError(t, err)
	require.NoError(t, a.MigrateAndSeed(ctx))
	require.NoError(t, a.MigrateAndSeed(ctx), "seeding twice is harmless")
	assert.Nil(t, a.OAuthConfig)
	assert.Nil(t, a.ProductUC.Describer)

	h := a.HTTPHandler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tenant", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"slug":"`+domain.DefaultTenantSlug+`"`)
	assert.NoError(t, a.closeAdapters())
}

func TestNewApp_RedisAndOptionalAdapters(t *testing.T) {
	mr := miniredis.RunT(t)
	c := testConfig()
	c.RedisAddr = mr.Addr()
	c.GoogleClientID = "id"
	c.GoogleClientSecret = "secret"
	c.OpenAIKey = "sk-test"

	a, err := NewApp(context.Background(), c, testutil.NewDB(t))
	require.NoError(t, err)
	require.NotNil(t, a.OAuthConfig)
	assert.Equal(t, "http://localhost:8080/auth/google/callback", a.OAuthConfig.RedirectURL)
	assert.NotNil(t, a.ProductUC.Describer)
	assert.NoError(t, a.closeAdapters())
}

func TestNewApp_RedisUnreachable(t *testing.T) {
	c := testConfig()
	c.RedisAddr = "127.0.0.1:1"
	_, err := NewApp(context.Background(), c, testutil.NewDB(t))
	assert.ErrorContains(t, err, "redis ping")
}
