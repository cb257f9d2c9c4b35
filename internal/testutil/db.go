// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/phenrril/storefront/internal/adapters/repo/postgres"
	"github.com/phenrril/storefront/internal/domain"
)

// NewDB returns a migrated in-memory sqlite database. A single connection
// keeps every query on the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := postgres.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewTenant stores an active tenant with the given settings.
func NewTenant(t *testing.T, db *gorm.DB, slug string, settings domain.TenantSettings) *domain.Tenant {
	t.Helper()
	tn := &domain.Tenant{ID: uuid.New(), Name: slug, Slug: slug, Active: true, Settings: settings}
	if err := postgres.NewTenantRepo(db).Create(context.Background(), tn); err != nil {
		t.Fatalf("create tenant: %v", err)
	}
	return tn
}

// NewProduct stores an active product priced at price with the given cost.
func NewProduct(t *testing.T, db *gorm.DB, tenantID uuid.UUID, sku string, price, cost float64) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SKU:        sku,
		Name:       "Product " + sku,
		Price:      price,
		CostPrice:  cost,
		Stock:      10,
		Categories: []string{"general"},
		Active:     true,
	}
	if err := postgres.NewProductRepo(db).Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}
