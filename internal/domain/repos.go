package domain

import (
	"context"

	"github.com/google/uuid"
)

// Transactor runs fn inside a DB transaction carried by ctx. Repositories
// called with that ctx join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TenantRepo interface {
	Create(ctx context.Context, t *Tenant) error
	Save(ctx context.Context, t *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*Tenant, error)
	FindByDomain(ctx context.Context, domain string) (*Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}

type ProductRepo interface {
	Create(ctx context.Context, p *Product) error
	Save(ctx context.Context, p *Product) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	List(ctx context.Context, tenantID uuid.UUID, f ProductFilter) ([]Product, int64, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	DistinctCategories(ctx context.Context, tenantID uuid.UUID) ([]string, error)
}

type CartRepo interface {
	Create(ctx context.Context, c *Cart) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Cart, error)
	AddQuantity(ctx context.Context, cartID, productID uuid.UUID, delta int) error
	SetQuantity(ctx context.Context, cartID, productID uuid.UUID, qty int) (bool, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	Clear(ctx context.Context, cartID uuid.UUID) error
	Touch(ctx context.Context, cartID uuid.UUID) error
}

// OrderChanges lists the columns a compare-and-swap update may touch.
type OrderChanges struct {
	Status    *OrderStatus
	PaymentID *string
}

type OrderReader interface {
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	List(ctx context.Context, tenantID uuid.UUID, f OrderFilter) ([]Order, int64, error)
	Summaries(ctx context.Context, tenantID uuid.UUID, f OrderFilter) ([]OrderStatusSummary, error)
	ItemsWithProducts(ctx context.Context, tenantID, orderID uuid.UUID) ([]OrderItemDetail, error)
}

type OrderRepo interface {
	OrderReader
	Create(ctx context.Context, o *Order) error
	// CompareAndSwap applies ch only if the stored version equals version and
	// bumps it; a mismatch is a ConflictError.
	CompareAndSwap(ctx context.Context, tenantID, id uuid.UUID, version int, ch OrderChanges) error
	AddNote(ctx context.Context, n *OrderNote) error
	// FindForUpdate loads the order and locks its row until the surrounding
	// transaction ends.
	FindForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*Order, error)
	// TenantOf looks an order up by id alone.
	TenantOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type ShipmentRepo interface {
	Create(ctx context.Context, s *Shipment) error
	Save(ctx context.Context, s *Shipment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Shipment, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]Shipment, error)
	AddItems(ctx context.Context, items []ShipmentItem) error
	// ShippedQuantities sums shipment item quantities per order item.
	ShippedQuantities(ctx context.Context, orderID uuid.UUID) (map[uuid.UUID]int, error)
	StatusesForOrder(ctx context.Context, orderID uuid.UUID) ([]ShipmentStatus, error)
}

type EstimateRepo interface {
	Create(ctx context.Context, e *Estimate) error
	// Save replaces the estimate header and all of its lines.
	Save(ctx context.Context, e *Estimate) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Estimate, error)
	List(ctx context.Context, tenantID uuid.UUID, f EstimateFilter) ([]Estimate, int64, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*User, error)
	FindByGoogleSub(ctx context.Context, tenantID uuid.UUID, sub string) (*User, error)
}

// OrderCacheInvalidator is implemented by the read cache. Every usecase that
// mutates orders, their items, notes or shipments holds one and calls it
// after the write commits.
type OrderCacheInvalidator interface {
	InvalidateOrder(ctx context.Context, tenantID, orderID uuid.UUID)
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID)
}

// Notifier delivers customer-facing messages. Callers treat errors as
// non-fatal.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order) error
	OrderStatusChanged(ctx context.Context, o *Order, from OrderStatus) error
}

// ProductDescriber drafts catalog copy for a product.
type ProductDescriber interface {
	Describe(ctx context.Context, p *Product) (string, error)
}

// ProductPage is what a vendor product page says about an item.
type ProductPage struct {
	URL         string
	Title       string
	Description string
	Price       *float64
	Category    string
	Specs       map[string]string
}

// ProductPageReader fetches and parses vendor product pages.
type ProductPageReader interface {
	Read(ctx context.Context, url string) (*ProductPage, error)
}

// PasswordHasher and TokenIssuer are implemented by adapters/auth.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(u *User) (string, error)
}
