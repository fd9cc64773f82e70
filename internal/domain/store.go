package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CategoryStore persists categories.
// Get returns records regardless of IsActive; List returns active records sorted by name.
// Insert and Update return ECONFLICT when the name or slug is taken.
type CategoryStore interface {
	InsertCategory(ctx context.Context, c *Category) error
	UpdateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	DeactivateCategory(ctx context.Context, id uuid.UUID) error
	CountActiveProducts(ctx context.Context, categoryID uuid.UUID) (int, error)
}

// ProductStore persists products.
type ProductStore interface {
	InsertProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)

	// ListProducts returns one page of active products matching filter
	// sorted by name, and the total number of matches.
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)

	// ProductSlugExists reports whether any product other than excludeID holds slug.
	ProductSlugExists(ctx context.Context, slug string, excludeID uuid.UUID) (bool, error)

	// DeactivateProduct soft-deletes the product and all of its active SKUs
	// in one atomic step.
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
}

// SKUStore persists SKUs.
// Insert and Update return ECONFLICT when the code is taken.
type SKUStore interface {
	InsertSKU(ctx context.Context, s *SKU) error
	UpdateSKU(ctx context.Context, s *SKU) error
	GetSKU(ctx context.Context, id uuid.UUID) (*SKU, error)
	ListSKUs(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]SKU, error)
	DeactivateSKU(ctx context.Context, id uuid.UUID) error
}

// CatalogStore groups the catalog persistence concerns.
type CatalogStore interface {
	CategoryStore
	ProductStore
	SKUStore
}

// CartStore persists carts. At most one cart exists per session.
type CartStore interface {
	// GetCartBySession returns ErrCartNotFound when the session has no cart.
	GetCartBySession(ctx context.Context, sessionID string) (*Cart, error)

	// InsertCart returns ErrDuplicateSession when a cart already exists for the session.
	InsertCart(ctx context.Context, c *Cart) error

	// SaveCart replaces items and total if the stored version equals c.Version,
	// then increments c.Version. It returns ErrVersionConflict otherwise.
	SaveCart(ctx context.Context, c *Cart) error

	// CartReferencesSKU reports whether any cart holds a line for the SKU.
	CartReferencesSKU(ctx context.Context, skuID uuid.UUID) (bool, error)

	// DeleteIdleCarts removes carts last updated before the cutoff.
	DeleteIdleCarts(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full persistence surface of the storefront.
type Store interface {
	CatalogStore
	CartStore
	Ping(ctx context.Context) error
}

// CartService is the session-scoped cart API consumed by HTTP handlers.
type CartService interface {
	Get(ctx context.Context, sessionID string) (*CartView, error)
	AddItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*CartView, error)
	UpdateItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*CartView, error)
	RemoveItem(ctx context.Context, sessionID string, skuID uuid.UUID) (*CartView, error)
	Clear(ctx context.Context, sessionID string) (*CartView, error)
}

// CatalogService is the catalog API consumed by HTTP handlers.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	ListProducts(ctx context.Context, filter ProductFilter) ([]ProductListItem, PageMeta, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error

	ListSKUs(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]SKU, error)
	GetSKU(ctx context.Context, id uuid.UUID) (*SKUDetail, error)
	CreateSKU(ctx context.Context, productID uuid.UUID, in SKUInput) (*SKU, error)
	UpdateSKU(ctx context.Context, id uuid.UUID, in SKUInput) (*SKU, error)
	DeleteSKU(ctx context.Context, id uuid.UUID) error
}
