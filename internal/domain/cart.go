package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be between 1 and 99"}
	ErrSessionRequired  = &Error{Code: ESESSION, Message: "Session ID is required"}

	// ErrDuplicateSession is returned by a CartStore when a cart already exists
	// for the session being inserted.
	ErrDuplicateSession = &Error{Code: ECONFLICT, Message: "Cart already exists for session"}

	// ErrVersionConflict is returned by a CartStore when a save lost a
	// compare-and-swap against a concurrent writer.
	ErrVersionConflict = &Error{Code: ECONFLICT, Message: "Cart was modified concurrently"}
)

// Quantity bounds for a single cart line.
const (
	MinItemQuantity = 1
	MaxItemQuantity = 99
)

// Cart is the per-session shopping cart. Items hold at most one line per SKU.
type Cart struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   string          `json:"sessionId"`
	Items       []CartItem      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Version     int64           `json:"-"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CartItem is a single line. UnitPrice is the SKU price when the line was created.
type CartItem struct {
	SKUID     uuid.UUID       `json:"skuId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = slices.Clone(c.Items)
	return &out
}

// CartView is a cart whose lines are joined with catalog data for display.
type CartView struct {
	ID          uuid.UUID       `json:"id"`
	SessionID   string          `json:"sessionId"`
	Items       []CartLine      `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ItemCount   int             `json:"itemCount"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CartLine is a cart item with its SKU, product, and category when still resolvable.
type CartLine struct {
	CartItem
	SKU      *SKU      `json:"sku,omitempty"`
	Product  *Product  `json:"product,omitempty"`
	Category *Category `json:"category,omitempty"`
}
