package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG DOMAIN ERRORS
// =============================================================================

var (
	ErrCategoryNotFound = &Error{Code: ENOTFOUND, Message: "Category not found"}
	ErrProductNotFound  = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrSKUNotFound      = &Error{Code: ENOTFOUND, Message: "SKU not found"}
)

// Category groups products. Names and slugs are unique across the catalog.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Slug        string    `json:"slug"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Product is a sellable item belonging to a category. Variants are SKUs.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CategoryID  uuid.UUID       `json:"categoryId"`
	Slug        string          `json:"slug"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Images      []string        `json:"images"`
	IsActive    bool            `json:"isActive"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SKU is a purchasable variant of a product with its own price and stock.
type SKU struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"productId"`
	Code       string          `json:"sku"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Inventory  int             `json:"inventory"`
	Attributes Attributes      `json:"attributes"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// InStock reports whether at least one unit is on hand.
func (s *SKU) InStock() bool {
	return s.Inventory > 0
}

// Attribute is a single descriptive key/value pair on a SKU (e.g. size=M).
type Attribute struct {
	Key   string
	Value string
}

// Attributes is an ordered list of SKU attributes.
// It is encoded as a JSON object whose key order follows the list.
type Attributes []Attribute

// Get returns the value for key and whether it was present.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// MarshalJSON implements json.Marshaler.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, attr := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(attr.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(attr.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping document key order.
// A repeated key keeps its first position and its last value.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*a = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("attributes must be a JSON object")
	}

	out := Attributes{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)

		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("attribute %q must be a string", key)
		}

		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, Attribute{Key: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = out
	return nil
}

// =============================================================================
// CATALOG INPUTS
// =============================================================================

// CategoryInput carries the writable fields of a category.
// Nil fields on update leave the stored value unchanged.
type CategoryInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ProductInput carries the writable fields of a product.
type ProductInput struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	CategoryID  *uuid.UUID       `json:"categoryId"`
	BasePrice   *decimal.Decimal `json:"basePrice"`
	Images      *[]string        `json:"images"`
}

// SKUInput carries the writable fields of a SKU.
type SKUInput struct {
	Code       *string          `json:"sku"`
	Name       *string          `json:"name"`
	Price      *decimal.Decimal `json:"price"`
	Inventory  *int             `json:"inventory"`
	Attributes *Attributes      `json:"attributes"`
}

// ProductFilter narrows a product listing. Page is 1-based.
type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Page       int
	PageSize   int
}

// Offset returns the number of rows to skip for the filter's page. It
// saturates at math.MaxInt rather than wrapping.
func (f ProductFilter) Offset() int {
	if f.Page < 1 || f.PageSize < 1 {
		return 0
	}
	if f.Page-1 > math.MaxInt/f.PageSize {
		return math.MaxInt
	}
	return (f.Page - 1) * f.PageSize
}

// PageMeta describes a page of a listing.
type PageMeta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewPageMeta computes pagination metadata for total items.
func NewPageMeta(page, pageSize, total int) PageMeta {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return PageMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: pages,
		HasNext:    page < pages,
		HasPrev:    page > 1,
	}
}

// ProductDetail is a product joined with its category and active SKUs.
type ProductDetail struct {
	Product
	Category *Category `json:"category"`
	SKUs     []SKU     `json:"skus"`
}

// ProductListItem is a product joined with its category for listings.
type ProductListItem struct {
	Product
	Category *Category `json:"category"`
}

// SKUDetail is a SKU joined with its product and category.
type SKUDetail struct {
	SKU
	Product  *Product  `json:"product"`
	Category *Category `json:"category"`
}
