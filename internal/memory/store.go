// Package memory provides an in-process implementation of domain.Store.
// It backs tests and single-instance development runs (STORE_DRIVER=memory).
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/domain"
)

// Store keeps every record in maps guarded by a single RWMutex.
// Values are copied on the way in and out so callers never share state.
type Store struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]domain.Category
	products   map[uuid.UUID]domain.Product
	skus       map[uuid.UUID]domain.SKU
	carts      map[string]domain.Cart // session id -> cart
}

var _ domain.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		categories: make(map[uuid.UUID]domain.Category),
		products:   make(map[uuid.UUID]domain.Product),
		skus:       make(map[uuid.UUID]domain.SKU),
		carts:      make(map[string]domain.Cart),
	}
}

// Ping implements domain.Store.
func (s *Store) Ping(context.Context) error { return nil }

// =============================================================================
// CATEGORIES
// =============================================================================

func (s *Store) InsertCategory(_ context.Context, c *domain.Category) error {
	const op = "memory.InsertCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkCategoryUnique(op, c); err != nil {
		return err
	}
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c *domain.Category) error {
	const op = "memory.UpdateCategory"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[c.ID]; !ok {
		return domain.ErrCategoryNotFound
	}
	if err := s.checkCategoryUnique(op, c); err != nil {
		return err
	}
	s.categories[c.ID] = *c
	return nil
}

func (s *Store) checkCategoryUnique(op string, c *domain.Category) error {
	for id, existing := range s.categories {
		if id == c.ID {
			continue
		}
		if existing.Name == c.Name {
			return domain.Conflict(op, "Category name already exists")
		}
		if existing.Slug == c.Slug {
			return domain.Conflict(op, "Category slug already exists")
		}
	}
	return nil
}

func (s *Store) GetCategory(_ context.Context, id uuid.UUID) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return &c, nil
}

func (s *Store) ListCategories(context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeactivateCategory(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || !c.IsActive {
		return domain.ErrCategoryNotFound
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	s.categories[id] = c
	return nil
}

func (s *Store) CountActiveProducts(_ context.Context, categoryID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.products {
		if p.IsActive && p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (s *Store) InsertProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.productSlugTaken(p.Slug, p.ID) {
		return domain.Conflict("memory.InsertProduct", "Product slug already exists")
	}
	s.products[p.ID] = copyProduct(*p)
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return domain.ErrProductNotFound
	}
	if s.productSlugTaken(p.Slug, p.ID) {
		return domain.Conflict("memory.UpdateProduct", "Product slug already exists")
	}
	s.products[p.ID] = copyProduct(*p)
	return nil
}

func (s *Store) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))

	var matched []domain.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if filter.CategoryID != nil && p.CategoryID != *filter.CategoryID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	start := max(0, min(filter.Offset(), total))
	end := total
	if filter.PageSize > 0 {
		end = min(start+filter.PageSize, total)
	}

	page := make([]domain.Product, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, copyProduct(p))
	}
	return page, total, nil
}

func (s *Store) ProductSlugExists(_ context.Context, slug string, excludeID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productSlugTaken(slug, excludeID), nil
}

func (s *Store) productSlugTaken(slug string, excludeID uuid.UUID) bool {
	for id, p := range s.products {
		if id != excludeID && p.Slug == slug {
			return true
		}
	}
	return false
}

// DeactivateProduct soft-deletes the product and its active SKUs under one lock.
func (s *Store) DeactivateProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || !p.IsActive {
		return domain.ErrProductNotFound
	}

	now := time.Now().UTC()
	p.IsActive = false
	p.UpdatedAt = now
	s.products[id] = p

	for skuID, sku := range s.skus {
		if sku.ProductID == id && sku.IsActive {
			sku.IsActive = false
			sku.UpdatedAt = now
			s.skus[skuID] = sku
		}
	}
	return nil
}

// =============================================================================
// SKUS
// =============================================================================

func (s *Store) InsertSKU(_ context.Context, sku *domain.SKU) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.skuCodeTaken(sku.Code, sku.ID) {
		return domain.Conflict("memory.InsertSKU", "SKU code already exists")
	}
	s.skus[sku.ID] = copySKU(*sku)
	return nil
}

func (s *Store) UpdateSKU(_ context.Context, sku *domain.SKU) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.skus[sku.ID]; !ok {
		return domain.ErrSKUNotFound
	}
	if s.skuCodeTaken(sku.Code, sku.ID) {
		return domain.Conflict("memory.UpdateSKU", "SKU code already exists")
	}
	s.skus[sku.ID] = copySKU(*sku)
	return nil
}

func (s *Store) skuCodeTaken(code string, excludeID uuid.UUID) bool {
	for id, existing := range s.skus {
		if id != excludeID && existing.Code == code {
			return true
		}
	}
	return false
}

func (s *Store) GetSKU(_ context.Context, id uuid.UUID) (*domain.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sku, ok := s.skus[id]
	if !ok {
		return nil, domain.ErrSKUNotFound
	}
	sku = copySKU(sku)
	return &sku, nil
}

func (s *Store) ListSKUs(_ context.Context, productID uuid.UUID, inStockOnly bool) ([]domain.SKU, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.SKU{}
	for _, sku := range s.skus {
		if sku.ProductID != productID || !sku.IsActive {
			continue
		}
		if inStockOnly && !sku.InStock() {
			continue
		}
		out = append(out, copySKU(sku))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeactivateSKU(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sku, ok := s.skus[id]
	if !ok || !sku.IsActive {
		return domain.ErrSKUNotFound
	}
	sku.IsActive = false
	sku.UpdatedAt = time.Now().UTC()
	s.skus[id] = sku
	return nil
}

// =============================================================================
// CARTS
// =============================================================================

func (s *Store) GetCartBySession(_ context.Context, sessionID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c.Clone(), nil
}

func (s *Store) InsertCart(_ context.Context, c *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[c.SessionID]; ok {
		return domain.ErrDuplicateSession
	}
	c.Version = 1
	s.carts[c.SessionID] = *c.Clone()
	return nil
}

func (s *Store) SaveCart(_ context.Context, c *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.carts[c.SessionID]
	if !ok {
		return domain.ErrCartNotFound
	}
	if current.Version != c.Version {
		return domain.ErrVersionConflict
	}
	c.Version++
	s.carts[c.SessionID] = *c.Clone()
	return nil
}

func (s *Store) CartReferencesSKU(_ context.Context, skuID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.carts {
		for _, item := range c.Items {
			if item.SKUID == skuID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *Store) DeleteIdleCarts(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for sessionID, c := range s.carts {
		if c.UpdatedAt.Before(before) {
			delete(s.carts, sessionID)
			n++
		}
	}
	return n, nil
}

func copyProduct(p domain.Product) domain.Product {
	p.Images = slices.Clone(p.Images)
	return p
}

func copySKU(sku domain.SKU) domain.SKU {
	sku.Attributes = slices.Clone(sku.Attributes)
	return sku
}
