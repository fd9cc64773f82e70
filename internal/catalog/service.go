// Package catalog enforces the catalog rules on top of a domain.CatalogStore:
// validation, slug derivation, reference checks and soft-delete cascades.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/events"
	"github.com/dukerupert/shopfront/internal/telemetry"
)

// Listing defaults and bounds. Callers apply the defaults when the client
// leaves page or pageSize out.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Cascade-block messages.
const (
	msgCategoryHasProducts = "Cannot delete category with existing products"
	msgSKUInCarts          = "Cannot delete SKU that is in shopping carts"
)

// Store is the persistence the catalog service needs.
type Store interface {
	domain.CatalogStore
	CartReferencesSKU(ctx context.Context, skuID uuid.UUID) (bool, error)
}

// Service implements domain.CatalogService.
type Service struct {
	store     Store
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

var _ domain.CatalogService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the business metrics sink.
func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a catalog service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Noop{},
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// CATEGORIES
// =============================================================================

// ListCategories returns active categories sorted by name.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.store.ListCategories(ctx)
}

// GetCategory returns an active category.
func (s *Service) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, domain.ErrCategoryNotFound
	}
	return c, nil
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	const op = "catalog.CreateCategory"

	params := categoryParams{
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
	}
	if err := validateInput(op, params, categoryMessages); err != nil {
		return nil, err
	}

	slug := DeriveSlug(params.Name)
	if slug == "" {
		return nil, domain.NewValidationError(op, "name", "Category name must contain letters or numbers")
	}

	now := s.now()
	c := &domain.Category{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		Slug:        slug,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertCategory(ctx, c); err != nil {
		return nil, err
	}

	s.changed(ctx, "category", "create", events.CategoryCreated, c.ID, c)
	return c, nil
}

// UpdateCategory applies a partial update. Renaming regenerates the slug.
func (s *Service) UpdateCategory(ctx context.Context, id uuid.UUID, in domain.CategoryInput) (*domain.Category, error) {
	const op = "catalog.UpdateCategory"

	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	params := categoryParams{
		Name:        mergeString(in.Name, c.Name),
		Description: mergeString(in.Description, c.Description),
	}
	if err := validateInput(op, params, categoryMessages); err != nil {
		return nil, err
	}

	if params.Name != c.Name {
		slug := DeriveSlug(params.Name)
		if slug == "" {
			return nil, domain.NewValidationError(op, "name", "Category name must contain letters or numbers")
		}
		c.Slug = slug
	}
	c.Name = params.Name
	c.Description = params.Description
	c.UpdatedAt = s.now()

	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return nil, err
	}

	s.metrics.CatalogChanged("category", "update")
	return c, nil
}

// DeleteCategory soft-deletes a category with no active products.
func (s *Service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	const op = "catalog.DeleteCategory"

	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	n, err := s.store.CountActiveProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.Conflict(op, msgCategoryHasProducts)
	}

	if err := s.store.DeactivateCategory(ctx, id); err != nil {
		return err
	}

	s.changed(ctx, "category", "delete", events.CategoryDeleted, id, nil)
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

// ListProducts returns one page of active products with their categories.
func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.ProductListItem, domain.PageMeta, error) {
	const op = "catalog.ListProducts"

	if filter.Page < 1 {
		return nil, domain.PageMeta{}, domain.NewValidationError(op, "page", "Page must be at least 1")
	}
	if filter.PageSize < 1 || filter.PageSize > MaxPageSize {
		return nil, domain.PageMeta{}, domain.NewValidationError(op, "pageSize", "Page size must be between 1 and 100")
	}
	if filter.Page-1 > math.MaxInt/filter.PageSize {
		return nil, domain.PageMeta{}, domain.NewValidationError(op, "page", "Page is too large")
	}
	filter.Search = strings.TrimSpace(filter.Search)

	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, domain.PageMeta{}, err
	}

	categories := map[uuid.UUID]*domain.Category{}
	items := make([]domain.ProductListItem, 0, len(products))
	for _, p := range products {
		category, ok := categories[p.CategoryID]
		if !ok {
			category, err = s.lookupCategory(ctx, p.CategoryID)
			if err != nil {
				return nil, domain.PageMeta{}, err
			}
			categories[p.CategoryID] = category
		}
		items = append(items, domain.ProductListItem{Product: p, Category: category})
	}

	s.metrics.ProductSearched(filterType(filter))
	return items, domain.NewPageMeta(filter.Page, filter.PageSize, total), nil
}

// GetProduct returns an active product with its category and active SKUs.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	p, err := s.activeProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	category, err := s.lookupCategory(ctx, p.CategoryID)
	if err != nil {
		return nil, err
	}

	skus, err := s.store.ListSKUs(ctx, p.ID, false)
	if err != nil {
		return nil, err
	}

	return &domain.ProductDetail{Product: *p, Category: category, SKUs: skus}, nil
}

// CreateProduct validates and stores a new product under an active category.
func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	const op = "catalog.CreateProduct"

	params := productParams{
		Name:        trimmed(in.Name),
		Description: trimmed(in.Description),
		BasePrice:   decimal.Zero,
		Images:      []string{},
	}
	var missing []string
	if in.CategoryID != nil {
		params.CategoryID = *in.CategoryID
	}
	if in.BasePrice != nil {
		params.BasePrice = *in.BasePrice
	} else {
		missing = append(missing, "basePrice")
	}
	if in.Images != nil {
		params.Images = trimAll(*in.Images)
	}

	if err := validateInput(op, params, productMessages, missing...); err != nil {
		return nil, err
	}
	if err := s.requireActiveCategory(ctx, op, params.CategoryID); err != nil {
		return nil, err
	}

	slug, err := s.uniqueProductSlug(ctx, op, params.Name, uuid.Nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Product{
		ID:          uuid.New(),
		Name:        params.Name,
		Description: params.Description,
		CategoryID:  params.CategoryID,
		Slug:        slug,
		BasePrice:   params.BasePrice,
		Images:      params.Images,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.InsertProduct(ctx, p); err != nil {
		return nil, err
	}

	s.changed(ctx, "product", "create", events.ProductCreated, p.ID, p)
	return p, nil
}

// UpdateProduct applies a partial update. Moving to another category requires
// it to be active; renaming regenerates a unique slug.
func (s *Service) UpdateProduct(ctx context.Context, id uuid.UUID, in domain.ProductInput) (*domain.Product, error) {
	const op = "catalog.UpdateProduct"

	p, err := s.activeProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	params := productParams{
		Name:        mergeString(in.Name, p.Name),
		Description: mergeString(in.Description, p.Description),
		CategoryID:  p.CategoryID,
		BasePrice:   p.BasePrice,
		Images:      p.Images,
	}
	if in.CategoryID != nil {
		params.CategoryID = *in.CategoryID
	}
	if in.BasePrice != nil {
		params.BasePrice = *in.BasePrice
	}
	if in.Images != nil {
		params.Images = trimAll(*in.Images)
	}
	if params.Images == nil {
		params.Images = []string{}
	}

	if err := validateInput(op, params, productMessages); err != nil {
		return nil, err
	}
	if params.CategoryID != p.CategoryID {
		if err := s.requireActiveCategory(ctx, op, params.CategoryID); err != nil {
			return nil, err
		}
	}
	if params.Name != p.Name {
		slug, err := s.uniqueProductSlug(ctx, op, params.Name, p.ID)
		if err != nil {
			return nil, err
		}
		p.Slug = slug
	}

	p.Name = params.Name
	p.Description = params.Description
	p.CategoryID = params.CategoryID
	p.BasePrice = params.BasePrice
	p.Images = params.Images
	p.UpdatedAt = s.now()

	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.metrics.CatalogChanged("product", "update")
	return p, nil
}

// DeleteProduct soft-deletes a product and all of its SKUs.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.activeProduct(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeactivateProduct(ctx, id); err != nil {
		return err
	}

	s.changed(ctx, "product", "delete", events.ProductDeleted, id, nil)
	return nil
}

// =============================================================================
// SKUS
// =============================================================================

// ListSKUs returns the active SKUs of an active product.
func (s *Service) ListSKUs(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]domain.SKU, error) {
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.store.ListSKUs(ctx, productID, inStockOnly)
}

// GetSKU returns an active SKU with its product and category.
func (s *Service) GetSKU(ctx context.Context, id uuid.UUID) (*domain.SKUDetail, error) {
	sku, err := s.activeSKU(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &domain.SKUDetail{SKU: *sku}
	product, err := s.store.GetProduct(ctx, sku.ProductID)
	switch {
	case err == nil:
		detail.Product = product
	case errors.Is(err, domain.ErrProductNotFound):
		return detail, nil
	default:
		return nil, err
	}

	detail.Category, err = s.lookupCategory(ctx, product.CategoryID)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// CreateSKU validates and stores a new SKU under an active product.
func (s *Service) CreateSKU(ctx context.Context, productID uuid.UUID, in domain.SKUInput) (*domain.SKU, error) {
	const op = "catalog.CreateSKU"

	if _, err := s.activeProduct(ctx, productID); err != nil {
		return nil, err
	}

	params := skuParams{
		Code:       NormalizeSKUCode(deref(in.Code)),
		Name:       trimmed(in.Name),
		Attributes: domain.Attributes{},
	}
	var missing []string
	if in.Price != nil {
		params.Price = *in.Price
	} else {
		missing = append(missing, "price")
	}
	if in.Inventory != nil {
		params.Inventory = *in.Inventory
	} else {
		missing = append(missing, "inventory")
	}
	if in.Attributes != nil && *in.Attributes != nil {
		params.Attributes = *in.Attributes
	}

	if err := validateInput(op, params, skuMessages, missing...); err != nil {
		return nil, err
	}

	now := s.now()
	sku := &domain.SKU{
		ID:         uuid.New(),
		ProductID:  productID,
		Code:       params.Code,
		Name:       params.Name,
		Price:      params.Price,
		Inventory:  params.Inventory,
		Attributes: params.Attributes,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.InsertSKU(ctx, sku); err != nil {
		return nil, err
	}

	s.changed(ctx, "sku", "create", events.SKUCreated, sku.ID, sku)
	return sku, nil
}

// UpdateSKU applies a partial update.
func (s *Service) UpdateSKU(ctx context.Context, id uuid.UUID, in domain.SKUInput) (*domain.SKU, error) {
	const op = "catalog.UpdateSKU"

	sku, err := s.activeSKU(ctx, id)
	if err != nil {
		return nil, err
	}

	params := skuParams{
		Code:       sku.Code,
		Name:       mergeString(in.Name, sku.Name),
		Price:      sku.Price,
		Inventory:  sku.Inventory,
		Attributes: sku.Attributes,
	}
	if in.Code != nil {
		params.Code = NormalizeSKUCode(*in.Code)
	}
	if in.Price != nil {
		params.Price = *in.Price
	}
	if in.Inventory != nil {
		params.Inventory = *in.Inventory
	}
	if in.Attributes != nil {
		params.Attributes = *in.Attributes
	}
	if params.Attributes == nil {
		params.Attributes = domain.Attributes{}
	}

	if err := validateInput(op, params, skuMessages); err != nil {
		return nil, err
	}

	sku.Code = params.Code
	sku.Name = params.Name
	sku.Price = params.Price
	sku.Inventory = params.Inventory
	sku.Attributes = params.Attributes
	sku.UpdatedAt = s.now()

	if err := s.store.UpdateSKU(ctx, sku); err != nil {
		return nil, err
	}

	s.metrics.CatalogChanged("sku", "update")
	return sku, nil
}

// DeleteSKU soft-deletes a SKU that no cart references.
func (s *Service) DeleteSKU(ctx context.Context, id uuid.UUID) error {
	const op = "catalog.DeleteSKU"

	if _, err := s.activeSKU(ctx, id); err != nil {
		return err
	}

	inCart, err := s.store.CartReferencesSKU(ctx, id)
	if err != nil {
		return err
	}
	if inCart {
		return domain.Conflict(op, msgSKUInCarts)
	}

	if err := s.store.DeactivateSKU(ctx, id); err != nil {
		return err
	}

	s.changed(ctx, "sku", "delete", events.SKUDeleted, id, nil)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) activeProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (s *Service) activeSKU(ctx context.Context, id uuid.UUID) (*domain.SKU, error) {
	sku, err := s.store.GetSKU(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sku.IsActive {
		return nil, domain.ErrSKUNotFound
	}
	return sku, nil
}

// lookupCategory joins a category regardless of its active flag.
// A missing category yields nil rather than an error.
func (s *Service) lookupCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, err := s.store.GetCategory(ctx, id)
	if errors.Is(err, domain.ErrCategoryNotFound) {
		return nil, nil
	}
	return c, err
}

// requireActiveCategory reports a dangling category reference as a field error.
func (s *Service) requireActiveCategory(ctx context.Context, op string, id uuid.UUID) error {
	c, err := s.store.GetCategory(ctx, id)
	if errors.Is(err, domain.ErrCategoryNotFound) || (err == nil && !c.IsActive) {
		return domain.NewValidationError(op, "categoryId", "Category does not exist or is inactive")
	}
	return err
}

// uniqueProductSlug derives a slug from name and appends -1, -2, ... until no
// other product holds it.
func (s *Service) uniqueProductSlug(ctx context.Context, op, name string, excludeID uuid.UUID) (string, error) {
	base := DeriveSlug(name)
	if base == "" {
		return "", domain.NewValidationError(op, "name", "Product name must contain letters or numbers")
	}

	slug := base
	for n := 1; ; n++ {
		exists, err := s.store.ProductSlugExists(ctx, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Service) changed(ctx context.Context, entity, action, eventType string, id uuid.UUID, data any) {
	s.metrics.CatalogChanged(entity, action)

	err := s.publisher.Publish(ctx, events.New(eventType, id.String(), data))
	s.metrics.EventPublished(eventType, err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish catalog event",
			"type", eventType,
			"id", id.String(),
			"error", err,
		)
	}
}

func filterType(f domain.ProductFilter) string {
	switch {
	case f.Search != "" && f.CategoryID != nil:
		return "both"
	case f.Search != "":
		return "search"
	case f.CategoryID != nil:
		return "category"
	}
	return "none"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) string {
	return strings.TrimSpace(deref(s))
}

func mergeString(in *string, current string) string {
	if in == nil {
		return current
	}
	return strings.TrimSpace(*in)
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}
