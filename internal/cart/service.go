// Package cart implements the session-scoped shopping cart.
//
// engine.go holds the pure cart mutations. Service wraps them with storage,
// inventory checks, per-session serialization and event publishing.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/events"
	"github.com/dukerupert/shopfront/internal/inventory"
	"github.com/dukerupert/shopfront/internal/locker"
	"github.com/dukerupert/shopfront/internal/telemetry"
)

// Store is the persistence the cart service needs: carts plus catalog lookups
// for pricing, stock and hydration.
type Store interface {
	domain.CartStore
	GetSKU(ctx context.Context, id uuid.UUID) (*domain.SKU, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
}

// Service provides cart operations for a shopping session.
type Service struct {
	store      Store
	locker     locker.Locker
	publisher  events.Publisher
	metrics    *telemetry.BusinessMetrics
	logger     *slog.Logger
	now        func() time.Time
	maxRetries int
}

// Compile-time check that Service implements domain.CartService.
var _ domain.CartService = (*Service)(nil)

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

// WithMaxRetries bounds how often a save is retried after losing a version race.
func WithMaxRetries(n int) Option {
	return func(s *Service) { s.maxRetries = n }
}

// NewService creates a cart service.
func NewService(store Store, lock locker.Locker, opts ...Option) *Service {
	s := &Service{
		store:      store,
		locker:     lock,
		publisher:  events.Noop{},
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
		maxRetries: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindOrCreate returns the session's cart, creating an empty one if needed.
// When two requests race to create, the loser re-reads the winner's cart.
func (s *Service) FindOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	c, err := s.store.GetCartBySession(ctx, sessionID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, err
	}

	c = s.newCart(sessionID)
	if err := s.store.InsertCart(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicateSession) {
			return s.store.GetCartBySession(ctx, sessionID)
		}
		return nil, err
	}
	s.metrics.CartCreated()
	return c, nil
}

// Get returns the hydrated cart for the session, creating it if needed.
func (s *Service) Get(ctx context.Context, sessionID string) (*domain.CartView, error) {
	c, err := s.FindOrCreate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, c), nil
}

// AddItem adds quantity units of an active SKU, merging with an existing line.
func (s *Service) AddItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error) {
	const op = "cart.add_item"

	if quantity < domain.MinItemQuantity || quantity > domain.MaxItemQuantity {
		return nil, domain.ErrInvalidQuantity
	}

	c, err := s.mutate(ctx, op, sessionID, true, func(c *domain.Cart) error {
		sku, err := s.activeSKU(ctx, skuID)
		if err != nil {
			return err
		}

		inCart := 0
		if item, ok := GetItem(c, skuID); ok {
			inCart = item.Quantity
		}
		if err := inventory.CanAdd(sku.Inventory, quantity, inCart).Err(op); err != nil {
			return err
		}

		AddItem(c, skuID, quantity, sku.Price)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartItemAdded, sessionID, lineEvent{SKUID: skuID, Quantity: quantity})
	return s.hydrate(ctx, c), nil
}

// UpdateItem sets the quantity of an existing line. A quantity of zero or less
// removes the line. The cart, then the line, then the SKU must exist.
func (s *Service) UpdateItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error) {
	const op = "cart.update_item"

	c, err := s.mutate(ctx, op, sessionID, false, func(c *domain.Cart) error {
		if !HasItem(c, skuID) {
			return domain.ErrCartItemNotFound
		}

		if quantity > 0 {
			sku, err := s.activeSKU(ctx, skuID)
			if err != nil {
				return err
			}
			if err := inventory.CanSet(sku.Inventory, quantity).Err(op); err != nil {
				return err
			}
		}

		return UpdateItem(c, skuID, quantity)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartItemUpdated, sessionID, lineEvent{SKUID: skuID, Quantity: quantity})
	return s.hydrate(ctx, c), nil
}

// RemoveItem deletes a line from the session's cart.
func (s *Service) RemoveItem(ctx context.Context, sessionID string, skuID uuid.UUID) (*domain.CartView, error) {
	const op = "cart.remove_item"

	c, err := s.mutate(ctx, op, sessionID, false, func(c *domain.Cart) error {
		return RemoveItem(c, skuID)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartItemRemoved, sessionID, lineEvent{SKUID: skuID})
	return s.hydrate(ctx, c), nil
}

// Clear empties the session's cart, creating it if needed.
func (s *Service) Clear(ctx context.Context, sessionID string) (*domain.CartView, error) {
	const op = "cart.clear"

	c, err := s.mutate(ctx, op, sessionID, true, func(c *domain.Cart) error {
		ClearItems(c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.CartCleared, sessionID, nil)
	return s.hydrate(ctx, c), nil
}

// mutate runs fn against a fresh copy of the session's cart under the
// session lock and persists the result with a version check. A lost race
// re-reads and re-applies fn. With create set, a missing cart is started
// empty and only inserted if fn succeeds.
func (s *Service) mutate(ctx context.Context, op, sessionID string, create bool, fn func(*domain.Cart) error) (result *domain.Cart, err error) {
	operation := opLabel(op)
	defer func() {
		s.recordOutcome(operation, err)
	}()

	if sessionID == "" {
		return nil, domain.ErrSessionRequired
	}

	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to acquire cart lock")
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		current, err := s.store.GetCartBySession(ctx, sessionID)
		isNew := false
		if errors.Is(err, domain.ErrCartNotFound) && create {
			current, isNew, err = s.newCart(sessionID), true, nil
		}
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now()

		if isNew {
			err = s.store.InsertCart(ctx, next)
		} else {
			err = s.store.SaveCart(ctx, next)
		}
		if err == nil {
			if isNew {
				s.metrics.CartCreated()
			}
			s.metrics.ObserveCartValue(next.TotalAmount.InexactFloat64())
			return next, nil
		}

		// A cart swept between read and save is recreated by operations
		// that may create one.
		swept := create && !isNew && errors.Is(err, domain.ErrCartNotFound)
		retryable := swept || errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrDuplicateSession)
		if !retryable || attempt >= s.maxRetries {
			return nil, err
		}
		s.metrics.ConflictRetried()
		s.logger.Debug("retrying cart save after concurrent write",
			"op", op,
			"session_id", sessionID,
			"attempt", attempt+1,
		)
	}
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

func (s *Service) newCart(sessionID string) *domain.Cart {
	now := s.now()
	return &domain.Cart{
		ID:          uuid.New(),
		SessionID:   sessionID,
		Items:       []domain.CartItem{},
		TotalAmount: decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// hydrate joins each line with its SKU, product and category.
// Lines whose catalog records can no longer be read are returned bare.
func (s *Service) hydrate(ctx context.Context, c *domain.Cart) *domain.CartView {
	view := &domain.CartView{
		ID:          c.ID,
		SessionID:   c.SessionID,
		Items:       make([]domain.CartLine, 0, len(c.Items)),
		TotalAmount: c.TotalAmount,
		ItemCount:   ItemCount(c),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}

	products := map[uuid.UUID]*domain.Product{}
	categories := map[uuid.UUID]*domain.Category{}

	for _, item := range c.Items {
		line := domain.CartLine{CartItem: item}

		sku, err := s.store.GetSKU(ctx, item.SKUID)
		if err != nil {
			s.logHydrationError(ctx, "sku", item.SKUID, err)
			view.Items = append(view.Items, line)
			continue
		}
		line.SKU = sku

		product, ok := products[sku.ProductID]
		if !ok {
			product, err = s.store.GetProduct(ctx, sku.ProductID)
			if err != nil {
				s.logHydrationError(ctx, "product", sku.ProductID, err)
			}
			products[sku.ProductID] = product
		}
		line.Product = product

		if product != nil {
			category, ok := categories[product.CategoryID]
			if !ok {
				category, err = s.store.GetCategory(ctx, product.CategoryID)
				if err != nil {
					s.logHydrationError(ctx, "category", product.CategoryID, err)
				}
				categories[product.CategoryID] = category
			}
			line.Category = category
		}

		view.Items = append(view.Items, line)
	}

	return view
}

func (s *Service) logHydrationError(ctx context.Context, kind string, id uuid.UUID, err error) {
	if domain.IsCode(err, domain.ENOTFOUND) {
		return
	}
	s.logger.WarnContext(ctx, "failed to hydrate cart line",
		"kind", kind,
		"id", id.String(),
		"error", err,
	)
}

type lineEvent struct {
	SKUID    uuid.UUID `json:"skuId"`
	Quantity int       `json:"quantity,omitempty"`
}

func (s *Service) publish(ctx context.Context, eventType, sessionID string, data any) {
	err := s.publisher.Publish(ctx, events.New(eventType, sessionID, data))
	s.metrics.EventPublished(eventType, err)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart event",
			"type", eventType,
			"session_id", sessionID,
			"error", err,
		)
	}
}

func (s *Service) recordOutcome(operation string, err error) {
	switch {
	case err == nil:
		s.metrics.CartOperation(operation, telemetry.OutcomeOK)
	case domain.IsCode(err, domain.EINVENTORY):
		s.metrics.InventoryRejected(operation)
		s.metrics.CartOperation(operation, telemetry.OutcomeRejected)
	case domain.IsCode(err, domain.EINVALID), domain.IsCode(err, domain.ENOTFOUND), domain.IsCode(err, domain.ESESSION):
		s.metrics.CartOperation(operation, telemetry.OutcomeRejected)
	default:
		s.metrics.CartOperation(operation, telemetry.OutcomeError)
	}
}

func opLabel(op string) string {
	switch op {
	case "cart.add_item":
		return "add"
	case "cart.update_item":
		return "update"
	case "cart.remove_item":
		return "remove"
	case "cart.clear":
		return "clear"
	}
	return op
}
