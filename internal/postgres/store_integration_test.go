//go:build integration
// +build integration

package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopfront/internal"
	"github.com/dukerupert/shopfront/internal/domain"
)

// newTestStore connects to TEST_DATABASE_URL from .env.test, migrates,
// and empties every table.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	if err := godotenv.Load("../../.env.test"); err != nil {
		t.Skipf("Skipping integration test: .env.test not found (%v)", err)
	}
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set in .env.test")
	}

	ctx := context.Background()
	sqlDB, err := sql.Open("pgx", url)
	require.NoError(t, err)
	require.NoError(t, internal.RunMigrations(ctx, sqlDB, slog.New(slog.DiscardHandler)))
	require.NoError(t, sqlDB.Close())

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE carts, skus, products, categories`)
	require.NoError(t, err)

	return New(pool)
}

func seedProduct(t *testing.T, s *Store, name string) *domain.Product {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	c := &domain.Category{ID: uuid.New(), Name: name + " Category", Slug: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertCategory(ctx, c))

	p := &domain.Product{
		ID: uuid.New(), Name: name, Description: "Seeded for integration tests",
		CategoryID: c.ID, Slug: uuid.NewString(), BasePrice: decimal.RequireFromString("12.00"),
		Images: []string{"https://example.com/a.jpg"}, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.InsertProduct(ctx, p))
	return p
}

func seedSKU(t *testing.T, s *Store, productID uuid.UUID, code string, inventory int) *domain.SKU {
	t.Helper()
	now := time.Now().UTC()
	sku := &domain.SKU{
		ID: uuid.New(), ProductID: productID, Code: code, Name: code,
		Price: decimal.RequireFromString("10.99"), Inventory: inventory,
		Attributes: domain.Attributes{{Key: "size", Value: "12oz"}, {Key: "grind", Value: "whole"}},
		IsActive:   true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.InsertSKU(context.Background(), sku))
	return sku
}

func TestStore_CatalogRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "House Blend")
	sku := seedSKU(t, s, p.ID, "HB-12", 5)

	got, err := s.GetSKU(ctx, sku.ID)
	require.NoError(t, err)
	assert.True(t, sku.Price.Equal(got.Price))
	assert.Equal(t, sku.Attributes, got.Attributes)

	dup := *sku
	dup.ID = uuid.New()
	err = s.InsertSKU(ctx, &dup)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "SKU code already exists", domain.ErrorMessage(err))

	products, total, err := s.ListProducts(ctx, domain.ProductFilter{Search: "house", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)

	_, err = s.GetProduct(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestStore_DeactivateProductCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Sampler")
	ids := []uuid.UUID{
		seedSKU(t, s, p.ID, "SM-1", 1).ID,
		seedSKU(t, s, p.ID, "SM-2", 1).ID,
		seedSKU(t, s, p.ID, "SM-3", 0).ID,
	}

	inStock, err := s.ListSKUs(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Len(t, inStock, 2)

	require.NoError(t, s.DeactivateProduct(ctx, p.ID))
	assert.ErrorIs(t, s.DeactivateProduct(ctx, p.ID), domain.ErrProductNotFound)

	for _, id := range ids {
		sku, err := s.GetSKU(ctx, id)
		require.NoError(t, err)
		assert.False(t, sku.IsActive)
	}
	active, err := s.ListSKUs(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStore_CartVersioning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := seedProduct(t, s, "Espresso")
	sku := seedSKU(t, s, p.ID, "ES-1", 10)

	now := time.Now().UTC()
	c := &domain.Cart{ID: uuid.New(), SessionID: uuid.NewString(), Items: []domain.CartItem{}, TotalAmount: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, s.InsertCart(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	again := *c
	again.ID = uuid.New()
	assert.ErrorIs(t, s.InsertCart(ctx, &again), domain.ErrDuplicateSession)

	stale, err := s.GetCartBySession(ctx, c.SessionID)
	require.NoError(t, err)

	c.Items = []domain.CartItem{{SKUID: sku.ID, Quantity: 2, UnitPrice: sku.Price, Subtotal: decimal.RequireFromString("21.98")}}
	c.TotalAmount = decimal.RequireFromString("21.98")
	require.NoError(t, s.SaveCart(ctx, c))
	assert.Equal(t, int64(2), c.Version)

	assert.ErrorIs(t, s.SaveCart(ctx, stale), domain.ErrVersionConflict)

	refs, err := s.CartReferencesSKU(ctx, sku.ID)
	require.NoError(t, err)
	assert.True(t, refs)

	refs, err = s.CartReferencesSKU(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, refs)

	n, err := s.DeleteIdleCarts(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStore_ConcurrentInsertCart(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.NewString()

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			now := time.Now().UTC()
			errs[i] = s.InsertCart(ctx, &domain.Cart{ID: uuid.New(), SessionID: sessionID, TotalAmount: decimal.Zero, CreatedAt: now, UpdatedAt: now})
		}()
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrDuplicateSession)
	}
	assert.Equal(t, 1, created)
}
