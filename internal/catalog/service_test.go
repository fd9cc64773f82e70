package catalog

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/memory"
	"github.com/dukerupert/shopfront/internal/telemetry"
)

func ptr[T any](v T) *T { return &v }

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store), store
}

func mustCategory(t *testing.T, svc *Service, name string) *domain.Category {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), domain.CategoryInput{Name: ptr(name)})
	require.NoError(t, err)
	return c
}

func mustProduct(t *testing.T, svc *Service, categoryID uuid.UUID, name string) *domain.Product {
	t.Helper()
	p, err := svc.CreateProduct(context.Background(), domain.ProductInput{
		Name:        ptr(name),
		Description: ptr("A carefully sourced coffee"),
		CategoryID:  &categoryID,
		BasePrice:   money("15.00"),
	})
	require.NoError(t, err)
	return p
}

func mustSKU(t *testing.T, svc *Service, productID uuid.UUID, code string, stock int) *domain.SKU {
	t.Helper()
	sku, err := svc.CreateSKU(context.Background(), productID, domain.SKUInput{
		Code:      ptr(code),
		Name:      ptr("12oz bag"),
		Price:     money("16.50"),
		Inventory: ptr(stock),
	})
	require.NoError(t, err)
	return sku
}

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	c, err := svc.CreateCategory(ctx, domain.CategoryInput{
		Name:        ptr("  Single Origin  "),
		Description: ptr("Beans from one farm"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Single Origin", c.Name)
	assert.Equal(t, "single-origin", c.Slug)
	assert.True(t, c.IsActive)

	_, err = svc.CreateCategory(ctx, domain.CategoryInput{Name: ptr("Single Origin")})
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestCreateCategory_Validation(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name    string
		in      domain.CategoryInput
		field   string
		message string
	}{
		{"missing name", domain.CategoryInput{}, "name", "Category name is required"},
		{"short name", domain.CategoryInput{Name: ptr("A")}, "name", "Category name must be at least 2 characters"},
		{"symbol name", domain.CategoryInput{Name: ptr("!!")}, "name", "Category name must contain letters or numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCategory(context.Background(), tt.in)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, tt.message, domain.GetValidationFields(err)[tt.field])
		})
	}
}

func TestUpdateCategory_RegeneratesSlug(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Espresso")

	updated, err := svc.UpdateCategory(ctx, c.ID, domain.CategoryInput{Description: ptr("Dark and syrupy")})
	require.NoError(t, err)
	assert.Equal(t, "espresso", updated.Slug)
	assert.Equal(t, "Dark and syrupy", updated.Description)

	updated, err = svc.UpdateCategory(ctx, c.ID, domain.CategoryInput{Name: ptr("Espresso Blends")})
	require.NoError(t, err)
	assert.Equal(t, "espresso-blends", updated.Slug)
	assert.Equal(t, "Dark and syrupy", updated.Description)
}

func TestDeleteCategory_BlockedByActiveProducts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Equipment")
	p := mustProduct(t, svc, c.ID, "Burr Grinder")

	err := svc.DeleteCategory(ctx, c.ID)
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "Cannot delete category with existing products", domain.ErrorMessage(err))

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	require.NoError(t, svc.DeleteCategory(ctx, c.ID))

	_, err = svc.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")

	first := mustProduct(t, svc, c.ID, "House Blend")
	second := mustProduct(t, svc, c.ID, "House Blend")
	third := mustProduct(t, svc, c.ID, "House  Blend!")

	assert.Equal(t, "house-blend", first.Slug)
	assert.Equal(t, "house-blend-1", second.Slug)
	assert.Equal(t, "house-blend-2", third.Slug)
	assert.NotNil(t, first.Images)

	t.Run("inactive category", func(t *testing.T) {
		gone := mustCategory(t, svc, "Retired")
		require.NoError(t, svc.DeleteCategory(ctx, gone.ID))

		_, err := svc.CreateProduct(ctx, domain.ProductInput{
			Name:        ptr("Old Stock"),
			Description: ptr("Should not be created"),
			CategoryID:  &gone.ID,
			BasePrice:   money("1.00"),
		})
		require.Error(t, err)
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		assert.Contains(t, domain.GetValidationFields(err), "categoryId")
	})

	t.Run("field errors reported together", func(t *testing.T) {
		_, err := svc.CreateProduct(ctx, domain.ProductInput{
			Name:        ptr("X"),
			Description: ptr("short"),
			Images:      ptr([]string{"not a url"}),
		})
		require.Error(t, err)
		fields := domain.GetValidationFields(err)
		assert.Equal(t, "Product name must be at least 2 characters", fields["name"])
		assert.Equal(t, "Description must be at least 10 characters", fields["description"])
		assert.Equal(t, "Category is required", fields["categoryId"])
		assert.Equal(t, "Base price is required", fields["basePrice"])
		assert.Equal(t, "All images must be valid URLs", fields["images[0]"])
	})

	priceTests := []struct {
		name  string
		price string
		msg   string
	}{
		{"negative price", "-0.01", "Base price cannot be negative"},
		{"fractional cents", "18.505", "Base price cannot have more than 2 decimal places"},
		{"past column range", "10000000000.00", "Base price cannot exceed 9999999999.99"},
	}
	for _, tt := range priceTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProduct(ctx, domain.ProductInput{
				Name:        ptr("Refund"),
				Description: ptr("Oddly priced product"),
				CategoryID:  &c.ID,
				BasePrice:   money(tt.price),
			})
			require.Error(t, err)
			assert.Equal(t, tt.msg, domain.GetValidationFields(err)["basePrice"])
		})
	}

	t.Run("trailing zeros and column maximum accepted", func(t *testing.T) {
		for i, price := range []string{"18.500", "9999999999.99"} {
			p, err := svc.CreateProduct(ctx, domain.ProductInput{
				Name:        ptr(fmt.Sprintf("Boundary %d", i)),
				Description: ptr("Priced at the edge of the column"),
				CategoryID:  &c.ID,
				BasePrice:   money(price),
			})
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(price).Equal(p.BasePrice))
		}
	})
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	other := mustCategory(t, svc, "Tea")
	p := mustProduct(t, svc, c.ID, "Morning Blend")
	mustProduct(t, svc, c.ID, "Evening Blend")

	updated, err := svc.UpdateProduct(ctx, p.ID, domain.ProductInput{
		Name:       ptr("Evening Blend"),
		CategoryID: &other.ID,
		Images:     ptr([]string{"https://cdn.example.com/evening.jpg"}),
	})
	require.NoError(t, err)
	assert.Equal(t, "evening-blend-1", updated.Slug)
	assert.Equal(t, other.ID, updated.CategoryID)
	assert.Equal(t, []string{"https://cdn.example.com/evening.jpg"}, updated.Images)
	assert.True(t, decimal.RequireFromString("15.00").Equal(updated.BasePrice))

	// Renaming to the same name keeps the slug.
	again, err := svc.UpdateProduct(ctx, p.ID, domain.ProductInput{Name: ptr("Evening Blend")})
	require.NoError(t, err)
	assert.Equal(t, "evening-blend-1", again.Slug)

	_, err = svc.UpdateProduct(ctx, uuid.New(), domain.ProductInput{})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestDeleteProduct_CascadesToSKUs(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Kenya AA")
	a := mustSKU(t, svc, p.ID, "ken-12", 5)
	b := mustSKU(t, svc, p.ID, "ken-5lb", 5)

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		stored, err := store.GetSKU(ctx, id)
		require.NoError(t, err)
		assert.False(t, stored.IsActive)

		_, err = svc.GetSKU(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSKUNotFound)
	}

	_, err := svc.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), domain.ErrProductNotFound)
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	metrics := telemetry.NewBusinessMetrics("test", prometheus.NewRegistry())
	svc := NewService(store, WithMetrics(metrics))

	coffee := mustCategory(t, svc, "Coffee")
	tea := mustCategory(t, svc, "Tea")
	for _, name := range []string{"Colombia", "Brazil", "Ethiopia"} {
		mustProduct(t, svc, coffee.ID, name)
	}
	mustProduct(t, svc, tea.ID, "Sencha")

	items, meta, err := svc.ListProducts(ctx, domain.ProductFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Brazil", items[0].Name)
	assert.Equal(t, "Colombia", items[1].Name)
	require.NotNil(t, items[0].Category)
	assert.Equal(t, "Coffee", items[0].Category.Name)
	assert.Equal(t, domain.PageMeta{Page: 1, PageSize: 2, TotalItems: 4, TotalPages: 2, HasNext: true, HasPrev: false}, meta)

	items, meta, err = svc.ListProducts(ctx, domain.ProductFilter{CategoryID: &tea.ID, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Sencha", items[0].Name)
	assert.Equal(t, 1, meta.TotalItems)

	items, _, err = svc.ListProducts(ctx, domain.ProductFilter{Search: " ethi ", Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Ethiopia", items[0].Name)

	invalid := []struct {
		name    string
		filter  domain.ProductFilter
		field   string
		message string
	}{
		{"page zero", domain.ProductFilter{Page: 0, PageSize: 10}, "page", "Page must be at least 1"},
		{"page size too big", domain.ProductFilter{Page: 1, PageSize: 101}, "pageSize", "Page size must be between 1 and 100"},
		{"offset overflows", domain.ProductFilter{Page: math.MaxInt / 50, PageSize: 100}, "page", "Page is too large"},
		{"max page", domain.ProductFilter{Page: math.MaxInt, PageSize: 2}, "page", "Page is too large"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.ListProducts(ctx, tt.filter)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
			assert.Equal(t, tt.message, domain.GetValidationFields(err)[tt.field])
		})
	}

	items, meta, err = svc.ListProducts(ctx, domain.ProductFilter{Page: 1000, PageSize: 100})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 4, meta.TotalItems)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ProductSearches.WithLabelValues("none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProductSearches.WithLabelValues("category")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProductSearches.WithLabelValues("search")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.CatalogChanges.WithLabelValues("product", "create")))
}

func TestGetProduct_Detail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Guatemala")
	sku := mustSKU(t, svc, p.ID, "gua-12", 3)
	gone := mustSKU(t, svc, p.ID, "gua-5lb", 3)
	require.NoError(t, svc.DeleteSKU(ctx, gone.ID))

	detail, err := svc.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, detail.ID)
	require.NotNil(t, detail.Category)
	assert.Equal(t, c.ID, detail.Category.ID)
	require.Len(t, detail.SKUs, 1)
	assert.Equal(t, sku.ID, detail.SKUs[0].ID)
}

func TestCreateSKU(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Sumatra")

	attrs := domain.Attributes{{Key: "weight", Value: "12oz"}, {Key: "grind", Value: "whole"}}
	sku, err := svc.CreateSKU(ctx, p.ID, domain.SKUInput{
		Code:       ptr(" sum-12oz "),
		Name:       ptr("Sumatra 12oz"),
		Price:      money("17.25"),
		Inventory:  ptr(8),
		Attributes: &attrs,
	})
	require.NoError(t, err)
	assert.Equal(t, "SUM-12OZ", sku.Code)
	assert.Equal(t, attrs, sku.Attributes)

	tests := []struct {
		name  string
		in    domain.SKUInput
		field string
		msg   string
	}{
		{
			name:  "bad code",
			in:    domain.SKUInput{Code: ptr("sum_12"), Name: ptr("Sumatra"), Price: money("1"), Inventory: ptr(1)},
			field: "sku",
			msg:   "SKU must contain only alphanumeric characters and hyphens",
		},
		{
			name:  "negative inventory",
			in:    domain.SKUInput{Code: ptr("SUM-1"), Name: ptr("Sumatra"), Price: money("1"), Inventory: ptr(-1)},
			field: "inventory",
			msg:   "Inventory cannot be negative",
		},
		{
			name:  "missing price",
			in:    domain.SKUInput{Code: ptr("SUM-2"), Name: ptr("Sumatra"), Inventory: ptr(1)},
			field: "price",
			msg:   "Price is required",
		},
		{
			name:  "inventory past column range",
			in:    domain.SKUInput{Code: ptr("SUM-4"), Name: ptr("Sumatra"), Price: money("1"), Inventory: ptr(2147483648)},
			field: "inventory",
			msg:   "Inventory cannot exceed 2147483647",
		},
		{
			name:  "fractional cents",
			in:    domain.SKUInput{Code: ptr("SUM-5"), Name: ptr("Sumatra"), Price: money("10.005"), Inventory: ptr(1)},
			field: "price",
			msg:   "Price cannot have more than 2 decimal places",
		},
		{
			name:  "price past column range",
			in:    domain.SKUInput{Code: ptr("SUM-6"), Name: ptr("Sumatra"), Price: money("10000000000"), Inventory: ptr(1)},
			field: "price",
			msg:   "Price cannot exceed 9999999999.99",
		},
		{
			name:  "empty attribute key",
			in:    domain.SKUInput{Code: ptr("SUM-3"), Name: ptr("Sumatra"), Price: money("1"), Inventory: ptr(1), Attributes: &domain.Attributes{{Key: " ", Value: "x"}}},
			field: "attributes",
			msg:   "Attribute keys cannot be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateSKU(ctx, p.ID, tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.msg, domain.GetValidationFields(err)[tt.field])
		})
	}

	t.Run("duplicate code", func(t *testing.T) {
		_, err := svc.CreateSKU(ctx, p.ID, domain.SKUInput{Code: ptr("SUM-12OZ"), Name: ptr("Dup"), Price: money("1"), Inventory: ptr(1)})
		assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	})

	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.CreateSKU(ctx, uuid.New(), domain.SKUInput{Code: ptr("X-1"), Name: ptr("Nope"), Price: money("1"), Inventory: ptr(1)})
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})
}

func TestUpdateSKU_Partial(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Peru")
	sku := mustSKU(t, svc, p.ID, "peru-12", 4)

	updated, err := svc.UpdateSKU(ctx, sku.ID, domain.SKUInput{Inventory: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Inventory)
	assert.Equal(t, "PERU-12", updated.Code)
	assert.True(t, decimal.RequireFromString("16.50").Equal(updated.Price))

	skus, err := svc.ListSKUs(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Empty(t, skus)

	skus, err = svc.ListSKUs(ctx, p.ID, false)
	require.NoError(t, err)
	assert.Len(t, skus, 1)
}

func TestDeleteSKU_BlockedByCart(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Honduras")
	sku := mustSKU(t, svc, p.ID, "hon-12", 4)

	cart := &domain.Cart{
		ID:        uuid.New(),
		SessionID: uuid.NewString(),
		Items:     []domain.CartItem{{SKUID: sku.ID, Quantity: 1, UnitPrice: sku.Price, Subtotal: sku.Price}},
	}
	require.NoError(t, store.InsertCart(ctx, cart))

	err := svc.DeleteSKU(ctx, sku.ID)
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
	assert.Equal(t, "Cannot delete SKU that is in shopping carts", domain.ErrorMessage(err))

	cart.Items = []domain.CartItem{}
	require.NoError(t, store.SaveCart(ctx, cart))
	require.NoError(t, svc.DeleteSKU(ctx, sku.ID))
}

func TestGetSKU_Detail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Coffee")
	p := mustProduct(t, svc, c.ID, "Rwanda")
	sku := mustSKU(t, svc, p.ID, "rwa-12", 4)

	detail, err := svc.GetSKU(ctx, sku.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Product)
	require.NotNil(t, detail.Category)
	assert.Equal(t, p.ID, detail.Product.ID)
	assert.Equal(t, c.ID, detail.Category.ID)
}
