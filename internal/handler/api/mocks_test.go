package api

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/domain"
)

var errNotStubbed = errors.New("not stubbed")

// mockCartService implements domain.CartService for testing
type mockCartService struct {
	getFunc        func(ctx context.Context, sessionID string) (*domain.CartView, error)
	addItemFunc    func(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error)
	updateItemFunc func(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error)
	removeItemFunc func(ctx context.Context, sessionID string, skuID uuid.UUID) (*domain.CartView, error)
	clearFunc      func(ctx context.Context, sessionID string) (*domain.CartView, error)
}

func (m *mockCartService) Get(ctx context.Context, sessionID string) (*domain.CartView, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, sessionID)
	}
	return nil, errNotStubbed
}

func (m *mockCartService) AddItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error) {
	if m.addItemFunc != nil {
		return m.addItemFunc(ctx, sessionID, skuID, quantity)
	}
	return nil, errNotStubbed
}

func (m *mockCartService) UpdateItem(ctx context.Context, sessionID string, skuID uuid.UUID, quantity int) (*domain.CartView, error) {
	if m.updateItemFunc != nil {
		return m.updateItemFunc(ctx, sessionID, skuID, quantity)
	}
	return nil, errNotStubbed
}

func (m *mockCartService) RemoveItem(ctx context.Context, sessionID string, skuID uuid.UUID) (*domain.CartView, error) {
	if m.removeItemFunc != nil {
		return m.removeItemFunc(ctx, sessionID, skuID)
	}
	return nil, errNotStubbed
}

func (m *mockCartService) Clear(ctx context.Context, sessionID string) (*domain.CartView, error) {
	if m.clearFunc != nil {
		return m.clearFunc(ctx, sessionID)
	}
	return nil, errNotStubbed
}

// mockCatalogService implements domain.CatalogService for testing
type mockCatalogService struct {
	listCategoriesFunc func(ctx context.Context) ([]domain.Category, error)
	getCategoryFunc    func(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	createCategoryFunc func(ctx context.Context, in domain.CategoryInput) (*domain.Category, error)
	updateCategoryFunc func(ctx context.Context, id uuid.UUID, in domain.CategoryInput) (*domain.Category, error)
	deleteCategoryFunc func(ctx context.Context, id uuid.UUID) error

	listProductsFunc  func(ctx context.Context, filter domain.ProductFilter) ([]domain.ProductListItem, domain.PageMeta, error)
	getProductFunc    func(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error)
	createProductFunc func(ctx context.Context, in domain.ProductInput) (*domain.Product, error)
	updateProductFunc func(ctx context.Context, id uuid.UUID, in domain.ProductInput) (*domain.Product, error)
	deleteProductFunc func(ctx context.Context, id uuid.UUID) error

	listSKUsFunc  func(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]domain.SKU, error)
	getSKUFunc    func(ctx context.Context, id uuid.UUID) (*domain.SKUDetail, error)
	createSKUFunc func(ctx context.Context, productID uuid.UUID, in domain.SKUInput) (*domain.SKU, error)
	updateSKUFunc func(ctx context.Context, id uuid.UUID, in domain.SKUInput) (*domain.SKU, error)
	deleteSKUFunc func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.listCategoriesFunc != nil {
		return m.listCategoriesFunc(ctx)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	if m.getCategoryFunc != nil {
		return m.getCategoryFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) CreateCategory(ctx context.Context, in domain.CategoryInput) (*domain.Category, error) {
	if m.createCategoryFunc != nil {
		return m.createCategoryFunc(ctx, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in domain.CategoryInput) (*domain.Category, error) {
	if m.updateCategoryFunc != nil {
		return m.updateCategoryFunc(ctx, id, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if m.deleteCategoryFunc != nil {
		return m.deleteCategoryFunc(ctx, id)
	}
	return errNotStubbed
}

func (m *mockCatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.ProductListItem, domain.PageMeta, error) {
	if m.listProductsFunc != nil {
		return m.listProductsFunc(ctx, filter)
	}
	return nil, domain.PageMeta{}, errNotStubbed
}

func (m *mockCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.ProductDetail, error) {
	if m.getProductFunc != nil {
		return m.getProductFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) CreateProduct(ctx context.Context, in domain.ProductInput) (*domain.Product, error) {
	if m.createProductFunc != nil {
		return m.createProductFunc(ctx, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in domain.ProductInput) (*domain.Product, error) {
	if m.updateProductFunc != nil {
		return m.updateProductFunc(ctx, id, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if m.deleteProductFunc != nil {
		return m.deleteProductFunc(ctx, id)
	}
	return errNotStubbed
}

func (m *mockCatalogService) ListSKUs(ctx context.Context, productID uuid.UUID, inStockOnly bool) ([]domain.SKU, error) {
	if m.listSKUsFunc != nil {
		return m.listSKUsFunc(ctx, productID, inStockOnly)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) GetSKU(ctx context.Context, id uuid.UUID) (*domain.SKUDetail, error) {
	if m.getSKUFunc != nil {
		return m.getSKUFunc(ctx, id)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) CreateSKU(ctx context.Context, productID uuid.UUID, in domain.SKUInput) (*domain.SKU, error) {
	if m.createSKUFunc != nil {
		return m.createSKUFunc(ctx, productID, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) UpdateSKU(ctx context.Context, id uuid.UUID, in domain.SKUInput) (*domain.SKU, error) {
	if m.updateSKUFunc != nil {
		return m.updateSKUFunc(ctx, id, in)
	}
	return nil, errNotStubbed
}

func (m *mockCatalogService) DeleteSKU(ctx context.Context, id uuid.UUID) error {
	if m.deleteSKUFunc != nil {
		return m.deleteSKUFunc(ctx, id)
	}
	return errNotStubbed
}
