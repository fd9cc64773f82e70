package routes

import (
	"github.com/dukerupert/shopfront/internal/handler"
	"github.com/dukerupert/shopfront/internal/router"
)

// RegisterAPIRoutes registers the storefront REST API.
//
// Every route is session-aware: the Session middleware in the global chain
// resolves X-Session-Id before any handler runs. Unmatched paths answer with
// a NOT_FOUND envelope.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Cart
	r.Get("/api/cart", deps.CartHandler.Get)
	r.Delete("/api/cart", deps.CartHandler.Clear)
	r.Post("/api/cart/items", deps.CartHandler.AddItem)
	r.Put("/api/cart/items/{skuId}", deps.CartHandler.UpdateItem)
	r.Delete("/api/cart/items/{skuId}", deps.CartHandler.RemoveItem)

	// Categories
	r.Get("/api/categories", deps.CategoryHandler.List)
	r.Post("/api/categories", deps.CategoryHandler.Create)
	r.Get("/api/categories/{id}", deps.CategoryHandler.Get)
	r.Put("/api/categories/{id}", deps.CategoryHandler.Update)
	r.Delete("/api/categories/{id}", deps.CategoryHandler.Delete)

	// Products
	r.Get("/api/products", deps.ProductHandler.List)
	r.Post("/api/products", deps.ProductHandler.Create)
	r.Get("/api/products/{id}", deps.ProductHandler.Get)
	r.Put("/api/products/{id}", deps.ProductHandler.Update)
	r.Delete("/api/products/{id}", deps.ProductHandler.Delete)

	// SKUs
	r.Get("/api/products/{id}/skus", deps.SKUHandler.List)
	r.Post("/api/products/{id}/skus", deps.SKUHandler.Create)
	r.Get("/api/skus/{id}", deps.SKUHandler.Get)
	r.Put("/api/skus/{id}", deps.SKUHandler.Update)
	r.Delete("/api/skus/{id}", deps.SKUHandler.Delete)

	// Health
	r.Get("/api/health", deps.HealthHandler.Check)

	r.NotFound(handler.NotFoundResponse)
}
