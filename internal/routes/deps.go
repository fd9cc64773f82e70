package routes

import (
	"github.com/dukerupert/shopfront/internal/handler/api"
)

// APIDeps contains dependencies for the /api routes
type APIDeps struct {
	// Cart (session-scoped)
	CartHandler *api.CartHandler

	// Catalog
	CategoryHandler *api.CategoryHandler
	ProductHandler  *api.ProductHandler
	SKUHandler      *api.SKUHandler

	// Operations
	HealthHandler *api.HealthHandler
}
