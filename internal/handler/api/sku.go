package api

import (
	"net/http"
	"strings"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/handler"
)

// SKUHandler serves /api/products/{id}/skus and /api/skus.
type SKUHandler struct {
	catalog domain.CatalogService
}

// NewSKUHandler creates a new SKU handler
func NewSKUHandler(catalog domain.CatalogService) *SKUHandler {
	return &SKUHandler{catalog: catalog}
}

// List handles GET /api/products/{id}/skus?inStock=true
func (h *SKUHandler) List(w http.ResponseWriter, r *http.Request) {
	const op = "api.sku.list"

	productID, err := pathID(r, op, "id", "Invalid product ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var inStock bool
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("inStock"))) {
	case "", "false":
	case "true":
		inStock = true
	default:
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "inStock", "inStock must be true or false"))
		return
	}

	skus, err := h.catalog.ListSKUs(r.Context(), productID, inStock)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, skus)
}

// Get handles GET /api/skus/{id}
func (h *SKUHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.sku.get", "id", "Invalid SKU ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sku, err := h.catalog.GetSKU(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, sku)
}

// Create handles POST /api/products/{id}/skus
func (h *SKUHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "api.sku.create"

	productID, err := pathID(r, op, "id", "Invalid product ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var in domain.SKUInput
	if err := handler.DecodeJSON(r, op, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sku, err := h.catalog.CreateSKU(r.Context(), productID, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, sku)
}

// Update handles PUT /api/skus/{id}
func (h *SKUHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "api.sku.update"

	id, err := pathID(r, op, "id", "Invalid SKU ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var in domain.SKUInput
	if err := handler.DecodeJSON(r, op, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	sku, err := h.catalog.UpdateSKU(r.Context(), id, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, sku)
}

// Delete handles DELETE /api/skus/{id}. Refused while any cart holds the SKU.
func (h *SKUHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.sku.delete", "id", "Invalid SKU ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.catalog.DeleteSKU(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, deletedResponse{Message: "SKU deleted successfully"})
}
