package api

import (
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/handler"
)

// CategoryHandler serves /api/categories.
type CategoryHandler struct {
	catalog domain.CatalogService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(catalog domain.CatalogService) *CategoryHandler {
	return &CategoryHandler{catalog: catalog}
}

// List handles GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, categories)
}

// Get handles GET /api/categories/{id}
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.category.get", "id", "Invalid category ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, category)
}

// Create handles POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CategoryInput
	if err := handler.DecodeJSON(r, "api.category.create", &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, category)
}

// Update handles PUT /api/categories/{id}
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "api.category.update"

	id, err := pathID(r, op, "id", "Invalid category ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var in domain.CategoryInput
	if err := handler.DecodeJSON(r, op, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	category, err := h.catalog.UpdateCategory(r.Context(), id, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.category.delete", "id", "Invalid category ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, deletedResponse{Message: "Category deleted successfully"})
}

type deletedResponse struct {
	Message string `json:"message"`
}
