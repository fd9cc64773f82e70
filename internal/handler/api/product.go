package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/shopfront/internal/catalog"
	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/handler"
)

// ProductHandler serves /api/products.
type ProductHandler struct {
	catalog domain.CatalogService
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog domain.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// List handles GET /api/products?search=&categoryId=&page=&pageSize=
//
// Missing page and pageSize default to 1 and 10; out-of-range values are
// rejected by the catalog service.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	products, meta, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSONWithMeta(w, http.StatusOK, products, meta)
}

func productFilter(r *http.Request) (domain.ProductFilter, error) {
	const op = "api.product.list"

	q := r.URL.Query()
	filter := domain.ProductFilter{Search: q.Get("search")}
	var verr error

	page, ok := queryInt(r, "page", catalog.DefaultPage)
	if !ok {
		verr = domain.AddFieldError(verr, "page", "Page must be a number")
	}
	filter.Page = page

	pageSize, ok := queryInt(r, "pageSize", catalog.DefaultPageSize)
	if !ok {
		verr = domain.AddFieldError(verr, "pageSize", "Page size must be a number")
	}
	filter.PageSize = pageSize

	if raw := strings.TrimSpace(q.Get("categoryId")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			verr = domain.AddFieldError(verr, "categoryId", "Invalid category ID format")
		} else {
			filter.CategoryID = &id
		}
	}

	if verr != nil {
		verr.(*domain.ValidationError).Op = op
		return filter, verr
	}
	return filter, nil
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.product.get", "id", "Invalid product ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, product)
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := handler.DecodeJSON(r, "api.product.create", &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusCreated, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "api.product.update"

	id, err := pathID(r, op, "id", "Invalid product ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var in domain.ProductInput
	if err := handler.DecodeJSON(r, op, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}. Active SKUs are deactivated with it.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "api.product.delete", "id", "Invalid product ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, deletedResponse{Message: "Product and associated SKUs deleted successfully"})
}
