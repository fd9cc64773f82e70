package api

import (
	"net/http"

	"github.com/dukerupert/shopfront/internal/domain"
	"github.com/dukerupert/shopfront/internal/handler"
)

// CartHandler serves the session's cart. The session comes from the
// middleware.Session context value, never from the body.
type CartHandler struct {
	carts domain.CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts domain.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	SKUID    string `json:"skuId" validate:"required,uuid"`
	Quantity *int   `json:"quantity" validate:"required,min=1,max=99"`
}

var addItemMessages = map[string]string{
	"skuId.required":    "SKU ID is required",
	"skuId.uuid":        "Invalid SKU ID format",
	"quantity.required": "Quantity is required",
	"quantity.min":      "Quantity must be at least 1",
	"quantity.max":      "Quantity cannot exceed 99",
}

// A quantity of 0 removes the line.
type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0,max=99"`
}

var updateItemMessages = map[string]string{
	"quantity.required": "Quantity is required",
	"quantity.min":      "Quantity cannot be negative",
	"quantity.max":      "Quantity cannot exceed 99",
}

// Get handles GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, err := domain.RequireSessionID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.Get(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.add_item"

	sessionID, err := domain.RequireSessionID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req addItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest(op, req, addItemMessages); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	skuID, err := parseUUID(req.SKUID, op, "skuId")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.AddItem(r.Context(), sessionID, skuID, *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusCreated, cart)
}

// UpdateItem handles PUT /api/cart/items/{skuId}
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.update_item"

	sessionID, err := domain.RequireSessionID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	skuID, err := pathID(r, op, "skuId", "Invalid SKU ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req updateItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := validateRequest(op, req, updateItemMessages); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.UpdateItem(r.Context(), sessionID, skuID, *req.Quantity)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/items/{skuId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.cart.remove_item"

	sessionID, err := domain.RequireSessionID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	skuID, err := pathID(r, op, "skuId", "Invalid SKU ID format")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.RemoveItem(r.Context(), sessionID, skuID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, cart)
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, err := domain.RequireSessionID(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cart, err := h.carts.Clear(r.Context(), sessionID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusOK, cart)
}
