package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/cart/domain"
	"github.com/aimankhan01/grocery-backend/internal/cart/session"
	"github.com/aimankhan01/grocery-backend/internal/cart/store"
	"github.com/aimankhan01/grocery-backend/internal/catalog"
	"github.com/go-chi/chi/v5"
)

// ProductGetter is the slice of the catalog client the cart handlers need.
// Consumers define this interface, not the HTTP implementation.
type ProductGetter interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

type CartHandler struct {
	sessions  *session.Manager
	products  ProductGetter
	submitter store.Submitter
	timeout   time.Duration
}

func NewCartHandler(sessions *session.Manager, products ProductGetter, submitter store.Submitter, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions:  sessions,
		products:  products,
		submitter: submitter,
		timeout:   timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Delta int `json:"delta"`
}

type CartItemDTO struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

type CartResponseDTO struct {
	UserID    string        `json:"user_id"`
	Items     []CartItemDTO `json:"items"`
	Total     float64       `json:"total"`
	Selection []string      `json:"selection,omitempty"`
}

type CheckoutResponseDTO struct {
	OrderID   string        `json:"order_id"`
	Total     float64       `json:"total"`
	Items     []CartItemDTO `json:"items"`
	CreatedAt string        `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity < 1 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	// Validate the product against the catalog and take the description and
	// price from there, not from the client.
	product, err := h.products.GetProduct(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		log.Printf("failed to validate product %s: %v", req.ProductID, err)
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "failed to validate product")
		return
	}

	item := domain.LineItem{
		ProductID:   product.ProductID,
		Name:        product.Name,
		Description: product.Description,
		UnitPrice:   product.Price,
	}
	if err := cart.AddItem(ctx, item, req.Quantity); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertCart(cart))
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		respondError(w, http.StatusBadRequest, "invalid_delta", "delta must be non-zero")
		return
	}

	if err := cart.UpdateQuantity(ctx, productID, req.Delta); err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart.RemoveItem(ctx, productID)

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	cart.Clear(ctx)

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/selection/{product_id}
func (h *CartHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	cart.ToggleSelection(productID)

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/cart/selection/add
// Bulk add: everything toggled on the browse screens lands in the cart with
// quantity 1, then the selection is reset.
func (h *CartHandler) AddSelected(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	for _, productID := range cart.Selection() {
		product, err := h.products.GetProduct(ctx, productID)
		if err != nil {
			log.Printf("skipping selected product %s: %v", productID, err)
			continue
		}

		item := domain.LineItem{
			ProductID:   product.ProductID,
			Name:        product.Name,
			Description: product.Description,
			UnitPrice:   product.Price,
		}
		if err := cart.AddItem(ctx, item, 1); err != nil {
			log.Printf("skipping selected product %s: %v", productID, err)
		}
	}
	cart.ClearSelection()

	respondJSON(w, http.StatusOK, convertCart(cart))
}

// POST /api/v1/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, ok := h.userCart(ctx, w, r)
	if !ok {
		return
	}

	order, err := cart.Checkout(ctx, h.submitter)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		OrderID:   order.OrderID,
		Total:     order.Total,
		Items:     convertItems(order.Items),
		CreatedAt: order.CreatedAt.Format(time.RFC3339),
	})
}

func (h *CartHandler) userCart(ctx context.Context, w http.ResponseWriter, r *http.Request) (*store.CartStore, bool) {
	userID := getUserIDFromContext(r.Context())
	if userID == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}

	cart, err := h.sessions.Get(ctx, userID)
	if err != nil {
		log.Printf("failed to load cart for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return nil, false
	}
	return cart, true
}

func convertCart(cart *store.CartStore) CartResponseDTO {
	return CartResponseDTO{
		UserID:    cart.UserID(),
		Items:     convertItems(cart.Items()),
		Total:     cart.Total(),
		Selection: cart.Selection(),
	}
}

func convertItems(items []domain.LineItem) []CartItemDTO {
	dtos := make([]CartItemDTO, len(items))
	for i, item := range items {
		dtos[i] = CartItemDTO{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice.String(),
			Quantity:    item.Quantity,
		}
	}
	return dtos
}

func respondStoreError(w http.ResponseWriter, err error) {
	var checkoutErr *store.CheckoutFailedError

	switch {
	case errors.Is(err, store.ErrInvalidItem), errors.Is(err, store.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, store.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.Is(err, store.ErrMissingUser):
		respondError(w, http.StatusUnauthorized, "missing_user", err.Error())
	case errors.As(err, &checkoutErr):
		respondError(w, http.StatusBadGateway, "checkout_failed", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
