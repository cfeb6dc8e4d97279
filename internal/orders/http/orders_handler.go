package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/orders/domain"
	"github.com/aimankhan01/grocery-backend/internal/orders/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type OrdersHandler struct {
	repo repository.OrderRepository
}

func NewOrdersHandler(repo repository.OrderRepository) *OrdersHandler {
	return &OrdersHandler{repo: repo}
}

type OrderItemDTO struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

type CreateOrderRequestDTO struct {
	UserID         string         `json:"user_id"`
	IdempotencyKey string         `json:"idempotency_key"`
	TotalAmount    float64        `json:"total_amount"`
	Currency       string         `json:"currency"`
	Items          []OrderItemDTO `json:"items"`
}

type OrderResponseDTO struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	TotalAmount float64        `json:"total_amount"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"`
	Items       []OrderItemDTO `json:"items"`
	CreatedAt   string         `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// POST /api/v1/orders
// Creating an order is idempotent on the caller's idempotency key: a retried
// submission returns the already-created order instead of a duplicate.
func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	if req.IdempotencyKey == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "idempotency_key is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "empty_order", "order must contain at least one item")
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	items := make([]domain.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		}
	}

	order := &domain.Order{
		ID:          uuid.New(),
		UserID:      req.UserID,
		TotalAmount: req.TotalAmount,
		Currency:    currency,
		Status:      domain.OrderStatusConfirmed,
		Items:       items,
	}

	err := h.repo.CreateOrder(r.Context(), order, req.IdempotencyKey)
	if errors.Is(err, repository.ErrDuplicateOrder) {
		existing, getErr := h.repo.GetOrderByIdempotencyKey(r.Context(), req.IdempotencyKey)
		if getErr != nil {
			log.Printf("failed to load order for duplicate key %s: %v", req.IdempotencyKey, getErr)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load existing order")
			return
		}
		respondJSON(w, http.StatusOK, convertOrder(existing))
		return
	}
	if err != nil {
		log.Printf("failed to create order for user %s: %v", req.UserID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create order")
		return
	}

	created, err := h.repo.GetOrderByID(r.Context(), order.ID)
	if err != nil {
		log.Printf("failed to load created order %s: %v", order.ID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load created order")
		return
	}

	respondJSON(w, http.StatusCreated, convertOrder(created))
}

// GET /api/v1/orders?user_id=...
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		userID = r.Header.Get("X-User-ID")
	}
	if userID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}

	orders, err := h.repo.ListOrdersByUserID(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list orders for user %s: %v", userID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list orders")
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, convertOrder(o))
	}

	respondJSON(w, http.StatusOK, dtos)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderIDStr := chi.URLParam(r, "order_id")
	orderID, err := uuid.Parse(orderIDStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a UUID")
		return
	}

	order, err := h.repo.GetOrderByID(r.Context(), orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		log.Printf("failed to get order %s: %v", orderID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get order")
		return
	}

	respondJSON(w, http.StatusOK, convertOrder(order))
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
		})
	}

	return OrderResponseDTO{
		ID:          o.ID.String(),
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Currency:    o.Currency,
		Status:      string(o.Status),
		Items:       items,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
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
