package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimankhan01/grocery-backend/internal/cart/session"
	"github.com/aimankhan01/grocery-backend/internal/cart/storage"
	"github.com/aimankhan01/grocery-backend/internal/cart/store"
	"github.com/aimankhan01/grocery-backend/internal/catalog"
)

// memSnapshots is an in-memory stand-in for the Redis store
type memSnapshots struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: make(map[string][]byte)}
}

func (m *memSnapshots) Load(_ context.Context, userID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memSnapshots) Save(_ context.Context, userID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = data
	return nil
}

func (m *memSnapshots) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

type mockProductGetter struct {
	mu       sync.Mutex
	products map[string]*catalog.Product
	err      error
}

func newMockProductGetter() *mockProductGetter {
	return &mockProductGetter{products: make(map[string]*catalog.Product)}
}

func (m *mockProductGetter) GetProduct(_ context.Context, productID string) (*catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

type mockSubmitter struct {
	mu        sync.Mutex
	err       error
	lastOrder *store.Order
	calls     int
}

func (m *mockSubmitter) Submit(_ context.Context, order *store.Order) (*store.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.lastOrder = order
	return &store.Receipt{OrderID: "order-1", CreatedAt: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}, nil
}

type testEnv struct {
	router    http.Handler
	snapshots *memSnapshots
	products  *mockProductGetter
	submitter *mockSubmitter
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()

	snapshots := newMemSnapshots()
	products := newMockProductGetter()
	products.products["1"] = &catalog.Product{ProductID: "1", Name: "Milk", Description: "Whole milk", Price: "2.50", ShopID: "s1"}
	products.products["2"] = &catalog.Product{ProductID: "2", Name: "Bread", Description: "Sourdough", Price: "3.25", ShopID: "s1"}

	submitter := &mockSubmitter{}
	handler := NewCartHandler(session.NewManager(snapshots), products, submitter, 5*time.Second)

	r := chi.NewRouter()
	r.Use(UserIDMiddleware)
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", handler.GetCart)
			r.Delete("/", handler.ClearCart)
			r.Post("/items", handler.AddItem)
			r.Put("/items/{product_id}", handler.UpdateQuantity)
			r.Delete("/items/{product_id}", handler.RemoveItem)
			r.Post("/selection/add", handler.AddSelected)
			r.Post("/selection/{product_id}", handler.ToggleSelection)
		})
		r.Post("/checkout", handler.Checkout)
	})

	return &testEnv{router: r, snapshots: snapshots, products: products, submitter: submitter}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponseDTO {
	t.Helper()
	var resp CartResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestGetCart_EmptyCart(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Equal(t, "user123", resp.UserID)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
}

func TestGetCart_MissingUserHeader(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItem_Success(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1", resp.Items[0].ProductID)
	assert.Equal(t, "Milk", resp.Items[0].Name)
	assert.Equal(t, "2.50", resp.Items[0].UnitPrice)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.InDelta(t, 5.00, resp.Total, 0.001)
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 1, resp.Items[0].Quantity)
}

func TestAddItem_SameProductMergesQuantity(t *testing.T) {
	env := setupTestHandler(t)

	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 1})
	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "999", Quantity: 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItem_CatalogUnavailable(t *testing.T) {
	env := setupTestHandler(t)
	env.products.err = errors.New("connection refused")

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 1})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAddItem_QuantityOutOfBounds(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 100})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItem_PersistsSnapshot(t *testing.T) {
	env := setupTestHandler(t)

	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	env.snapshots.mu.Lock()
	data := env.snapshots.data["user123"]
	env.snapshots.mu.Unlock()
	assert.Contains(t, string(data), `"productId":"1"`)
}

func TestUpdateQuantity_AdjustsByDelta(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/1", "user123", UpdateQuantityRequestDTO{Delta: 3})

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
}

func TestUpdateQuantity_ZeroDelta(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/1", "user123", UpdateQuantityRequestDTO{Delta: 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateQuantity_UnknownItem(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPut, "/api/v1/cart/items/999", "user123", UpdateQuantityRequestDTO{Delta: 1})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemoveItem_Success(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	rec := env.do(t, http.MethodDelete, "/api/v1/cart/items/1", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Items)
}

func TestRemoveItem_AbsentIsOK(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodDelete, "/api/v1/cart/items/999", "user123", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClearCart(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "2", Quantity: 1})

	rec := env.do(t, http.MethodDelete, "/api/v1/cart", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Items)
	assert.Zero(t, resp.Total)
}

func TestToggleSelection_AndBulkAdd(t *testing.T) {
	env := setupTestHandler(t)

	env.do(t, http.MethodPost, "/api/v1/cart/selection/1", "user123", nil)
	rec := env.do(t, http.MethodPost, "/api/v1/cart/selection/2", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.ElementsMatch(t, []string{"1", "2"}, resp.Selection)
	assert.Empty(t, resp.Items)

	rec = env.do(t, http.MethodPost, "/api/v1/cart/selection/add", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeCart(t, rec)
	assert.Empty(t, resp.Selection)
	require.Len(t, resp.Items, 2)
	for _, item := range resp.Items {
		assert.Equal(t, 1, item.Quantity)
	}
}

func TestToggleSelection_SecondToggleDeselects(t *testing.T) {
	env := setupTestHandler(t)

	env.do(t, http.MethodPost, "/api/v1/cart/selection/1", "user123", nil)
	rec := env.do(t, http.MethodPost, "/api/v1/cart/selection/1", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	assert.Empty(t, resp.Selection)
}

func TestAddSelected_SkipsUnknownProducts(t *testing.T) {
	env := setupTestHandler(t)

	env.do(t, http.MethodPost, "/api/v1/cart/selection/1", "user123", nil)
	env.do(t, http.MethodPost, "/api/v1/cart/selection/999", "user123", nil)

	rec := env.do(t, http.MethodPost, "/api/v1/cart/selection/add", "user123", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "1", resp.Items[0].ProductID)
}

func TestCheckout_Success(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", "user123", nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutResponseDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "order-1", resp.OrderID)
	assert.InDelta(t, 5.00, resp.Total, 0.001)
	require.Len(t, resp.Items, 1)

	// The live cart is emptied and the snapshot removed
	cartRec := env.do(t, http.MethodGet, "/api/v1/cart", "user123", nil)
	assert.Empty(t, decodeCart(t, cartRec).Items)
	env.snapshots.mu.Lock()
	_, stillThere := env.snapshots.data["user123"]
	env.snapshots.mu.Unlock()
	assert.False(t, stillThere)
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := setupTestHandler(t)

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", "user123", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	env.submitter.mu.Lock()
	calls := env.submitter.calls
	env.submitter.mu.Unlock()
	assert.Zero(t, calls)
}

func TestCheckout_SubmitFailureKeepsCart(t *testing.T) {
	env := setupTestHandler(t)
	env.do(t, http.MethodPost, "/api/v1/cart/items", "user123", AddItemRequestDTO{ProductID: "1", Quantity: 2})
	env.submitter.err = errors.New("orders service unavailable")

	rec := env.do(t, http.MethodPost, "/api/v1/checkout", "user123", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	cartRec := env.do(t, http.MethodGet, "/api/v1/cart", "user123", nil)
	resp := decodeCart(t, cartRec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].Quantity)
}

func TestUserIDMiddleware_SetsContextValue(t *testing.T) {
	var got string
	handler := UserIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = getUserIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "user123")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user123", got)
}
