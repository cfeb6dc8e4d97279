package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/aimankhan01/grocery-backend/internal/catalog"
	"github.com/aimankhan01/grocery-backend/internal/catalog/repository"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type CatalogHandler struct {
	repo *repository.Repository
}

func NewCatalogHandler(repo *repository.Repository) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// GET /products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListProducts(r.Context())
	if err != nil {
		log.Printf("failed to list products: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// GET /products/{product_id}
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")

	product, err := h.repo.GetProduct(r.Context(), productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		log.Printf("failed to get product %s: %v", productID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get product")
		return
	}

	respondJSON(w, http.StatusOK, product)
}

// GET /products/search/shop?name=...
func (h *CatalogHandler) SearchByShop(w http.ResponseWriter, r *http.Request) {
	shopName := r.URL.Query().Get("name")
	if shopName == "" {
		respondError(w, http.StatusBadRequest, "missing_name", "shop name is required")
		return
	}

	products, err := h.repo.SearchByShopName(r.Context(), shopName)
	if err != nil {
		log.Printf("failed to search products for shop %s: %v", shopName, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to search products")
		return
	}

	respondJSON(w, http.StatusOK, products)
}

// POST /products/add
func (h *CatalogHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var product catalog.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if product.Name == "" {
		respondError(w, http.StatusBadRequest, "missing_name", "product name is required")
		return
	}
	if _, ok := product.Price.Amount(); !ok {
		respondError(w, http.StatusBadRequest, "invalid_price", "price must be a non-negative number")
		return
	}
	if product.ProductID == "" {
		product.ProductID = uuid.NewString()
	}

	if err := h.repo.CreateProduct(r.Context(), &product); err != nil {
		log.Printf("failed to create product %s: %v", product.Name, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create product")
		return
	}

	respondJSON(w, http.StatusCreated, product)
}

// DELETE /products/remove?productID=...
func (h *CatalogHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productID")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "productID is required")
		return
	}

	err := h.repo.DeleteProduct(r.Context(), productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "product not found")
		return
	}
	if err != nil {
		log.Printf("failed to delete product %s: %v", productID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GET /shops
func (h *CatalogHandler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.repo.ListShops(r.Context())
	if err != nil {
		log.Printf("failed to list shops: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list shops")
		return
	}

	respondJSON(w, http.StatusOK, shops)
}

// POST /shops/add
func (h *CatalogHandler) AddShop(w http.ResponseWriter, r *http.Request) {
	var shop catalog.Shop
	if err := json.NewDecoder(r.Body).Decode(&shop); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if shop.Name == "" {
		respondError(w, http.StatusBadRequest, "missing_name", "shop name is required")
		return
	}
	if shop.ShopID == "" {
		shop.ShopID = uuid.NewString()
	}

	if err := h.repo.CreateShop(r.Context(), &shop); err != nil {
		log.Printf("failed to create shop %s: %v", shop.Name, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to create shop")
		return
	}

	respondJSON(w, http.StatusCreated, shop)
}

// DELETE /shops/remove?shopID=...
func (h *CatalogHandler) RemoveShop(w http.ResponseWriter, r *http.Request) {
	shopID := r.URL.Query().Get("shopID")
	if shopID == "" {
		respondError(w, http.StatusBadRequest, "missing_shop_id", "shopID is required")
		return
	}

	err := h.repo.DeleteShop(r.Context(), shopID)
	if errors.Is(err, repository.ErrShopNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "shop not found")
		return
	}
	if err != nil {
		log.Printf("failed to delete shop %s: %v", shopID, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete shop")
		return
	}

	w.WriteHeader(http.StatusNoContent)
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
