package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/cart/domain"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ProductID   string       `json:"productId"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Price       domain.Price `json:"price"`
	ShopID      string       `json:"shopId,omitempty"`
}

type Shop struct {
	ShopID string `json:"shopId"`
	Name   string `json:"name"`
}

// Client talks to the product catalog API. Responses may carry prices as
// numbers or strings; domain.Price absorbs both.
type Client struct {
	baseURL string
	hc      *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var product Product
	path := fmt.Sprintf("/products/%s", url.PathEscape(productID))
	if err := c.getJSON(ctx, path, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// SearchByShop lists the products a shop carries, by shop name.
func (c *Client) SearchByShop(ctx context.Context, shopName string) ([]Product, error) {
	var products []Product
	path := "/products/search/shop?name=" + url.QueryEscape(shopName)
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) ListShops(ctx context.Context) ([]Shop, error) {
	var shops []Shop
	if err := c.getJSON(ctx, "/shops", &shops); err != nil {
		return nil, err
	}
	return shops, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	return nil
}
