package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/cart/store"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// Client submits checkout snapshots to the orders service. It implements
// store.Submitter. Each checkout attempt gets a fresh idempotency key, so the
// orders service can collapse a retried submission into the original order.
type Client struct {
	baseURL string
	hc      *http.Client
	breaker *gobreaker.CircuitBreaker[*orderCreatedDTO]
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	settings := gobreaker.Settings{
		Name:    "order-submit",
		Timeout: 30 * time.Second,
	}
	return &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[*orderCreatedDTO](settings),
	}
}

type submitItemDTO struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
}

type submitRequestDTO struct {
	UserID         string          `json:"user_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	TotalAmount    float64         `json:"total_amount"`
	Currency       string          `json:"currency"`
	Items          []submitItemDTO `json:"items"`
}

type orderCreatedDTO struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

func (c *Client) Submit(ctx context.Context, order *store.Order) (*store.Receipt, error) {
	items := make([]submitItemDTO, len(order.Items))
	for i, item := range order.Items {
		items[i] = submitItemDTO{
			ProductID:   item.ProductID,
			Name:        item.Name,
			Description: item.Description,
			UnitPrice:   item.UnitPrice.String(),
			Quantity:    item.Quantity,
		}
	}

	req := submitRequestDTO{
		UserID:         order.UserID,
		IdempotencyKey: uuid.NewString(),
		TotalAmount:    order.Total,
		Currency:       "USD",
		Items:          items,
	}

	created, err := c.breaker.Execute(func() (*orderCreatedDTO, error) {
		return c.post(ctx, &req)
	})
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339, created.CreatedAt)
	if err != nil {
		// The order exists; a bad timestamp should not fail the checkout.
		createdAt = time.Now()
	}

	return &store.Receipt{
		OrderID:   created.ID,
		CreatedAt: createdAt,
	}, nil
}

func (c *Client) post(ctx context.Context, req *submitRequestDTO) (*orderCreatedDTO, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("order service returned status %d: %s", resp.StatusCode, msg)
	}

	var created orderCreatedDTO
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &created, nil
}
