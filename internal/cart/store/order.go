package store

import (
	"context"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/cart/domain"
)

// Order is the immutable snapshot handed to the submitter at checkout time.
// OrderID and CreatedAt are assigned by the order service, not by this
// package.
type Order struct {
	OrderID   string
	UserID    string
	Items     []domain.LineItem
	Total     float64
	CreatedAt time.Time
}

type Receipt struct {
	OrderID   string
	CreatedAt time.Time
}

// Submitter abstracts the remote order-creation endpoint.
// Consumers define this interface, not the HTTP implementation.
type Submitter interface {
	Submit(ctx context.Context, order *Order) (*Receipt, error)
}
