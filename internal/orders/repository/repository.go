package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aimankhan01/grocery-backend/internal/orders/domain"
	"github.com/google/uuid"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this idempotency key already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// OutboxEvent is one unpublished order event waiting to be drained to Kafka.
type OutboxEvent struct {
	ID        int64
	OrderID   uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}

// OrderRepository defines the persistence operations the order handlers and
// the outbox poller need. Consumers define this interface, not the Postgres
// implementation.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order, idempotencyKey string) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
	Close() error
}
