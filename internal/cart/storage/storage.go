package storage

import (
	"context"
	"errors"
)

// Snapshots defines the key-value contract the cart store persists through.
// Consumers define this interface, not the Redis implementation.
type Snapshots interface {
	Load(ctx context.Context, userID string) ([]byte, error)
	Save(ctx context.Context, userID string, data []byte) error
	Clear(ctx context.Context, userID string) error
}

var ErrNotFound = errors.New("cart snapshot not found")
