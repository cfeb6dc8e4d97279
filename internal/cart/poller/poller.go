package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/aimankhan01/grocery-backend/internal/cart/session"
	"github.com/aimankhan01/grocery-backend/internal/cart/storage"
	"github.com/segmentio/kafka-go"
)

// Poller consumes order events and clears the cart they settled. Checkout
// clears its own cart synchronously; this path covers orders recorded through
// other channels (admin console, a second cart-service instance) so persisted
// and in-memory cart state converge.
type Poller struct {
	sessions  *session.Manager
	snapshots storage.Snapshots
	reader    *kafka.Reader
}

func NewPoller(sessions *session.Manager, snapshots storage.Snapshots, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "order-events",
		GroupID:  "cart-service-consumer",
		MaxBytes: 10e6, // 10MB
	})
	return &Poller{sessions, snapshots, reader}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.processMessage(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		log.Printf("error closing kafka reader: %v", err)
	}
}

func (p *Poller) processMessage(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("error reading message: %v", err)
		return
	}

	var payload map[string]interface{}
	if errUnmarshal := json.Unmarshal(m.Value, &payload); errUnmarshal != nil {
		log.Printf("error parsing message: %v", errUnmarshal)
		return
	}
	userID, ok := payload["user_id"].(string)
	if !ok || userID == "" {
		log.Printf("order event missing user_id, skipping")
		return
	}

	p.sessions.Evict(userID)

	errClear := p.snapshots.Clear(ctx, userID)
	if errClear != nil && !errors.Is(errClear, storage.ErrNotFound) {
		log.Printf("failed to clear cart snapshot for user %s: %v", userID, errClear)
	}
}
