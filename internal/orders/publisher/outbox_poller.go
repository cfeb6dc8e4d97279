package publisher

import (
	"context"
	"log"
	"time"

	r "github.com/aimankhan01/grocery-backend/internal/orders/repository"
	"github.com/segmentio/kafka-go"
)

const Topic = "order-events"

// eventWriter is the slice of kafka.Writer the poller needs; tests substitute
// an in-memory implementation.
type eventWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxPoller drains unpublished order events from the outbox table to
// Kafka. Publishing after commit keeps the order insert and the event in the
// same transaction without holding Kafka inside it.
type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	repo      r.OrderRepository
	writer    eventWriter
}

func NewOutboxPoller(repo r.OrderRepository, brokers ...string) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &OutboxPoller{tick: time.Second, batchSize: 100, repo: repo, writer: w}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() {
	if w, ok := p.writer.(*kafka.Writer); ok {
		if err := w.Close(); err != nil {
			log.Printf("error closing kafka writer: %v", err)
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		msg := kafka.Message{
			Key:   []byte(event.OrderID.String()),
			Value: event.Payload,
		}
		if errPublish := p.writer.WriteMessages(ctx, msg); errPublish != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, errPublish)
			continue
		}

		if errMark := p.repo.MarkEventPublished(ctx, event.ID); errMark != nil {
			log.Printf("failed to mark event as published id = %v with error %v", event.ID, errMark)
			continue
		}
	}
}
