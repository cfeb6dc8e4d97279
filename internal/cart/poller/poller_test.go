package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/aimankhan01/grocery-backend/internal/cart/domain"
	"github.com/aimankhan01/grocery-backend/internal/cart/session"
	"github.com/aimankhan01/grocery-backend/internal/cart/storage"
)

func setupTestRedis(t *testing.T) (*storage.RedisSnapshots, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	snapshots := storage.NewRedisSnapshots(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return snapshots, cleanup
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	topicConfigs := []kafkaGo.TopicConfig{{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}}

	err = controllerConn.CreateTopics(topicConfigs...)
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_OrderEventClearsCart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots, cleanupRedis := setupTestRedis(t)
	defer cleanupRedis()
	brokers, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	createTopic(t, brokers, "order-events")

	sessions := session.NewManager(snapshots)

	// Seed a persisted cart and warm the live store
	items := []domain.LineItem{{ProductID: "1", Name: "Milk", UnitPrice: "2.50", Quantity: 2}}
	data, err := domain.EncodeItems(items)
	require.NoError(t, err)
	require.NoError(t, snapshots.Save(ctx, "user123", data))

	cart, err := sessions.Get(ctx, "user123")
	require.NoError(t, err)
	require.Equal(t, 1, cart.Len())

	p := NewPoller(sessions, snapshots, brokers)
	defer p.Close()

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokers),
		Topic:                  "order-events",
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}

	payload, err := json.Marshal(map[string]interface{}{
		"order_id":     "order-1",
		"user_id":      "user123",
		"total_amount": 5.00,
		"currency":     "USD",
		"status":       "CONFIRMED",
	})
	require.NoError(t, err)

	err = w.WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte("order-1"),
		Value: payload,
	})
	require.NoError(t, err)
	w.Close()

	go p.Run(ctx)

	require.Eventually(t, func() bool {
		_, errLoad := snapshots.Load(ctx, "user123")
		if !errors.Is(errLoad, storage.ErrNotFound) {
			return false
		}
		// The live store is evicted; the next Get rebuilds an empty cart
		fresh, errGet := sessions.Get(ctx, "user123")
		return errGet == nil && fresh.Len() == 0
	}, 15*time.Second, 500*time.Millisecond)
}
