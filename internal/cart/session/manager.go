package session

import (
	"context"
	"sync"

	"github.com/aimankhan01/grocery-backend/internal/cart/storage"
	"github.com/aimankhan01/grocery-backend/internal/cart/store"
	"golang.org/x/sync/singleflight"
)

// Manager hands out one live CartStore per user. The store is the single
// logical owner of that user's cart; requests for the same user share the
// instance instead of racing on the snapshot store.
type Manager struct {
	mu        sync.RWMutex
	carts     map[string]*store.CartStore
	snapshots storage.Snapshots
	sfg       singleflight.Group // Collapses concurrent first loads for a user
}

func NewManager(snapshots storage.Snapshots) *Manager {
	return &Manager{
		carts:     make(map[string]*store.CartStore),
		snapshots: snapshots,
	}
}

// Get returns the user's cart, loading it from the snapshot store on first
// access.
func (m *Manager) Get(ctx context.Context, userID string) (*store.CartStore, error) {
	m.mu.RLock()
	s, ok := m.carts[userID]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := m.sfg.Do(userID, func() (interface{}, error) {
		m.mu.RLock()
		existing, ok := m.carts[userID]
		m.mu.RUnlock()
		if ok {
			return existing, nil
		}

		loaded, err := store.Load(ctx, userID, m.snapshots)
		if err != nil {
			return nil, err
		}

		m.mu.Lock()
		m.carts[userID] = loaded
		m.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*store.CartStore), nil
}

// Evict drops the live store for a user. The next Get reloads from the
// snapshot store.
func (m *Manager) Evict(userID string) {
	m.mu.Lock()
	delete(m.carts, userID)
	m.mu.Unlock()
}
