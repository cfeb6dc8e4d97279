package store

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/aimankhan01/grocery-backend/internal/cart/domain"
	"github.com/aimankhan01/grocery-backend/internal/cart/storage"
)

// CartStore owns the line items of one user's shopping session. Mutations
// apply in memory immediately and are written through to the snapshot store;
// a persistence failure is logged and does not roll the mutation back, so the
// UI stays responsive when Redis is degraded. Callers that need a durability
// guarantee call Flush.
type CartStore struct {
	mu        sync.Mutex
	userID    string
	items     []domain.LineItem
	selection map[string]struct{}
	snapshots storage.Snapshots
}

func New(userID string, snapshots storage.Snapshots) *CartStore {
	return &CartStore{
		userID:    userID,
		selection: make(map[string]struct{}),
		snapshots: snapshots,
	}
}

// Load restores a user's cart from the snapshot store. A missing snapshot
// yields an empty cart, not an error.
func Load(ctx context.Context, userID string, snapshots storage.Snapshots) (*CartStore, error) {
	s := New(userID, snapshots)

	data, err := snapshots.Load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	items, err := domain.DecodeItems(data)
	if err != nil {
		// A snapshot we cannot parse is treated like no snapshot at all.
		log.Printf("discarding unreadable cart snapshot for user %s: %v", userID, err)
		return s, nil
	}

	s.items = items
	return s, nil
}

func (s *CartStore) UserID() string {
	return s.userID
}

// AddItem merges the item into the cart: an existing entry with the same
// product id has its quantity incremented by delta, otherwise a new entry is
// appended with quantity delta. The first-seen name, description and price of
// a product are kept on merge.
func (s *CartStore) AddItem(ctx context.Context, item domain.LineItem, delta int) error {
	if item.ProductID == "" {
		return ErrInvalidItem
	}
	if _, ok := item.UnitPrice.Amount(); !ok {
		return ErrInvalidItem
	}
	if delta < 1 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.find(item.ProductID); ok {
		s.items[i].Quantity += delta
	} else {
		item.Quantity = delta
		s.items = append(s.items, item)
	}

	s.persist(ctx)
	return nil
}

// UpdateQuantity adjusts an entry's quantity by delta, which may be negative.
// The result is clamped to a minimum of 1; removing an item goes through
// RemoveItem, never through a negative delta.
func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(productID)
	if !ok {
		return ErrItemNotFound
	}

	q := s.items[i].Quantity + delta
	if q < 1 {
		q = 1
	}
	s.items[i].Quantity = q

	s.persist(ctx)
	return nil
}

// RemoveItem deletes the matching entry. Removing an absent product is a
// no-op, not an error.
func (s *CartStore) RemoveItem(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.find(productID)
	if !ok {
		return
	}

	s.items = append(s.items[:i], s.items[i+1:]...)
	s.persist(ctx)
}

// Clear empties the cart and removes the persisted snapshot.
func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if err := s.snapshots.Clear(ctx, s.userID); err != nil {
		log.Printf("cart snapshot clear warning for user %s: %v", s.userID, err)
	}
}

// Total sums unit price times quantity over all entries whose price parses to
// a finite non-negative number. Entries with unparseable prices are skipped,
// not fatal; partial data should not block browsing.
func (s *CartStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, item := range s.items {
		if sub, ok := item.Subtotal(); ok {
			total += sub
		}
	}
	return total
}

// Items returns a copy of the cart's entries in insertion order.
func (s *CartStore) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)
	return items
}

func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// ToggleSelection adds or removes a product id from the selection set used by
// the browse screens before a bulk add. Selection is ephemeral UI state and is
// never persisted.
func (s *CartStore) ToggleSelection(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.selection[productID]; ok {
		delete(s.selection, productID)
		return
	}
	s.selection[productID] = struct{}{}
}

func (s *CartStore) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *CartStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{})
}

// Checkout builds an immutable order snapshot and hands it to the submitter.
// On success the cart and its persisted snapshot are cleared and the returned
// order carries the server-assigned id and timestamp. On failure the cart is
// left untouched so the caller may retry.
func (s *CartStore) Checkout(ctx context.Context, submitter Submitter) (*Order, error) {
	if s.userID == "" {
		return nil, ErrMissingUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]domain.LineItem, len(s.items))
	copy(items, s.items)

	var total float64
	for _, item := range items {
		if sub, ok := item.Subtotal(); ok {
			total += sub
		}
	}

	order := &Order{
		UserID: s.userID,
		Items:  items,
		Total:  total,
	}

	receipt, err := submitter.Submit(ctx, order)
	if err != nil {
		return nil, &CheckoutFailedError{Cause: err}
	}

	order.OrderID = receipt.OrderID
	order.CreatedAt = receipt.CreatedAt

	s.items = nil
	if clearErr := s.snapshots.Clear(ctx, s.userID); clearErr != nil {
		log.Printf("cart snapshot clear warning for user %s: %v", s.userID, clearErr)
	}

	return order, nil
}

// Flush writes the current snapshot and reports the persistence error the
// write-through path only logs. Callers use it before navigating away when
// they need the snapshot durable.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

// find must be called with s.mu held.
func (s *CartStore) find(productID string) (int, bool) {
	for i := range s.items {
		if s.items[i].ProductID == productID {
			return i, true
		}
	}
	return 0, false
}

// persist must be called with s.mu held.
func (s *CartStore) persist(ctx context.Context) {
	if err := s.save(ctx); err != nil {
		log.Printf("cart persist warning for user %s: %v", s.userID, err)
	}
}

func (s *CartStore) save(ctx context.Context) error {
	data, err := domain.EncodeItems(s.items)
	if err != nil {
		return err
	}
	return s.snapshots.Save(ctx, s.userID, data)
}
