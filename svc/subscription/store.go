package subscription

import (
	"context"
	"sync"
)

// Store persists subscriptions keyed by user id.
type Store interface {
	// Get returns ErrSubscriptionNotFound when the user has none.
	Get(ctx context.Context, userID string) (Subscription, error)
	// Save creates or replaces the user's subscription.
	Save(ctx context.Context, sub Subscription) error
	Delete(ctx context.Context, userID string) error
}

// MemoryStore is a Store held in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore preloaded with subs.
func NewMemoryStore(subs ...Subscription) *MemoryStore {
	s := &MemoryStore{subs: make(map[string]Subscription, len(subs))}
	for _, sub := range subs {
		s.subs[sub.UserID] = sub
	}
	return s
}

// Get returns the user's subscription.
func (s *MemoryStore) Get(_ context.Context, userID string) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[userID]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return sub, nil
}

// Save validates sub and replaces any previous one for the user.
func (s *MemoryStore) Save(_ context.Context, sub Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.UserID] = sub
	return nil
}

// Delete returns ErrSubscriptionNotFound when the user has none.
func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[userID]; !ok {
		return ErrSubscriptionNotFound
	}
	delete(s.subs, userID)
	return nil
}
