package memory

import (
	"context"
	"sync"

	audit "safeballot/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
	order  []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.order = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ProfileID] = append(s.events[event.ProfileID], event)
	s.order = append(s.order, event)
	return nil
}

func (s *InMemoryStore) ListByProfile(_ context.Context, profileID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[profileID]...), nil
}

// ListRecent returns the most recent N events across all profiles, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.order) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.order[start:]...), nil
}
