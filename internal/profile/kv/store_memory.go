package kv

import (
	"context"
	"sync"

	"safeballot/pkg/platform/sentinel"
)

// InMemory is a Store for tests and single-process development servers.
type InMemory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{data: make(map[string]map[string]string)}
}

func (s *InMemory) Get(_ context.Context, namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[namespace][key]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return v, nil
}

func (s *InMemory) Set(_ context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string]string)
		s.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (s *InMemory) Delete(_ context.Context, namespace string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.data[namespace]
	for _, k := range keys {
		delete(ns, k)
	}
	if len(ns) == 0 {
		delete(s.data, namespace)
	}
	return nil
}
