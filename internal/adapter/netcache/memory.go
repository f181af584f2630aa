package netcache

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is a process-local payload cache.
type Memory struct {
	lru *LRU[[]byte]
}

// NewMemory creates a payload cache holding at most maxEntries payloads for
// ttl each.
func NewMemory(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Memory {
	return &Memory{lru: NewLRU[[]byte](maxEntries, ttl, clock)}
}

func (m *Memory) Name() string { return "memory" }

// Get never fails; the error return satisfies the shared cache contract.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, payload []byte) error {
	m.lru.Put(key, payload)
	return nil
}
