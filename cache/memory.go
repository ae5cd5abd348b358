// Package cache provides caching implementations for compiled Sift scopes.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xraph/sift"
)

// Compile-time interface check.
var _ sift.Cache = (*Memory)(nil)

// Memory is an in-memory LRU-like cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
}

type entry struct {
	scope     *sift.Scope
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		entries: make(map[string]*entry),
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a cached scope.
func (m *Memory) Get(_ context.Context, tenantID string, req *sift.ScopeRequest) (*sift.Scope, bool) {
	key := cacheKey(tenantID, req)
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.scope, true
}

// Set stores a compiled scope in the cache.
func (m *Memory) Set(_ context.Context, tenantID string, req *sift.ScopeRequest, scope *sift.Scope) {
	key := cacheKey(tenantID, req)
	m.mu.Lock()
	defer m.mu.Unlock()

	// Evict if at capacity.
	if len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			// Evict oldest entry.
			m.evictOne()
		}
	}

	m.entries[key] = &entry{
		scope:     scope,
		expiresAt: time.Now().Add(m.ttl),
	}
}

// InvalidateTenant removes all cached scopes for a tenant.
func (m *Memory) InvalidateTenant(_ context.Context, tenantID string) {
	prefix := tenantID + ":"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			delete(m.entries, k)
		}
	}
}

// InvalidateSubject removes all cached scopes for a subject type.
func (m *Memory) InvalidateSubject(_ context.Context, tenantID, subject string) {
	subKey := fmt.Sprintf("%s:%s:", tenantID, subject)
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if len(k) >= len(subKey) && k[:len(subKey)] == subKey {
			delete(m.entries, k)
		}
	}
}

// cacheKey includes the snapshot revision so a mutated ruleset never
// serves a stale scope.
func cacheKey(tenantID string, req *sift.ScopeRequest) string {
	return fmt.Sprintf("%s:%s:%s:%d",
		tenantID,
		req.Subject,
		req.Action,
		req.Revision,
	)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	now := time.Now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}

// evictOne removes one arbitrary entry. Must hold write lock.
func (m *Memory) evictOne() {
	for k := range m.entries {
		delete(m.entries, k)
		return
	}
}
