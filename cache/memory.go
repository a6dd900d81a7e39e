// Package cache provides caching implementations for resolved aegis actors.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/xraph/aegis"
)

// Compile-time interface check.
var _ aegis.Cache = (*Memory)(nil)

// Memory is an in-process actor cache with TTL-based expiration.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

type entry struct {
	actor     aegis.Actor
	expiresAt time.Time
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live. Zero keeps entries until
// they are invalidated.
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
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the cached actor for userID.
func (m *Memory) Get(_ context.Context, userID string) (*aegis.Actor, bool) {
	m.mu.RLock()
	e, ok := m.entries[userID]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if m.expired(e) {
		m.mu.Lock()
		delete(m.entries, userID)
		m.mu.Unlock()
		return nil, false
	}
	return cloneActor(&e.actor), true
}

// Set stores an actor in the cache.
func (m *Memory) Set(_ context.Context, a *aegis.Actor) {
	if a == nil || a.UserID == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[a.UserID]; !exists && len(m.entries) >= m.maxSize {
		m.evictExpired()
		if len(m.entries) >= m.maxSize {
			m.evictOne()
		}
	}

	e := &entry{actor: *cloneActor(a)}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[a.UserID] = e
}

// InvalidateUser removes the cached actor for one user.
func (m *Memory) InvalidateUser(_ context.Context, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
}

// InvalidateAll drops every entry.
func (m *Memory) InvalidateAll(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*entry)
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) expired(e *entry) bool {
	return !e.expiresAt.IsZero() && m.now().After(e.expiresAt)
}

// evictExpired removes all expired entries. Must hold write lock.
func (m *Memory) evictExpired() {
	for k, e := range m.entries {
		if m.expired(e) {
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

func cloneActor(a *aegis.Actor) *aegis.Actor {
	cp := *a
	cp.Permissions = append([]string(nil), a.Permissions...)
	return &cp
}
