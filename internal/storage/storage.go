package storage

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
)

// Package storage provides the durable schedule record abstraction.

// ScheduleStore persists the single auto-blog schedule record. The record is
// always read and written as a whole; Update applies a read-modify-write
// under one transaction so concurrent start/stop calls cannot interleave
// partial field updates.
type ScheduleStore interface {
	Close() error
	Load() (domain.ScheduleConfig, error)
	Update(fn func(cfg *domain.ScheduleConfig) error) (domain.ScheduleConfig, error)
}

// NewStore creates the configured storage backend.
func NewStore(typ, path string) (ScheduleStore, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "memory":
		return NewMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

// memoryStore keeps the schedule record in process memory. Used in tests and
// throwaway runs; state does not survive restarts.
type memoryStore struct {
	mu  sync.Mutex
	cfg domain.ScheduleConfig
}

// NewMemoryStore returns a volatile ScheduleStore seeded with defaults.
func NewMemoryStore() ScheduleStore {
	return &memoryStore{cfg: domain.DefaultScheduleConfig()}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Load() (domain.ScheduleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg, nil
}

func (m *memoryStore) Update(fn func(cfg *domain.ScheduleConfig) error) (domain.ScheduleConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.cfg
	if err := fn(&next); err != nil {
		return domain.ScheduleConfig{}, err
	}
	m.cfg = next
	return next, nil
}
