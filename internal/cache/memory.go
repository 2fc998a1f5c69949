package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sheetvault/sheetvault/internal/models"
)

// defaultMemorySize bounds the number of records held by the in-process
// cache.
const defaultMemorySize = 1024

// Memory is an in-process VersionCache backed by an expirable LRU.
// Suitable for single-node deployments and tests. Records are immutable
// once assembled, so entries are shared by pointer.
type Memory struct {
	lru *expirable.LRU[string, *models.VersionRecord]
}

// NewMemory creates a Memory cache holding at most size records for up
// to ttl each. Non-positive arguments fall back to defaults.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = defaultMemorySize
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Memory{lru: expirable.NewLRU[string, *models.VersionRecord](size, nil, ttl)}
}

// Get returns the cached record for id.
func (m *Memory) Get(_ context.Context, id string) (*models.VersionRecord, bool) {
	return m.lru.Get(Key(id))
}

// Put stores the record under id.
func (m *Memory) Put(_ context.Context, id string, rec *models.VersionRecord) {
	m.lru.Add(Key(id), rec)
}

// Invalidate drops the entry for id.
func (m *Memory) Invalidate(_ context.Context, id string) {
	m.lru.Remove(Key(id))
}
