// Package cache provides read-through caching of assembled version
// records. The cache is advisory, never the source of truth: every
// implementation degrades to a miss on failure and no error is ever
// propagated to the caller.
package cache

import (
	"context"
	"time"

	"github.com/sheetvault/sheetvault/internal/models"
)

// DefaultTTL bounds staleness of cached version records. Versions are
// immutable, so the TTL only limits memory held by cold entries.
const DefaultTTL = time.Hour

// VersionCache maps a version id to a fully assembled version record.
type VersionCache interface {
	// Get returns the cached record for id, or ok=false on a miss.
	Get(ctx context.Context, id string) (*models.VersionRecord, bool)

	// Put stores the record under id with the implementation's TTL.
	Put(ctx context.Context, id string, rec *models.VersionRecord)

	// Invalidate drops the entry for id, if present.
	Invalidate(ctx context.Context, id string)
}

// Key returns the cache key for a version id.
func Key(id string) string {
	return "version:" + id
}
