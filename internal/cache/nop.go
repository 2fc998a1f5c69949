package cache

import (
	"context"

	"github.com/sheetvault/sheetvault/internal/models"
)

// Nop is a VersionCache that never hits. Used when caching is disabled;
// every operation's result must be identical with or without it.
type Nop struct{}

// Get always misses.
func (Nop) Get(context.Context, string) (*models.VersionRecord, bool) { return nil, false }

// Put discards the record.
func (Nop) Put(context.Context, string, *models.VersionRecord) {}

// Invalidate does nothing.
func (Nop) Invalidate(context.Context, string) {}
