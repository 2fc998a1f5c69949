package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/models"
)

// Redis is a VersionCache backed by a Redis instance. Records are
// stored as JSON under "version:{id}" with a fixed TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedis creates a Redis cache. A non-positive ttl falls back to
// DefaultTTL.
func NewRedis(client *redis.Client, ttl time.Duration, log *logrus.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Redis{client: client, ttl: ttl, log: log}
}

// Get returns the cached record, treating every failure as a miss.
// A corrupted entry is dropped so the next read repopulates it.
func (r *Redis) Get(ctx context.Context, id string) (*models.VersionRecord, bool) {
	data, err := r.client.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.WithError(err).WithField("version_id", id).Warn("version cache read failed")
		}

		return nil, false
	}

	var rec models.VersionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		r.log.WithError(err).WithField("version_id", id).Warn("corrupt version cache entry, dropping")
		r.Invalidate(ctx, id)

		return nil, false
	}

	return &rec, true
}

// Put stores the record; failures are logged and ignored.
func (r *Redis) Put(ctx context.Context, id string, rec *models.VersionRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		r.log.WithError(err).WithField("version_id", id).Warn("failed to marshal version record for cache")

		return
	}

	if err := r.client.Set(ctx, Key(id), data, r.ttl).Err(); err != nil {
		r.log.WithError(err).WithField("version_id", id).Warn("version cache write failed")
	}
}

// Invalidate drops the entry; failures are logged and ignored.
func (r *Redis) Invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, Key(id)).Err(); err != nil {
		r.log.WithError(err).WithField("version_id", id).Warn("version cache invalidate failed")
	}
}
