// Package service provides business logic between API handlers and the
// data store: the four operations of the version control engine.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/sheetvault/sheetvault/internal/cache"
	"github.com/sheetvault/sheetvault/internal/domain"
	"github.com/sheetvault/sheetvault/internal/metrics"
	"github.com/sheetvault/sheetvault/internal/models"
)

// List defaults and caps.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// loadTimeout bounds a coalesced cache-miss load once it is detached
// from the leader's context.
const loadTimeout = 30 * time.Second

// VersionStore is the data-access interface VersionService depends on.
// It reuses domain.VersionStore since the method sets are identical.
type VersionStore = domain.VersionStore

// Compile-time check: *VersionService must satisfy domain.VersionService.
var _ domain.VersionService = (*VersionService)(nil)

// VersionService orchestrates the store and the cache into the create,
// get, list, and revert operations. It is stateless per call; all state
// lives in the store.
type VersionService struct {
	store VersionStore
	cache cache.VersionCache
	log   *logrus.Logger

	// group collapses concurrent cache-miss loads for the same version
	// id into a single store round-trip.
	group singleflight.Group
}

// NewVersionService creates a VersionService. Pass cache.Nop{} to run
// without caching; results must not differ, only latency.
func NewVersionService(store VersionStore, c cache.VersionCache, log *logrus.Logger) *VersionService {
	return &VersionService{store: store, cache: c, log: log}
}

// CreateVersion validates the request, allocates the next sequence
// number, and atomically persists the version header with all change
// records. On success the assembled record is written through to the
// cache and the header returned. On failure nothing is cached and no
// partial version is ever visible.
func (s *VersionService) CreateVersion(
	ctx context.Context,
	req models.CreateVersionRequest,
) (*models.Version, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	v := &models.Version{
		ID:          uuid.New().String(),
		WorkbookID:  req.WorkbookID,
		WorksheetID: req.WorksheetID,
		AuthorID:    req.AuthorID,
		CreatedAt:   time.Now().UTC(),
		Tags:        []string{},
	}

	changes := make([]models.ChangeInput, len(req.Changes))
	for i, c := range req.Changes {
		c.Metadata = mergeMetadata(req.Metadata, c.Metadata)
		changes[i] = c
	}

	records, err := s.store.InsertVersionWithChanges(ctx, v, changes)
	if err != nil {
		return nil, err
	}

	metrics.VersionsCreated.Inc()

	s.cache.Put(ctx, v.ID, &models.VersionRecord{
		Version:    *v,
		Changes:    records,
		Pagination: models.SinglePage(len(records)),
	})

	s.log.WithFields(logrus.Fields{
		"action":          "version.create",
		"version_id":      v.ID,
		"workbook_id":     v.WorkbookID,
		"sequence_number": v.SequenceNumber,
		"changes":         len(records),
	}).Info("version created")

	return v, nil
}

// mergeMetadata overlays change-level metadata on request-level
// metadata; change-level keys win.
func mergeMetadata(reqMeta, changeMeta map[string]any) map[string]any {
	merged := make(map[string]any, len(reqMeta)+len(changeMeta))

	for k, v := range reqMeta {
		merged[k] = v
	}

	for k, v := range changeMeta {
		merged[k] = v
	}

	return merged
}

// GetVersion returns the fully assembled record for a version id,
// read-through: cache first, then header and changes from the store,
// populating the cache on the way out.
func (s *VersionService) GetVersion(ctx context.Context, id string) (*models.VersionRecord, error) {
	if id == "" {
		return nil, models.ErrMissingVersionID
	}

	if rec, ok := s.cache.Get(ctx, id); ok {
		metrics.CacheHits.Inc()

		return rec, nil
	}

	metrics.CacheMisses.Inc()

	result, err, _ := s.group.Do(id, func() (any, error) {
		// The load is shared by every coalesced caller: detach it from
		// the leader's cancellation and bound it with its own timeout.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		return s.loadVersionRecord(loadCtx, id)
	})
	if err != nil {
		return nil, err
	}

	rec, ok := result.(*models.VersionRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected singleflight result type %T", result)
	}

	return rec, nil
}

// loadVersionRecord assembles a record from the store and populates the
// cache. A header without a readable change list is an error, never an
// empty-success response.
func (s *VersionService) loadVersionRecord(ctx context.Context, id string) (*models.VersionRecord, error) {
	v, err := s.store.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	changes, err := s.store.GetChanges(ctx, v.ID)
	if err != nil {
		return nil, fmt.Errorf("loading changes for version %s: %w", v.ID, err)
	}

	// A version is created with at least one change; a header with none
	// is a partial write that must not surface as an empty success.
	if len(changes) == 0 {
		s.log.WithField("version_id", v.ID).Error("version header has no change records")

		return nil, models.ErrVersionNotFound
	}

	rec := &models.VersionRecord{
		Version:    *v,
		Changes:    changes,
		Pagination: models.SinglePage(len(changes)),
	}

	s.cache.Put(ctx, id, rec)

	return rec, nil
}

// ListVersions returns one page of assembled version records for a
// workbook, newest first. Change rows for the whole page are fetched in
// a single query.
func (s *VersionService) ListVersions(
	ctx context.Context,
	workbookID string,
	page, pageSize int,
) (*models.VersionPage, error) {
	if workbookID == "" {
		return nil, models.ErrMissingWorkbookID
	}

	if page < 1 {
		page = 1
	}

	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	versions, total, err := s.store.FindVersions(ctx, workbookID, page, pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(versions))
	for i, v := range versions {
		ids[i] = v.ID
	}

	changesByVersion, err := s.store.GetChangesForVersions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading changes for version page: %w", err)
	}

	items := make([]models.VersionRecord, len(versions))
	for i, v := range versions {
		changes := changesByVersion[v.ID]
		items[i] = models.VersionRecord{
			Version:    v,
			Changes:    changes,
			Pagination: models.SinglePage(len(changes)),
		}
	}

	return &models.VersionPage{
		Items:      items,
		Pagination: models.NewPagination(page, pageSize, total),
	}, nil
}

// RevertToVersion creates a brand-new version whose changes reproduce
// the target version. The target and everything older are untouched;
// the revert becomes the new latest version. Errors from the target
// lookup and from the create are propagated unwrapped.
func (s *VersionService) RevertToVersion(ctx context.Context, id, authorID string) (*models.Version, error) {
	target, err := s.GetVersion(ctx, id)
	if err != nil {
		return nil, err
	}

	if authorID == "" {
		authorID = target.Version.AuthorID
	}

	changes := make([]models.ChangeInput, len(target.Changes))
	for i, c := range target.Changes {
		meta := make(map[string]any, len(c.Metadata)+1)
		for k, v := range c.Metadata {
			meta[k] = v
		}

		meta["description"] = "Reverted from version " + id

		changes[i] = models.ChangeInput{
			CellReference: c.CellReference,
			PreviousValue: c.PreviousValue,
			NewValue:      c.NewValue,
			ChangeType:    c.ChangeType,
			Metadata:      meta,
		}
	}

	v, err := s.CreateVersion(ctx, models.CreateVersionRequest{
		WorkbookID:  target.Version.WorkbookID,
		WorksheetID: target.Version.WorksheetID,
		AuthorID:    authorID,
		Changes:     changes,
		Metadata: map[string]any{
			"action":            "revert",
			"source_version_id": id,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"action":            "version.revert",
		"source_version_id": id,
		"new_version_id":    v.ID,
		"workbook_id":       v.WorkbookID,
	}).Info("version reverted")

	return v, nil
}
