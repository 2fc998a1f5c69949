package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/sheetvault/sheetvault/internal/models"
)

// mockVersionStore records calls and returns configured responses.
type mockVersionStore struct {
	mu    sync.Mutex
	calls []string

	insertVersionWithChanges func(ctx context.Context, v *models.Version, changes []models.ChangeInput) ([]models.ChangeRecord, error)
	getVersion               func(ctx context.Context, id string) (*models.Version, error)
	getChanges               func(ctx context.Context, versionID string) ([]models.ChangeRecord, error)
	getChangesForVersions    func(ctx context.Context, versionIDs []string) (map[string][]models.ChangeRecord, error)
	findVersions             func(ctx context.Context, workbookID string, page, pageSize int) ([]models.Version, int, error)
	maxSequenceNumber        func(ctx context.Context, workbookID string) (int64, error)
}

func (m *mockVersionStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockVersionStore) getCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]string, len(m.calls))
	copy(cp, m.calls)
	return cp
}

func (m *mockVersionStore) InsertVersionWithChanges(ctx context.Context, v *models.Version, changes []models.ChangeInput) ([]models.ChangeRecord, error) {
	m.record("InsertVersionWithChanges")
	return m.insertVersionWithChanges(ctx, v, changes)
}

func (m *mockVersionStore) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	m.record("GetVersion")
	return m.getVersion(ctx, id)
}

func (m *mockVersionStore) GetChanges(ctx context.Context, versionID string) ([]models.ChangeRecord, error) {
	m.record("GetChanges")
	return m.getChanges(ctx, versionID)
}

func (m *mockVersionStore) GetChangesForVersions(ctx context.Context, versionIDs []string) (map[string][]models.ChangeRecord, error) {
	m.record("GetChangesForVersions")
	return m.getChangesForVersions(ctx, versionIDs)
}

func (m *mockVersionStore) FindVersions(ctx context.Context, workbookID string, page, pageSize int) ([]models.Version, int, error) {
	m.record("FindVersions")
	return m.findVersions(ctx, workbookID, page, pageSize)
}

func (m *mockVersionStore) MaxSequenceNumber(ctx context.Context, workbookID string) (int64, error) {
	m.record("MaxSequenceNumber")
	return m.maxSequenceNumber(ctx, workbookID)
}

// memStore is a stateful in-memory VersionStore fake. It reproduces the
// store contract (per-workbook sequence allocation, parent links,
// insertion-ordered changes, newest-first pagination) behind a single
// mutex, which stands in for the database's unique constraint.
type memStore struct {
	mu       sync.Mutex
	versions map[string]*models.Version
	changes  map[string][]models.ChangeRecord
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		versions: make(map[string]*models.Version),
		changes:  make(map[string][]models.ChangeRecord),
	}
}

func (m *memStore) InsertVersionWithChanges(_ context.Context, v *models.Version, changes []models.ChangeInput) ([]models.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		lastSeq  int64
		parentID *string
	)
	for _, existing := range m.versions {
		if existing.WorkbookID == v.WorkbookID && existing.SequenceNumber > lastSeq {
			lastSeq = existing.SequenceNumber
			id := existing.ID
			parentID = &id
		}
	}

	v.SequenceNumber = lastSeq + 1
	v.ParentVersionID = parentID

	if v.ID == "" {
		v.ID = uuid.New().String()
	}

	stored := *v
	m.versions[v.ID] = &stored

	records := make([]models.ChangeRecord, len(changes))
	for i, c := range changes {
		m.nextID++
		records[i] = models.ChangeRecord{
			ID:            m.nextID,
			VersionID:     v.ID,
			CellReference: c.CellReference,
			PreviousValue: c.PreviousValue,
			NewValue:      c.NewValue,
			ChangeType:    c.ChangeType,
			Timestamp:     c.Timestamp,
			Metadata:      c.Metadata,
		}
	}
	m.changes[v.ID] = records

	out := make([]models.ChangeRecord, len(records))
	copy(out, records)
	return out, nil
}

func (m *memStore) GetVersion(_ context.Context, id string) (*models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.versions[id]
	if !ok {
		return nil, models.ErrVersionNotFound
	}

	cp := *v
	return &cp, nil
}

func (m *memStore) GetChanges(_ context.Context, versionID string) ([]models.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ChangeRecord, len(m.changes[versionID]))
	copy(out, m.changes[versionID])
	return out, nil
}

func (m *memStore) GetChangesForVersions(_ context.Context, versionIDs []string) (map[string][]models.ChangeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string][]models.ChangeRecord, len(versionIDs))
	for _, id := range versionIDs {
		if recs, ok := m.changes[id]; ok {
			out := make([]models.ChangeRecord, len(recs))
			copy(out, recs)
			result[id] = out
		}
	}
	return result, nil
}

func (m *memStore) FindVersions(_ context.Context, workbookID string, page, pageSize int) ([]models.Version, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var all []models.Version
	for _, v := range m.versions {
		if v.WorkbookID == workbookID {
			all = append(all, *v)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].SequenceNumber > all[j].SequenceNumber
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return []models.Version{}, total, nil
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	return all[start:end], total, nil
}

func (m *memStore) MaxSequenceNumber(_ context.Context, workbookID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var maxSeq int64
	for _, v := range m.versions {
		if v.WorkbookID == workbookID && v.SequenceNumber > maxSeq {
			maxSeq = v.SequenceNumber
		}
	}
	return maxSeq, nil
}

// recordingCache wraps another cache and records puts and invalidations.
type recordingCache struct {
	mu          sync.Mutex
	inner       map[string]*models.VersionRecord
	puts        []string
	invalidates []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{inner: make(map[string]*models.VersionRecord)}
}

func (c *recordingCache) Get(_ context.Context, id string) (*models.VersionRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.inner[id]
	return rec, ok
}

func (c *recordingCache) Put(_ context.Context, id string, rec *models.VersionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner[id] = rec
	c.puts = append(c.puts, id)
}

func (c *recordingCache) Invalidate(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inner, id)
	c.invalidates = append(c.invalidates, id)
}

func (c *recordingCache) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.puts)
}
