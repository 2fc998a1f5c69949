package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/metrics"
	"github.com/sheetvault/sheetvault/internal/models"
)

// changeBatchSize limits the number of change rows per INSERT statement.
// Batches stay inside the one transaction, so atomicity is unaffected.
const changeBatchSize = 100

// Sequence allocation retry budget. The UNIQUE(workbook_id,
// sequence_number) constraint is the serialization point: a losing
// writer rolls back the whole unit of work and re-reads the new maximum.
const (
	maxAllocateRetries = 3
	allocateRetryDelay = 10 * time.Millisecond
)

const versionColumns = "id, workbook_id, worksheet_id, sequence_number, parent_version_id, author_id, created_at, tags, is_archived"

// VersionStore handles durable persistence of version headers and their
// change records.
type VersionStore struct {
	Base
}

// NewVersionStore creates a VersionStore.
func NewVersionStore(base Base) *VersionStore {
	return &VersionStore{Base: base}
}

// scanVersion scans a version row using the given scan function.
func scanVersion(scan func(dest ...any) error) (*models.Version, error) {
	var v models.Version

	err := scan(
		&v.ID, &v.WorkbookID, &v.WorksheetID, &v.SequenceNumber,
		&v.ParentVersionID, &v.AuthorID, &v.CreatedAt, &v.Tags, &v.IsArchived,
	)
	if err != nil {
		return nil, err
	}

	if v.Tags == nil {
		v.Tags = []string{}
	}

	return &v, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// InsertVersionWithChanges allocates the next sequence number for
// v.WorkbookID, resolves the parent link, and writes the version header
// plus every change row in one atomic unit of work. Either everything
// commits or nothing does; no partial version is ever observable.
//
// Allocation and insert race under concurrent writers for the same
// workbook; a unique violation rolls the whole transaction back and the
// allocate-and-insert step retries as a whole. Exhausting the retry
// budget surfaces models.ErrSequenceConflict.
func (s *VersionStore) InsertVersionWithChanges(
	ctx context.Context,
	v *models.Version,
	changes []models.ChangeInput,
) ([]models.ChangeRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var records []models.ChangeRecord

	backoff := retry.WithMaxRetries(maxAllocateRetries-1, retry.NewConstant(allocateRetryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		recs, err := s.insertOnce(ctx, v, changes)
		if errors.Is(err, models.ErrSequenceConflict) {
			metrics.SequenceRetries.Inc()
			s.Log.WithFields(logrus.Fields{
				"workbook_id":     v.WorkbookID,
				"sequence_number": v.SequenceNumber,
			}).Warn("sequence allocation raced, retrying")

			return retry.RetryableError(err)
		}

		if err != nil {
			return err
		}

		records = recs

		return nil
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// insertOnce performs a single allocate-and-insert attempt.
func (s *VersionStore) insertOnce(
	ctx context.Context,
	v *models.Version,
	changes []models.ChangeInput,
) ([]models.ChangeRecord, error) {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("inserting version: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var (
		parentID string
		lastSeq  int64
	)

	err = tx.QueryRow(ctx,
		`SELECT id, sequence_number FROM versions
		WHERE workbook_id = $1
		ORDER BY sequence_number DESC LIMIT 1`,
		v.WorkbookID,
	).Scan(&parentID, &lastSeq)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		v.SequenceNumber = 1
		v.ParentVersionID = nil
	case err != nil:
		return nil, fmt.Errorf("reading latest version: %w", err)
	default:
		v.SequenceNumber = lastSeq + 1
		v.ParentVersionID = &parentID
	}

	if v.Tags == nil {
		v.Tags = []string{}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.WorkbookID, v.WorksheetID, v.SequenceNumber,
		v.ParentVersionID, v.AuthorID, v.CreatedAt, v.Tags, v.IsArchived,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrSequenceConflict
		}

		return nil, fmt.Errorf("inserting version header: %w", err)
	}

	records, err := insertChanges(ctx, tx, v.ID, changes)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing version insert: %w", err)
	}

	return records, nil
}

// insertChanges writes change rows in bounded multi-row batches within
// the caller's transaction and returns the persisted records in
// insertion order.
func insertChanges(
	ctx context.Context,
	tx pgx.Tx,
	versionID string,
	changes []models.ChangeInput,
) ([]models.ChangeRecord, error) {
	now := time.Now().UTC()
	records := make([]models.ChangeRecord, 0, len(changes))

	for start := 0; start < len(changes); start += changeBatchSize {
		end := start + changeBatchSize
		if end > len(changes) {
			end = len(changes)
		}

		batch := changes[start:end]

		valueParts := make([]string, 0, len(batch))
		args := make([]any, 0, len(batch)*7)
		batchRecords := make([]models.ChangeRecord, 0, len(batch))

		for i, c := range batch {
			ts := c.Timestamp
			if ts.IsZero() {
				ts = now
			}

			var metadataJSON []byte
			if c.Metadata != nil {
				data, err := json.Marshal(c.Metadata)
				if err != nil {
					return nil, fmt.Errorf("marshalling change metadata for %s: %w", c.CellReference, err)
				}

				metadataJSON = data
			}

			base := i*7 + 1
			valueParts = append(valueParts, fmt.Sprintf(
				"($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base, base+1, base+2, base+3, base+4, base+5, base+6,
			))
			args = append(args, versionID, c.CellReference, c.PreviousValue, c.NewValue, c.ChangeType, ts, metadataJSON)

			batchRecords = append(batchRecords, models.ChangeRecord{
				VersionID:     versionID,
				CellReference: c.CellReference,
				PreviousValue: c.PreviousValue,
				NewValue:      c.NewValue,
				ChangeType:    c.ChangeType,
				Timestamp:     ts,
				Metadata:      c.Metadata,
			})
		}

		sql := `INSERT INTO version_changes (version_id, cell_reference, previous_value, new_value, change_type, timestamp, metadata_json)
			VALUES ` + strings.Join(valueParts, ", ") + `
			RETURNING id`

		rows, err := tx.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("inserting change batch: %w", err)
		}

		idx := 0

		for rows.Next() {
			if idx >= len(batchRecords) {
				rows.Close()

				return nil, fmt.Errorf("inserting change batch: more ids returned than rows inserted")
			}

			if err := rows.Scan(&batchRecords[idx].ID); err != nil {
				rows.Close()

				return nil, fmt.Errorf("scanning change id: %w", err)
			}

			idx++
		}

		rows.Close()

		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterating change ids: %w", err)
		}

		records = append(records, batchRecords...)
	}

	return records, nil
}

// GetVersion returns a version header by id, or models.ErrVersionNotFound.
func (s *VersionStore) GetVersion(ctx context.Context, id string) (*models.Version, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	row := s.Pool.QueryRow(ctx,
		"SELECT "+versionColumns+" FROM versions WHERE id = $1", id)

	v, err := scanVersion(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrVersionNotFound
		}

		return nil, fmt.Errorf("scanning version: %w", err)
	}

	return v, nil
}

// GetChanges returns all change records for a version in insertion order.
func (s *VersionStore) GetChanges(ctx context.Context, versionID string) ([]models.ChangeRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT id, version_id, cell_reference, previous_value, new_value, change_type, timestamp, metadata_json
		FROM version_changes
		WHERE version_id = $1
		ORDER BY id`,
		versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying changes: %w", err)
	}
	defer rows.Close()

	return s.scanChangeRows(rows)
}

// GetChangesForVersions fetches change records for a set of version ids
// in one query, grouped by version id, each group in insertion order.
func (s *VersionStore) GetChangesForVersions(
	ctx context.Context,
	versionIDs []string,
) (map[string][]models.ChangeRecord, error) {
	byVersion := make(map[string][]models.ChangeRecord, len(versionIDs))
	if len(versionIDs) == 0 {
		return byVersion, nil
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx,
		`SELECT id, version_id, cell_reference, previous_value, new_value, change_type, timestamp, metadata_json
		FROM version_changes
		WHERE version_id = ANY($1)
		ORDER BY version_id, id`,
		versionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("querying changes for versions: %w", err)
	}
	defer rows.Close()

	changes, err := s.scanChangeRows(rows)
	if err != nil {
		return nil, err
	}

	for _, c := range changes {
		byVersion[c.VersionID] = append(byVersion[c.VersionID], c)
	}

	return byVersion, nil
}

// scanChangeRows scans change records from an open result set.
func (s *VersionStore) scanChangeRows(rows pgx.Rows) ([]models.ChangeRecord, error) {
	var changes []models.ChangeRecord

	for rows.Next() {
		var c models.ChangeRecord
		var metadataJSON []byte

		if err := rows.Scan(
			&c.ID, &c.VersionID, &c.CellReference, &c.PreviousValue,
			&c.NewValue, &c.ChangeType, &c.Timestamp, &metadataJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning change record: %w", err)
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
				s.Log.WithError(err).WithField("change_id", c.ID).Warn("failed to unmarshal change metadata")
			}
		}

		changes = append(changes, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating change records: %w", err)
	}

	return changes, nil
}

// FindVersions returns one page of version headers for a workbook,
// newest first, plus the total count.
func (s *VersionStore) FindVersions(
	ctx context.Context,
	workbookID string,
	page, pageSize int,
) ([]models.Version, int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("listing versions: %w", err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var total int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM versions WHERE workbook_id = $1", workbookID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting versions: %w", err)
	}

	offset := (page - 1) * pageSize

	rows, err := tx.Query(ctx,
		"SELECT "+versionColumns+` FROM versions
		WHERE workbook_id = $1
		ORDER BY sequence_number DESC
		LIMIT $2 OFFSET $3`,
		workbookID, pageSize, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	versions := make([]models.Version, 0, pageSize)

	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning version row: %w", err)
		}

		versions = append(versions, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating version rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("committing version list query: %w", err)
	}

	return versions, total, nil
}

// MaxSequenceNumber returns the highest sequence number recorded for a
// workbook, or 0 if the workbook has no versions.
func (s *VersionStore) MaxSequenceNumber(ctx context.Context, workbookID string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var maxSeq int64

	err := s.Pool.QueryRow(ctx,
		"SELECT COALESCE(MAX(sequence_number), 0) FROM versions WHERE workbook_id = $1",
		workbookID,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("reading max sequence number: %w", err)
	}

	return maxSeq, nil
}
