package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sheetvault/sheetvault/internal/models"
)

func newVersion(workbookID string) *models.Version {
	return &models.Version{
		ID:         uuid.New().String(),
		WorkbookID: workbookID,
		AuthorID:   "tester",
		CreatedAt:  time.Now().UTC(),
		Tags:       []string{},
	}
}

func sampleChanges(n int) []models.ChangeInput {
	changes := make([]models.ChangeInput, n)
	for i := range changes {
		changes[i] = models.ChangeInput{
			CellReference: fmt.Sprintf("Sheet1!A%d", i+1),
			PreviousValue: "",
			NewValue:      fmt.Sprintf("%d", i),
			ChangeType:    models.ChangeTypeCellModification,
			Metadata:      map[string]any{"row": float64(i)},
		}
	}
	return changes
}

func TestInsertVersionWithChanges(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	v1 := newVersion(workbookID)
	records, err := vs.InsertVersionWithChanges(ctx, v1, sampleChanges(2))
	if err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	if v1.SequenceNumber != 1 {
		t.Errorf("SequenceNumber = %d, want 1", v1.SequenceNumber)
	}
	if v1.ParentVersionID != nil {
		t.Errorf("ParentVersionID = %v, want nil", *v1.ParentVersionID)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	for i, rec := range records {
		if rec.ID == 0 {
			t.Errorf("record %d has no id", i)
		}
		if rec.VersionID != v1.ID {
			t.Errorf("record %d VersionID = %q, want %q", i, rec.VersionID, v1.ID)
		}
		if rec.Timestamp.IsZero() {
			t.Errorf("record %d has zero timestamp", i)
		}
	}

	v2 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v2, sampleChanges(1)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	if v2.SequenceNumber != 2 {
		t.Errorf("second SequenceNumber = %d, want 2", v2.SequenceNumber)
	}
	if v2.ParentVersionID == nil || *v2.ParentVersionID != v1.ID {
		t.Errorf("second ParentVersionID = %v, want %q", v2.ParentVersionID, v1.ID)
	}
}

func TestInsertVersionWithChanges_LargeBatch(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	// 250 changes crosses two batch boundaries.
	v := newVersion(workbookID)
	records, err := vs.InsertVersionWithChanges(ctx, v, sampleChanges(250))
	if err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	if len(records) != 250 {
		t.Fatalf("len(records) = %d, want 250", len(records))
	}

	got, err := vs.GetChanges(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetChanges: %v", err)
	}
	if len(got) != 250 {
		t.Fatalf("len(got) = %d, want 250", len(got))
	}

	for i, c := range got {
		want := fmt.Sprintf("Sheet1!A%d", i+1)
		if c.CellReference != want {
			t.Fatalf("change %d CellReference = %q, want %q (insertion order lost)", i, c.CellReference, want)
		}
		if c.Metadata["row"] != float64(i) {
			t.Errorf("change %d Metadata[row] = %v, want %d", i, c.Metadata["row"], i)
		}
	}
}

func TestInsertVersionWithChanges_RollsBackOnFailure(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	v1 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v1, sampleChanges(1)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	// A channel is not JSON-marshalable; the third change fails after the
	// header row has been written inside the transaction.
	bad := sampleChanges(3)
	bad[2].Metadata = map[string]any{"bad": make(chan int)}

	v2 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v2, bad); err == nil {
		t.Fatal("expected insert to fail on unmarshalable metadata")
	}

	// The whole unit of work rolled back: no orphaned header.
	if _, err := vs.GetVersion(ctx, v2.ID); !errors.Is(err, models.ErrVersionNotFound) {
		t.Errorf("GetVersion after failed insert = %v, want ErrVersionNotFound", err)
	}

	maxSeq, err := vs.MaxSequenceNumber(ctx, workbookID)
	if err != nil {
		t.Fatalf("MaxSequenceNumber: %v", err)
	}
	if maxSeq != 1 {
		t.Errorf("maxSeq = %d, want 1 (failed insert must not consume a number)", maxSeq)
	}

	// The next successful create continues the run without a gap.
	v3 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v3, sampleChanges(1)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}
	if v3.SequenceNumber != 2 {
		t.Errorf("next SequenceNumber = %d, want 2", v3.SequenceNumber)
	}
	if v3.ParentVersionID == nil || *v3.ParentVersionID != v1.ID {
		t.Errorf("next ParentVersionID = %v, want %q", v3.ParentVersionID, v1.ID)
	}
}

func TestInsertVersionWithChanges_Concurrent(t *testing.T) {
	vs, workbookID := setupVersionStore(t)

	const writers = 8

	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := newVersion(workbookID)
			if _, err := vs.InsertVersionWithChanges(context.Background(), v, sampleChanges(1)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	// Losing writers retry; with a small writer count the budget is
	// expected to absorb every conflict.
	for err := range errs {
		if errors.Is(err, models.ErrSequenceConflict) {
			t.Logf("retry budget exhausted: %v", err)
			continue
		}
		t.Errorf("concurrent insert: %v", err)
	}

	maxSeq, err := vs.MaxSequenceNumber(context.Background(), workbookID)
	if err != nil {
		t.Fatalf("MaxSequenceNumber: %v", err)
	}

	versions, total, err := vs.FindVersions(context.Background(), workbookID, 1, writers)
	if err != nil {
		t.Fatalf("FindVersions: %v", err)
	}

	// However many inserts won, the surviving sequence numbers must be
	// gap-free from 1 to the maximum.
	if int64(total) != maxSeq {
		t.Fatalf("total = %d but max sequence = %d, sequence has gaps", total, maxSeq)
	}

	seen := make(map[int64]bool, len(versions))
	for _, v := range versions {
		if seen[v.SequenceNumber] {
			t.Errorf("duplicate sequence number %d", v.SequenceNumber)
		}
		seen[v.SequenceNumber] = true
	}
	for i := int64(1); i <= maxSeq; i++ {
		if !seen[i] {
			t.Errorf("sequence number %d missing", i)
		}
	}
}

func TestGetVersion(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	created := newVersion(workbookID)
	created.WorksheetID = "Sheet2"
	created.Tags = []string{"milestone"}
	if _, err := vs.InsertVersionWithChanges(ctx, created, sampleChanges(1)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	got, err := vs.GetVersion(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}

	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.WorkbookID != workbookID {
		t.Errorf("WorkbookID = %q, want %q", got.WorkbookID, workbookID)
	}
	if got.WorksheetID != "Sheet2" {
		t.Errorf("WorksheetID = %q, want %q", got.WorksheetID, "Sheet2")
	}
	if len(got.Tags) != 1 || got.Tags[0] != "milestone" {
		t.Errorf("Tags = %v, want [milestone]", got.Tags)
	}
}

func TestGetVersion_NotFound(t *testing.T) {
	vs, _ := setupVersionStore(t)

	_, err := vs.GetVersion(context.Background(), uuid.New().String())
	if !errors.Is(err, models.ErrVersionNotFound) {
		t.Errorf("err = %v, want ErrVersionNotFound", err)
	}
}

func TestGetChangesForVersions(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	v1 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v1, sampleChanges(2)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}
	v2 := newVersion(workbookID)
	if _, err := vs.InsertVersionWithChanges(ctx, v2, sampleChanges(3)); err != nil {
		t.Fatalf("InsertVersionWithChanges: %v", err)
	}

	grouped, err := vs.GetChangesForVersions(ctx, []string{v1.ID, v2.ID, uuid.New().String()})
	if err != nil {
		t.Fatalf("GetChangesForVersions: %v", err)
	}

	if len(grouped) != 2 {
		t.Fatalf("len(grouped) = %d, want 2", len(grouped))
	}
	if len(grouped[v1.ID]) != 2 {
		t.Errorf("len(grouped[v1]) = %d, want 2", len(grouped[v1.ID]))
	}
	if len(grouped[v2.ID]) != 3 {
		t.Errorf("len(grouped[v2]) = %d, want 3", len(grouped[v2.ID]))
	}
}

func TestFindVersions_Pagination(t *testing.T) {
	vs, workbookID := setupVersionStore(t)
	ctx := context.Background()

	const total = 5
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		v := newVersion(workbookID)
		if _, err := vs.InsertVersionWithChanges(ctx, v, sampleChanges(1)); err != nil {
			t.Fatalf("InsertVersionWithChanges: %v", err)
		}
		ids = append(ids, v.ID)
	}

	page1, count, err := vs.FindVersions(ctx, workbookID, 1, 2)
	if err != nil {
		t.Fatalf("FindVersions: %v", err)
	}
	if count != total {
		t.Errorf("count = %d, want %d", count, total)
	}
	if len(page1) != 2 {
		t.Fatalf("len(page1) = %d, want 2", len(page1))
	}
	if page1[0].ID != ids[total-1] {
		t.Errorf("page1[0] = %q, want newest %q", page1[0].ID, ids[total-1])
	}
	if page1[0].SequenceNumber != total {
		t.Errorf("page1[0].SequenceNumber = %d, want %d", page1[0].SequenceNumber, total)
	}

	page3, _, err := vs.FindVersions(ctx, workbookID, 3, 2)
	if err != nil {
		t.Fatalf("FindVersions: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("len(page3) = %d, want 1", len(page3))
	}
	if page3[0].SequenceNumber != 1 {
		t.Errorf("last page sequence = %d, want 1", page3[0].SequenceNumber)
	}

	empty, count, err := vs.FindVersions(ctx, workbookID, 4, 2)
	if err != nil {
		t.Fatalf("FindVersions: %v", err)
	}
	if count != total {
		t.Errorf("count = %d, want %d", count, total)
	}
	if len(empty) != 0 {
		t.Errorf("past-the-end page returned %d rows", len(empty))
	}
}

func TestMaxSequenceNumber_Empty(t *testing.T) {
	vs, workbookID := setupVersionStore(t)

	maxSeq, err := vs.MaxSequenceNumber(context.Background(), workbookID)
	if err != nil {
		t.Fatalf("MaxSequenceNumber: %v", err)
	}
	if maxSeq != 0 {
		t.Errorf("maxSeq = %d, want 0 for empty workbook", maxSeq)
	}
}
