// Package models defines the core entities of the workbook version
// control engine: immutable version headers, the cell-level change
// records they own, and the read-side projections returned to callers.
package models

import "time"

// ChangeType classifies what produced a cell change.
type ChangeType string

// Supported change types.
const (
	ChangeTypeFormulaUpdate    ChangeType = "FORMULA_UPDATE"
	ChangeTypeDataCleaning     ChangeType = "DATA_CLEANING"
	ChangeTypeCellModification ChangeType = "CELL_MODIFICATION"
	ChangeTypeSheetStructure   ChangeType = "SHEET_STRUCTURE"
)

// Valid reports whether t is one of the supported change types.
func (t ChangeType) Valid() bool {
	switch t {
	case ChangeTypeFormulaUpdate, ChangeTypeDataCleaning,
		ChangeTypeCellModification, ChangeTypeSheetStructure:
		return true
	}

	return false
}

// Version is an immutable snapshot header for a workbook. Once written
// it is never updated in place; history only grows by appending new
// versions.
type Version struct {
	ID              string    `json:"id"`
	WorkbookID      string    `json:"workbook_id"`
	WorksheetID     string    `json:"worksheet_id,omitempty"`
	SequenceNumber  int64     `json:"sequence_number"`
	ParentVersionID *string   `json:"parent_version_id"`
	AuthorID        string    `json:"author_id"`
	CreatedAt       time.Time `json:"created_at"`
	Tags            []string  `json:"tags"`
	IsArchived      bool      `json:"is_archived"`
}

// ChangeRecord is one cell-level edit owned by exactly one version.
// The metadata map carries free-form provenance (service name,
// description, client info) and is never used for identity.
type ChangeRecord struct {
	ID            int64          `json:"id"`
	VersionID     string         `json:"version_id"`
	CellReference string         `json:"cell_reference"`
	PreviousValue string         `json:"previous_value"`
	NewValue      string         `json:"new_value"`
	ChangeType    ChangeType     `json:"change_type"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ChangeInput is the caller-supplied shape of a change before it is
// persisted. A zero Timestamp means "now at insert time". Either value
// may be empty to represent insertion or deletion of cell content.
type ChangeInput struct {
	CellReference string         `json:"cell_reference"`
	PreviousValue string         `json:"previous_value"`
	NewValue      string         `json:"new_value"`
	ChangeType    ChangeType     `json:"change_type"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Validate checks a single change input.
func (c ChangeInput) Validate() error {
	if c.CellReference == "" {
		return ErrMissingCellReference
	}

	if !c.ChangeType.Valid() {
		return ErrInvalidChangeType
	}

	return nil
}

// CreateVersionRequest carries everything needed to record a new version.
type CreateVersionRequest struct {
	WorkbookID  string         `json:"workbook_id"`
	WorksheetID string         `json:"worksheet_id,omitempty"`
	AuthorID    string         `json:"author_id"`
	Changes     []ChangeInput  `json:"changes"`
	Metadata    map[string]any `json:"metadata"`
}

// Validate checks the request against the engine's input contract:
// non-empty workbook, at least one change, metadata present.
func (r CreateVersionRequest) Validate() error {
	if r.WorkbookID == "" {
		return ErrMissingWorkbookID
	}

	if len(r.Changes) == 0 {
		return ErrNoChanges
	}

	if r.Metadata == nil {
		return ErrMissingMetadata
	}

	for _, c := range r.Changes {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Pagination describes the position of a page within a larger result set.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// NewPagination computes page metadata from position and totals.
func NewPagination(page, pageSize, totalItems int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (totalItems + pageSize - 1) / pageSize
	}

	return Pagination{
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1 && totalItems > 0,
	}
}

// SinglePage returns pagination info for a result that is never split
// across pages, such as the change list of one version.
func SinglePage(totalItems int) Pagination {
	return Pagination{
		CurrentPage: 1,
		PageSize:    totalItems,
		TotalItems:  totalItems,
		TotalPages:  1,
	}
}

// VersionRecord is the read-side projection returned to callers: a
// version header, its full change list, and pagination info for the
// changes. It is assembled from the stores (or the cache) and never
// persisted as-is.
type VersionRecord struct {
	Version    Version        `json:"version"`
	Changes    []ChangeRecord `json:"changes"`
	Pagination Pagination     `json:"pagination"`
}

// VersionPage is one page of assembled version records for a workbook,
// newest first.
type VersionPage struct {
	Items      []VersionRecord `json:"items"`
	Pagination Pagination      `json:"pagination"`
}
