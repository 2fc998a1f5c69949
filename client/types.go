package client

import "time"

// Version is an immutable snapshot header for a workbook.
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
type ChangeRecord struct {
	ID            int64          `json:"id"`
	VersionID     string         `json:"version_id"`
	CellReference string         `json:"cell_reference"`
	PreviousValue string         `json:"previous_value"`
	NewValue      string         `json:"new_value"`
	ChangeType    string         `json:"change_type"`
	Timestamp     time.Time      `json:"timestamp"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ChangeInput is a change to record as part of a new version.
type ChangeInput struct {
	CellReference string         `json:"cell_reference"`
	PreviousValue string         `json:"previous_value"`
	NewValue      string         `json:"new_value"`
	ChangeType    string         `json:"change_type"`
	Timestamp     *time.Time     `json:"timestamp,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
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

// VersionRecord is a version header with its full change list.
type VersionRecord struct {
	Version    Version        `json:"version"`
	Changes    []ChangeRecord `json:"changes"`
	Pagination Pagination     `json:"pagination"`
}

// VersionPage is one page of version records, newest first.
type VersionPage struct {
	Items      []VersionRecord `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

// CreateVersionRequest is the body for Versions.Create.
type CreateVersionRequest struct {
	WorksheetID string         `json:"worksheet_id,omitempty"`
	AuthorID    string         `json:"author_id,omitempty"`
	Changes     []ChangeInput  `json:"changes"`
	Metadata    map[string]any `json:"metadata"`
}

// HealthResponse is the /health response body.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
