// Package domain defines the canonical service interfaces shared across
// the API layer and the Go client. Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/sheetvault/sheetvault/internal/models"
)

// VersionService defines the four operations of the version control
// engine. Every mutation goes through CreateVersion; RevertToVersion is
// append-only and never alters existing history.
type VersionService interface {
	CreateVersion(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error)
	GetVersion(ctx context.Context, id string) (*models.VersionRecord, error)
	ListVersions(ctx context.Context, workbookID string, page, pageSize int) (*models.VersionPage, error)
	RevertToVersion(ctx context.Context, id, authorID string) (*models.Version, error)
}

// VersionStore is the persistence interface the service orchestrates.
// InsertVersionWithChanges is the sole writer path: it allocates the
// sequence number, resolves the parent link, and writes the header and
// all change rows in one atomic unit of work.
type VersionStore interface {
	InsertVersionWithChanges(ctx context.Context, v *models.Version, changes []models.ChangeInput) ([]models.ChangeRecord, error)
	GetVersion(ctx context.Context, id string) (*models.Version, error)
	GetChanges(ctx context.Context, versionID string) ([]models.ChangeRecord, error)
	GetChangesForVersions(ctx context.Context, versionIDs []string) (map[string][]models.ChangeRecord, error)
	FindVersions(ctx context.Context, workbookID string, page, pageSize int) ([]models.Version, int, error)
	MaxSequenceNumber(ctx context.Context, workbookID string) (int64, error)
}
