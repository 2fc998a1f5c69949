package api_test

import (
	"context"

	"github.com/sheetvault/sheetvault/internal/domain"
	"github.com/sheetvault/sheetvault/internal/models"
)

// mockVersionService implements domain.VersionService with per-method
// function fields.
type mockVersionService struct {
	createFn func(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error)
	getFn    func(ctx context.Context, id string) (*models.VersionRecord, error)
	listFn   func(ctx context.Context, workbookID string, page, pageSize int) (*models.VersionPage, error)
	revertFn func(ctx context.Context, id, authorID string) (*models.Version, error)
}

var _ domain.VersionService = (*mockVersionService)(nil)

func (m *mockVersionService) CreateVersion(ctx context.Context, req models.CreateVersionRequest) (*models.Version, error) {
	return m.createFn(ctx, req)
}

func (m *mockVersionService) GetVersion(ctx context.Context, id string) (*models.VersionRecord, error) {
	return m.getFn(ctx, id)
}

func (m *mockVersionService) ListVersions(ctx context.Context, workbookID string, page, pageSize int) (*models.VersionPage, error) {
	return m.listFn(ctx, workbookID, page, pageSize)
}

func (m *mockVersionService) RevertToVersion(ctx context.Context, id, authorID string) (*models.Version, error) {
	return m.revertFn(ctx, id, authorID)
}
