package client

import (
	"context"
	"net/url"
	"strconv"
)

// VersionService handles version control operations.
type VersionService struct {
	c *Client
}

// Create records a new version of the given workbook.
func (s *VersionService) Create(ctx context.Context, workbookID string, req CreateVersionRequest) (*Version, error) {
	var v Version
	if err := s.c.post(ctx, "/api/v1/workbooks/"+url.PathEscape(workbookID)+"/versions", req, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Get returns the fully assembled record for a version id.
func (s *VersionService) Get(ctx context.Context, id string) (*VersionRecord, error) {
	var rec VersionRecord
	if err := s.c.get(ctx, "/api/v1/versions/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns one page of a workbook's versions, newest first.
func (s *VersionService) List(ctx context.Context, workbookID string, page, pageSize int) (*VersionPage, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}

	var result VersionPage
	if err := s.c.get(ctx, "/api/v1/workbooks/"+url.PathEscape(workbookID)+"/versions", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Revert creates a new version reproducing the target version's changes.
// The target version is untouched.
func (s *VersionService) Revert(ctx context.Context, id, authorID string) (*Version, error) {
	body := map[string]string{}
	if authorID != "" {
		body["author_id"] = authorID
	}

	var v Version
	if err := s.c.post(ctx, "/api/v1/versions/"+url.PathEscape(id)+"/revert", body, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
