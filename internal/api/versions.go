package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/domain"
	"github.com/sheetvault/sheetvault/internal/models"
)

// VersionHandler serves the version control endpoints.
type VersionHandler struct {
	svc domain.VersionService
	log *logrus.Logger
}

// NewVersionHandler creates a VersionHandler.
func NewVersionHandler(svc domain.VersionService, log *logrus.Logger) *VersionHandler {
	return &VersionHandler{svc: svc, log: log}
}

// createVersionBody is the request body for CreateVersion. The workbook
// id comes from the path; the author id from the authenticated caller
// context established upstream.
type createVersionBody struct {
	WorksheetID string               `json:"worksheet_id"`
	AuthorID    string               `json:"author_id"`
	Changes     []models.ChangeInput `json:"changes"`
	Metadata    map[string]any       `json:"metadata"`
}

// CreateVersion handles POST /api/v1/workbooks/:workbookId/versions.
func (h *VersionHandler) CreateVersion(c *gin.Context) {
	var body createVersionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())

		return
	}

	v, err := h.svc.CreateVersion(c.Request.Context(), models.CreateVersionRequest{
		WorkbookID:  c.Param("workbookId"),
		WorksheetID: body.WorksheetID,
		AuthorID:    body.AuthorID,
		Changes:     body.Changes,
		Metadata:    body.Metadata,
	})
	if err != nil {
		respondServiceError(c, h.log, err)

		return
	}

	c.JSON(http.StatusCreated, v)
}

// GetVersion handles GET /api/v1/versions/:id.
func (h *VersionHandler) GetVersion(c *gin.Context) {
	rec, err := h.svc.GetVersion(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.log, err)

		return
	}

	c.JSON(http.StatusOK, rec)
}

// ListVersions handles GET /api/v1/workbooks/:workbookId/versions.
func (h *VersionHandler) ListVersions(c *gin.Context) {
	page := parseInt(c.DefaultQuery("page", "1"), 1)
	pageSize := parseInt(c.DefaultQuery("page_size", "10"), 10)

	result, err := h.svc.ListVersions(c.Request.Context(), c.Param("workbookId"), page, pageSize)
	if err != nil {
		respondServiceError(c, h.log, err)

		return
	}

	c.JSON(http.StatusOK, result)
}

// revertBody is the optional request body for RevertToVersion.
type revertBody struct {
	AuthorID string `json:"author_id"`
}

// RevertToVersion handles POST /api/v1/versions/:id/revert.
func (h *VersionHandler) RevertToVersion(c *gin.Context) {
	var body revertBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())

			return
		}
	}

	v, err := h.svc.RevertToVersion(c.Request.Context(), c.Param("id"), body.AuthorID)
	if err != nil {
		respondServiceError(c, h.log, err)

		return
	}

	c.JSON(http.StatusCreated, v)
}

// parseInt parses a positive integer query value, falling back on error.
func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fallback
	}

	return n
}
