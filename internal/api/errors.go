// Package api exposes the version control engine over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/httputil"
	"github.com/sheetvault/sheetvault/internal/metrics"
	"github.com/sheetvault/sheetvault/internal/models"
)

// Error code constants for standardized API responses.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeInternalError  = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the
// request ID from the gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	metrics.ErrorsTotal.WithLabelValues(code).Inc()
	httputil.RespondError(c, status, code, message)
}

// respondServiceError maps the service error taxonomy to HTTP statuses:
// validation 400, unknown id 404, exhausted sequence retries 409,
// anything else (store failure) 500.
func respondServiceError(c *gin.Context, log *logrus.Logger, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
	case errors.Is(err, models.ErrVersionNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, models.ErrSequenceConflict):
		respondError(c, http.StatusConflict, ErrCodeConflict, "version creation conflicted with a concurrent write, retry the request")
	default:
		log.WithError(err).Error("version operation failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
