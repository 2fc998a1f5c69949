// Package httputil provides shared HTTP response helpers.
package httputil

import (
	"github.com/gin-gonic/gin"

	"github.com/sheetvault/sheetvault/internal/middleware"
)

// ErrorResponse is the JSON envelope for every error the API returns.
// Code is one of the api package's error code constants; RequestID is
// echoed when the request ID middleware has run.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RespondError writes the standard error envelope and aborts the request.
func RespondError(c *gin.Context, status int, code, message string) {
	resp := ErrorResponse{Code: code, Message: message}

	if rid, exists := c.Get(middleware.RequestIDKey); exists {
		if s, ok := rid.(string); ok {
			resp.RequestID = s
		}
	}

	c.AbortWithStatusJSON(status, resp)
}
