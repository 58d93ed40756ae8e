package response

import (
	"log/slog"
	"net/http"

	"appointly/internal/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// Success writes data as the response body as-is.
func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

func Error(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

func ErrorWithDetails(c *gin.Context, statusCode int, message string, details any) {
	if details == nil {
		Error(c, statusCode, message)
		return
	}
	c.JSON(statusCode, gin.H{
		"error":   message,
		"details": details,
	})
}

// FromError maps a tagged error to its status code. Untagged errors become
// a 500 and their text is logged, not returned.
func FromError(c *gin.Context, log *slog.Logger, err error) {
	ae := apperror.As(err)
	if ae == nil {
		log.Error("unhandled error", "path", c.FullPath(), "error", err)
		Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := apperror.HTTPStatus(ae.Kind)
	if ae.Kind == apperror.KindInternal {
		log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	ErrorWithDetails(c, status, ae.Message, ae.Details)
}
