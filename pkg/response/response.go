package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/voicedeck/voicedeck/pkg/errors"
)

// ErrorBody is the wire shape for every error response.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes a success payload verbatim. Collection endpoints return bare
// arrays and entity endpoints return bare objects; there is no envelope.
func JSON(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, data)
}

// Error writes a JSON error response derived from an AppError. Internal
// details are never serialised; only the client-safe message is.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	if appErr.Code == appErrors.ErrDirectoryUnavailable.Code {
		// Directory failures carry store detail; clients only ever see the
		// generic internal error.
		appErr = appErrors.ErrInternalServer
	}
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	c.JSON(status, ErrorBody{Error: appErr.Message})
}

// AbortError writes an error response and stops the middleware chain.
func AbortError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
