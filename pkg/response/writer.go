// Package response provides helpers for writing API responses.
//
// Success responses serialize the payload as-is. Failures always render
// a {"detail": "..."} body whose status code comes from the structured
// error, so all handlers share one error contract.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/errors"
)

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteSuccess writes data as JSON with the given status code.
func WriteSuccess(c *gin.Context, status int, data any) {
	if data == nil {
		c.Status(status)
		return
	}
	c.JSON(status, data)
}

// WriteError resolves err to a structured error and writes the detail body.
// Unexpected errors are logged with their cause but answered with a generic
// message so internals never leak to clients.
func WriteError(c *gin.Context, err error) {
	e := errors.FromError(err)
	if e == nil {
		c.Status(http.StatusOK)
		return
	}

	if e.HTTP >= http.StatusInternalServerError {
		logger.Errorw("request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", e.Code,
			"error", e.Error(),
		)
	} else {
		logger.Debugw("request rejected",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"code", e.Code,
			"detail", e.Message,
		)
	}

	c.AbortWithStatusJSON(e.HTTP, ErrorResponse{Detail: e.Message})
}
