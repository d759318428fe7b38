package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/didar-dev/didar-api/pkg/errors"
)

// Envelope is the common response contract: every body carries the success
// flag plus either data or a structured error.
type Envelope struct {
	Success bool             `json:"success"`
	Data    interface{}      `json:"data,omitempty"`
	Error   *appErrors.Error `json:"error,omitempty"`
}

// JSON sends a success envelope with the given status.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.JSON(status, Envelope{Success: true, Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// NoContent sends a 204 response with an empty body.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope, normalising the error into the common
// structure. Params default to an empty object so clients can rely on the
// field being present.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Params == nil {
		appErr = appErrors.WithParams(appErr, map[string]interface{}{})
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, Envelope{Success: false, Error: appErr})
}
