// Package response writes error bodies for service errors
package response

import (
	"bitwise74/filehub/internal/service"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statuses = []struct {
	err    error
	status int
}{
	{service.ErrUnauthenticated, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidArgument, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
}

// Status maps an error from the service layer to an HTTP status code
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.err) {
			return s.status
		}
	}

	return http.StatusInternalServerError
}

// Error aborts the request with the status for err. Client errors carry their
// own message, everything else is logged and reported generically.
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")
	status := Status(err)

	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(err), zap.String("requestID", requestID))

		c.AbortWithStatusJSON(status, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     message(err),
		"requestID": requestID,
	})
}

// message drops the sentinel prefix so "not found: file not found" reads
// "file not found"
func message(err error) string {
	msg := err.Error()

	for _, s := range statuses {
		if after, ok := strings.CutPrefix(msg, s.err.Error()+": "); ok {
			return after
		}
	}

	return msg
}
