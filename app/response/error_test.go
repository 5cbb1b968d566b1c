package response

import (
	"bitwise74/filehub/internal/service"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, Status(fmt.Errorf("%w: x", service.ErrUnauthenticated)))
	assert.Equal(t, http.StatusForbidden, Status(fmt.Errorf("%w: x", service.ErrForbidden)))
	assert.Equal(t, http.StatusBadRequest, Status(fmt.Errorf("%w: x", service.ErrInvalidArgument)))
	assert.Equal(t, http.StatusNotFound, Status(fmt.Errorf("%w: x", service.ErrNotFound)))
	assert.Equal(t, http.StatusInternalServerError, Status(fmt.Errorf("%w: x", service.ErrDependency)))
	assert.Equal(t, http.StatusInternalServerError, Status(errors.New("boom")))
}

func TestError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("requestID", "rid")

	Error(c, fmt.Errorf("%w: file not found", service.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"file not found","requestID":"rid"}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set("requestID", "rid")

	Error(c, fmt.Errorf("%w: failed to list files, disk on fire", service.ErrDependency))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error","requestID":"rid"}`, w.Body.String())
}
