package file

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// fileID parses the :id path parameter. It writes the 400 itself.
func fileID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid file ID",
			"requestID": c.GetString("requestID"),
		})
		return 0, false
	}

	return uint(id), true
}
