package chat

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func MessageDelete(c *gin.Context, d *internal.Deps) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid message ID",
			"requestID": c.GetString("requestID"),
		})
		return
	}

	if err := d.Chat.DeleteMessage(c.Request.Context(), middleware.Principal(c), uint(id)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
