package admin

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Logs returns the recent lifecycle events kept in memory
func Logs(c *gin.Context, d *internal.Deps) {
	if err := d.Gate.RequireAdmin(c.Request.Context(), middleware.Principal(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": d.Events.Recent(),
	})
}
