package admin

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func Stats(c *gin.Context, d *internal.Deps) {
	st, err := d.Admin.Stats(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, st)
}
