package file

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

func FileList(c *gin.Context, d *internal.Deps) {
	files, err := d.Files.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}
