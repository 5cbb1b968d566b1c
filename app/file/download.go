package file

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
)

func FileDownload(c *gin.Context, d *internal.Deps) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	dl, err := d.Files.IssueDownload(c.Request.Context(), middleware.Principal(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloadUrl": dl.URL,
		"fileName":    dl.FileName,
	})
}
