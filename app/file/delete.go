package file

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func FileDelete(c *gin.Context, d *internal.Deps) {
	id, ok := fileID(c)
	if !ok {
		return
	}

	if err := d.Files.Delete(c.Request.Context(), middleware.Principal(c), id); err != nil {
		response.Error(c, err)
		return
	}

	zap.L().Debug("Deleted file", zap.Uint("id", id), zap.String("requestID", c.GetString("requestID")))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "File deleted successfully",
	})
}
