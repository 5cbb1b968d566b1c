package root

import (
	"bitwise74/filehub/internal"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context, d *internal.Deps) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    int64(time.Since(d.StartedAt).Seconds()),
	})
}
