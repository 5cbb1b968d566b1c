package chat

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"net/http"

	"github.com/gin-gonic/gin"
)

func MessageList(c *gin.Context, d *internal.Deps) {
	msgs, err := d.Chat.ListMessages(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
	})
}
