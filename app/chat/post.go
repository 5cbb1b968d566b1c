package chat

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type postBody struct {
	Message string `json:"message"`
}

func MessagePost(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data postBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	msg, err := d.Chat.PostMessage(c.Request.Context(), middleware.Principal(c), data.Message)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": msg,
	})
}
