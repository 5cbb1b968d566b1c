package admin

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func UserList(c *gin.Context, d *internal.Deps) {
	users, err := d.Admin.ListUsers(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
	})
}

type toggleBody struct {
	IsAdmin *bool `json:"isAdmin"`
}

func UserToggleAdmin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data toggleBody
	if err := c.ShouldBindJSON(&data); err != nil || data.IsAdmin == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "isAdmin field is required",
			"requestID": requestID,
		})
		return
	}

	p := middleware.Principal(c)

	user, err := d.Admin.SetAdmin(c.Request.Context(), p, c.Param("id"), *data.IsAdmin)
	if err != nil {
		response.Error(c, err)
		return
	}

	zap.L().Info("Changed admin status",
		zap.String("target", user.ID),
		zap.Bool("isAdmin", user.IsAdmin),
		zap.String("by", p.ID),
		zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{
		"user": user,
	})
}

func UserDelete(c *gin.Context, d *internal.Deps) {
	p := middleware.Principal(c)
	target := c.Param("id")

	if err := d.Admin.DeleteUser(c.Request.Context(), p, target); err != nil {
		response.Error(c, err)
		return
	}

	zap.L().Info("Deleted user", zap.String("target", target), zap.String("by", p.ID), zap.String("requestID", c.GetString("requestID")))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}
