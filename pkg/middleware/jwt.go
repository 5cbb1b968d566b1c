package middleware

import (
	"bitwise74/filehub/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewJWTMiddleware requires a valid bearer token and stores the caller as
// "principal" and "userID". It doesn't check the user still exists, services
// re-read whatever they need.
func NewJWTMiddleware(v *service.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		p, err := v.VerifyHeader(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token missing or invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Rejected token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("principal", p)
		c.Set("userID", p.ID)
		c.Next()
	}
}

// Principal returns the caller stored by NewJWTMiddleware, nil if there is none
func Principal(c *gin.Context) *service.Principal {
	p, _ := c.Get("principal")
	pr, _ := p.(*service.Principal)
	return pr
}
