package app

import (
	"bitwise74/filehub/app/admin"
	"bitwise74/filehub/app/chat"
	"bitwise74/filehub/app/file"
	"bitwise74/filehub/app/root"
	"bitwise74/filehub/app/user"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/pkg/middleware"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRouter mounts every route on a new engine. The returned function releases
// middleware state and should be called on shutdown.
func NewRouter(d *internal.Deps) (*gin.Engine, func()) {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors_origins"),
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 32 << 20

	stop := func() {}

	jwt := middleware.NewJWTMiddleware(d.Verifier)
	turnstile := middleware.NewTurnstileMiddleware("")
	smallBody := middleware.BodySizeLimiter(1 << 20)
	// Every file at the size cap plus room for the multipart framing
	uploadBody := middleware.BodySizeLimiter(d.Limits.MaxUploadSize*int64(d.Limits.MaxFiles) + 1<<20)

	m := router.Group("/api")

	if rps := viper.GetInt("security.rate_limit"); rps > 0 {
		limiter, closeLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
			RequestsPerSecond: rps,
			Burst:             rps * 2,
		})
		m.Use(limiter)
		stop = closeLimiter
	}

	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/health		-> Status and uptime
		m.GET("/health", func(c *gin.Context) { root.Health(c, d) })
	}

	a := m.Group("/auth", smallBody)
	{
		// POST /api/auth/register	-> Registers a new user and returns a token
		a.POST("/register", turnstile, func(c *gin.Context) { user.UserRegister(c, d) })

		// POST /api/auth/login		-> Logs in a user and returns a token
		a.POST("/login", func(c *gin.Context) { user.UserLogin(c, d) })

		// GET /api/auth/me		-> Returns the caller's account
		a.GET("/me", jwt, func(c *gin.Context) { user.UserFetch(c, d) })
	}

	f := m.Group("/files")
	{
		// GET /api/files		-> Lists the newest public files
		f.GET("", cacheFor(viper.GetDuration("cache.public_list_ttl")), func(c *gin.Context) { file.FileList(c, d) })

		// POST /api/files/upload	-> Uploads up to upload.max_files files
		f.POST("/upload", jwt, uploadBody, func(c *gin.Context) { file.FileUpload(c, d) })

		// GET /api/files/:id/download	-> Returns a signed download URL
		f.GET("/:id/download", jwt, func(c *gin.Context) { file.FileDownload(c, d) })

		// DELETE /api/files/:id	-> Deletes a file (admin)
		f.DELETE("/:id", jwt, func(c *gin.Context) { file.FileDelete(c, d) })
	}

	ch := m.Group("/chat/messages", jwt, smallBody)
	{
		// GET /api/chat/messages	-> Returns the latest messages, oldest first
		ch.GET("", func(c *gin.Context) { chat.MessageList(c, d) })

		// POST /api/chat/messages	-> Posts a message, the bot answers a bit later
		ch.POST("", func(c *gin.Context) { chat.MessagePost(c, d) })

		// DELETE /api/chat/messages/:id -> Deletes a message (author or admin)
		ch.DELETE("/:id", func(c *gin.Context) { chat.MessageDelete(c, d) })
	}

	ad := m.Group("/admin", jwt, smallBody)
	{
		// GET /api/admin/stats		-> Usage counters
		ad.GET("/stats", func(c *gin.Context) { admin.Stats(c, d) })

		// GET /api/admin/users		-> All users, newest first
		ad.GET("/users", func(c *gin.Context) { admin.UserList(c, d) })

		// PATCH /api/admin/users/:id/admin -> Grants or revokes admin
		ad.PATCH("/users/:id/admin", func(c *gin.Context) { admin.UserToggleAdmin(c, d) })

		// DELETE /api/admin/users/:id	-> Deletes a user with their files and messages
		ad.DELETE("/users/:id", func(c *gin.Context) { admin.UserDelete(c, d) })

		// GET /api/admin/logs		-> Recent server events
		ad.GET("/logs", func(c *gin.Context) { admin.Logs(c, d) })
	}

	// GET /metrics			-> Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router, stop
}

func cacheFor(ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	return cache.CacheByRequestURI(persist.NewMemoryStore(time.Minute), ttl)
}
