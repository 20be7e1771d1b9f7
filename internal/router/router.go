package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hoosierprep/sessiond/internal/config"
	"github.com/hoosierprep/sessiond/internal/handler"
	"github.com/hoosierprep/sessiond/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── Session Group ─────────────────────────────────────────────────
	// The daemon binds to loopback and manages a single session, so the
	// session routes carry no auth layer.
	sess := router.Group("/api/v1/session")
	{
		sess.POST("/open", handlers.Session.Open)
		sess.GET("", handlers.Session.Get)
		sess.POST("/resume", handlers.Session.ResolveResume)
		sess.POST("/answer", handlers.Session.Answer)
		sess.POST("/bookmark", handlers.Session.Bookmark)
		sess.POST("/cursor", handlers.Session.Cursor)
		sess.POST("/complete", handlers.Session.Complete)
		sess.POST("/save", handlers.Session.Save)
		sess.POST("/submit", handlers.Session.Submit)
		sess.POST("/leave", handlers.Session.Leave)
		sess.DELETE("", handlers.Session.Close)
	}

	// ─── WebSocket Group ───────────────────────────────────────────────
	wsGroup := router.Group("/ws/v1")
	{
		wsGroup.GET("/session/stream", handlers.WS.SessionStream)
	}

	return router
}
