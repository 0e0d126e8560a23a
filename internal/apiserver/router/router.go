// Package router wires the HTTP routes of the conversation API.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/MoKITUL-FH-Erfurt/mokitul-api/internal/apiserver/handler"
	"github.com/MoKITUL-FH-Erfurt/mokitul-api/pkg/response"
)

// Config controls which routes the engine serves.
type Config struct {
	// RootPath is the mount prefix of the API.
	RootPath string

	// EnableLLMPath registers the message route. Disabled deployments
	// expose conversation CRUD only.
	EnableLLMPath bool
}

// New builds the gin engine. ready gates the conversation routes until
// the backend connections are verified.
func New(cfg Config, conversations *handler.ConversationHandler, health *handler.HealthHandler, ready func() bool) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", health.Healthz)
	engine.GET("/readyz", health.Readyz)

	root := engine.Group(cfg.RootPath)
	root.GET("/stats", health.Stats)

	v1 := root.Group("/v1")
	v1.Use(readinessGate(ready))

	if conversations == nil {
		return engine
	}

	conv := v1.Group("/conversations")
	{
		conv.GET("/", conversations.List)
		conv.POST("/", conversations.Create)
		conv.GET("/:user_id", conversations.ListByUser)
		conv.PUT("/:conversation_id", conversations.Update)
		conv.DELETE("/:conversation_id", conversations.Delete)
		conv.PUT("/:conversation_id/context/course", conversations.SetCourseContext)
		if cfg.EnableLLMPath {
			conv.PUT("/:conversation_id/message", conversations.SendMessage)
		}
	}

	return engine
}

// readinessGate rejects API calls until the startup checks passed, so a
// request can never hit a connection that was not verified yet.
func readinessGate(ready func() bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ready != nil && !ready() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, response.ErrorResponse{
				Detail: "backends are still starting",
			})
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
