package http

import (
	"net/http"

	"chess-relay/internal/logging"

	"github.com/gin-gonic/gin"
)

// RouterDeps collects what the router mounts.
type RouterDeps struct {
	Sessions    SessionCounter
	Connections ConnectionCounter
	WebSocket   gin.HandlerFunc
	Metrics     http.Handler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/", RootHandler())
	r.GET("/healthz", HealthHandler())
	r.GET("/stats", StatsHandler(d.Sessions, d.Connections))

	// live play
	r.GET("/ws", d.WebSocket)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logging.Logger.Debug("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}
