package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SessionCounter reports how many sessions are open.
type SessionCounter interface {
	Count() int
}

// ConnectionCounter reports how many websocket connections are live.
type ConnectionCounter interface {
	ConnectionCount() int
}

// @Summary Liveness banner
// @Tags Health
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func RootHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "chess relay running")
	}
}

// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func HealthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// @Summary Relay statistics
// @Description Number of open sessions and live websocket connections
// @Tags Health
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /stats [get]
func StatsHandler(sessions SessionCounter, conns ConnectionCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, StatsResponse{
			OpenSessions: sessions.Count(),
			Connections:  conns.ConnectionCount(),
		})
	}
}
