// Package server wires HTTP handlers into a gin engine for the relay.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatPath is the WebSocket endpoint.
const ChatPath = "/api/ws/chat"

// SetupRoutes returns a gin engine with the health, status, chat, metrics and
// test page routes registered.
func SetupRoutes(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/", h.Health)
	router.GET("/healthz", h.Status)
	router.Any(ChatPath, h.ChatSocket)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/test", h.TestPage)

	return router
}
