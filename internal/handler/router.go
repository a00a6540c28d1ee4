package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hajime-dev/devicekb/internal/middleware"
)

type RouterDeps struct {
	Devices   *DeviceHandler
	Documents *DocumentHandler
	Chat      *ChatHandler
	Templates *TemplateHandler

	// ChatRateWindow is the minimum interval between generation-backed
	// requests from one client. Zero disables the limit.
	ChatRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/devices", deps.Devices.Create)
	api.GET("/devices", deps.Devices.List)
	api.GET("/devices/:id", deps.Devices.Get)
	api.DELETE("/devices/:id", deps.Devices.Delete)

	api.POST("/documents/upload", deps.Documents.Upload)
	api.GET("/documents", deps.Documents.List)
	api.GET("/documents/:id/file", deps.Documents.Download)
	api.DELETE("/documents/:id", deps.Documents.Delete)

	generate := api.Group("")
	if deps.ChatRateWindow > 0 {
		generate.Use(middleware.RateLimit(deps.ChatRateWindow))
	}
	generate.POST("/chat", deps.Chat.Ask)
	generate.POST("/templates/analyze", deps.Templates.Analyze)
	generate.POST("/templates/fill", deps.Templates.Fill)

	api.POST("/chat/search", deps.Chat.Search)
	api.GET("/chat/history", deps.Chat.History)
	api.DELETE("/chat/history", deps.Chat.Clear)
	api.GET("/templates/download/:key", deps.Templates.Download)
}
