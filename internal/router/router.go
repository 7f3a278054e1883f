package router

import (
	"net/http"

	"github.com/MaxRadzey/celservice/internal/handler"
	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/MaxRadzey/celservice/internal/middleware"
	"github.com/MaxRadzey/celservice/internal/models"
	"github.com/gin-gonic/gin"
)

// SetupRouter создает и настраивает HTTP роутер со всеми middleware и маршрутами.
func SetupRouter(h *handler.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.HandleMethodNotAllowed = true

	SetupMiddleware(r)

	r.Use(middleware.RequestID())
	r.Use(logger.RequestLogger())
	r.Use(logger.ResponseLogger())
	r.Use(middleware.Gzip(h.BodyLimit()))

	// Методы CelService не требуют прав доступа
	r.POST(models.BatchParsePath, h.BatchParse)
	r.POST(models.BatchDeparsePath, h.BatchDeparse)

	r.GET("/ping", h.Ping)
	r.GET("/v1/dashboard/routes", h.DashboardRoutes)

	return r
}

// SetupMiddleware настраивает middleware для роутера.
func SetupMiddleware(router *gin.Engine) {
	router.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "Method not allowed!")
	})
}
