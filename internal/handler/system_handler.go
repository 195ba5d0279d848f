package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check can probe.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) HealthCheck(ctx context.Context) error {
	return f(ctx)
}

type SystemInfo struct {
	Service         string
	Version         string
	DatabaseDriver  string
	DatabaseVersion func(ctx context.Context) (string, error)
	CacheBackend    string
}

type SystemHandler struct {
	database Pinger
	// cache is nil when caching is disabled
	cache Pinger
	info  SystemInfo
}

func NewSystemHandler(database, cache Pinger, info SystemInfo) *SystemHandler {
	return &SystemHandler{
		database: database,
		cache:    cache,
		info:     info,
	}
}

func (h *SystemHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/info", h.Info)
}

func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	services := gin.H{}

	// Проверяем БД
	if err := h.database.HealthCheck(ctx); err != nil {
		services["database"] = "unhealthy"
		status = "degraded"
	} else {
		services["database"] = "healthy"
	}

	// Проверяем кэш
	if h.cache == nil {
		services["cache"] = "disabled"
	} else if err := h.cache.HealthCheck(ctx); err != nil {
		services["cache"] = "unhealthy"
		status = "degraded"
	} else {
		services["cache"] = "healthy"
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":   status,
		"services": services,
	})
}

func (h *SystemHandler) Info(c *gin.Context) {
	info := gin.H{
		"service":         h.info.Service,
		"version":         h.info.Version,
		"database_driver": h.info.DatabaseDriver,
		"cache_enabled":   h.cache != nil,
	}

	if h.info.DatabaseVersion != nil {
		if version, err := h.info.DatabaseVersion(c.Request.Context()); err == nil {
			info["database_version"] = version
		}
	}
	if h.cache != nil {
		info["cache_driver"] = h.info.CacheBackend
	}

	c.JSON(http.StatusOK, info)
}
