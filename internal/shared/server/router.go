package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumind/internal/shared/config"
	"resumind/internal/shared/metrics"
	"resumind/internal/shared/server/middleware"
	"resumind/internal/shared/server/respond"
)

// RouteRegistrar attaches routes under /api/v1.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, registrars ...RouteRegistrar) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	for _, reg := range registrars {
		reg.RegisterRoutes(api)
	}

	return r
}

// RateLimit builds the per-user limiter for host routes. Status polling gets
// a larger bucket than capability calls.
func RateLimit(cfg config.Config) gin.HandlerFunc {
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil
	}
	return middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT": {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			"STATUS":  {Rate: cfg.RateLimitRPS * 5, Burst: cfg.RateLimitBurst * 5},
		},
		GroupFor: func(c *gin.Context) string {
			if strings.HasSuffix(c.FullPath(), "/auth/status") {
				return "STATUS"
			}
			return "DEFAULT"
		},
	})
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
