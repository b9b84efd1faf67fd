package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/webridge/internal/observability"
)

// buildRouter assembles the gin engine with recovery, request
// logging, metrics, and the CORS policy shared by the REST and
// WebSocket surfaces.
func (s *Service) buildRouter() *gin.Engine {
	observability.RegisterMetrics()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(observability.RequestLogger(log.Logger))
	router.Use(observability.RequestMetricsMiddleware(s.cfg.Name))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     normalizeOrigins(s.cfg.CorsOrigins),
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	_ = router.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	return router
}

// normalizeOrigins falls back to the local page dev server when no
// origins are configured. Browsers reject wildcard origins once
// credentials are allowed, so the default stays explicit.
func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
