package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/sheetvault/sheetvault/internal/domain"
	"github.com/sheetvault/sheetvault/internal/middleware"
)

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Versions    domain.VersionService
	DB          HealthChecker
	Log         *logrus.Logger
	CORSOrigins []string
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID(deps.Log))
	r.Use(middleware.Prometheus())

	if len(deps.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = deps.CORSOrigins
		corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, middleware.RequestIDHeader)
		r.Use(cors.New(corsCfg))
	}

	r.GET("/health", healthHandler(deps.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := NewVersionHandler(deps.Versions, deps.Log)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/workbooks/:workbookId/versions", h.CreateVersion)
		v1.GET("/workbooks/:workbookId/versions", h.ListVersions)
		v1.GET("/versions/:id", h.GetVersion)
		v1.POST("/versions/:id/revert", h.RevertToVersion)
	}

	return r
}
