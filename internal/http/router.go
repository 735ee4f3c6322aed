// Package http assembles the gin router.
package http

import (
	nethttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/crewbook/portal/internal/config"
	"github.com/crewbook/portal/internal/http/handler"
	"github.com/crewbook/portal/internal/http/middleware"
	"github.com/crewbook/portal/internal/metrics"
)

// NewRouter builds the full HTTP surface. All /user and /company routes sit
// behind bearer authentication; /healthz and /metrics do not.
func NewRouter(
	cfg *config.Config,
	auth *middleware.Auth,
	users *handler.UserHandler,
	companies *handler.CompanyHandler,
	recorder metrics.Recorder,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middleware.HTTPMetrics(recorder))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	user := r.Group("/user", auth.Require)
	{
		user.GET("/get", users.Get)
		user.POST("/update", users.Update)
		user.POST("/upsert", users.Upsert)
	}

	company := r.Group("/company", auth.Require)
	{
		company.POST("/create", companies.Create)
		company.POST("/search", companies.Search)
		company.POST("/enrich", companies.Enrich)
	}

	return r
}
