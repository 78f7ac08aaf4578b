package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n8dizzle/Christmas-automations/api/handler"
	"github.com/n8dizzle/Christmas-automations/api/middleware"
	"github.com/n8dizzle/Christmas-automations/config"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Dispatcher handler.Dispatcher
	Stats      handler.StatsSource
	Prober     handler.Prober
	Batches    *handler.BatchRunner
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
// ctx bounds the middleware's background goroutines.
func NewRouter(ctx context.Context, deps Deps, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health, no auth required.
	v1.GET("/health", handler.Health(deps.Stats, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Lookup
	protected.POST("/lookup", handler.Lookup(deps.Dispatcher))

	// Batch
	protected.POST("/batch/lookup", handler.PostBatch(deps.Batches))
	protected.GET("/batch/:id", handler.GetBatch(deps.Batches.Store))

	// Sites
	protected.GET("/sites", handler.Sites(deps.Dispatcher, deps.Prober))

	return r
}
