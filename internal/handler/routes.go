package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxviazov/knowledge-hub/internal/graph"
	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// APIV1Prefix is the canonical base path for public HTTP API v1.
// Keep a single source of truth to avoid path drift across handlers and tests.
const APIV1Prefix = "/api/v1"

// Deps is everything the router needs. Nil services leave their routes unmounted,
// which keeps focused handler tests small.
type Deps struct {
	Checks     []Check
	Entries    service.EntryService
	Categories service.CategoryService
	Users      service.UserService
	Stats      service.StatsService
	Graph      *graph.Executor
	Paging     Paging
	// Pipeline runs in front of every /api/v1 route except health, in order.
	Pipeline middleware.Pipeline
	// Gatherer backs GET /metrics when set.
	Gatherer prometheus.Gatherer
}

// Register mounts all public routes on the given engine.
func Register(r *gin.Engine, d Deps) {
	h := NewHealthHandler(d.Checks...)

	// Health endpoints bypass the pipeline: no rate limit, no response cache.
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)
	health := r.Group(APIV1Prefix + "/health")
	{
		health.GET("/live", h.Liveness)
		health.GET("/ready", h.Readiness)
	}
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	RegisterDocs(r)

	api := r.Group(APIV1Prefix, d.Pipeline.Handlers()...)
	{
		if d.Users != nil {
			NewUserHandler(d.Users, d.Paging).Register(api)
		}
		if d.Entries != nil {
			NewEntryHandler(d.Entries, d.Paging).Register(api)
		}
		if d.Categories != nil {
			NewCategoryHandler(d.Categories).Register(api)
		}
		if d.Stats != nil {
			NewStatsHandler(d.Stats).Register(api)
		}
		if d.Graph != nil {
			NewGraphHandler(d.Graph).Register(api)
		}
	}
}
