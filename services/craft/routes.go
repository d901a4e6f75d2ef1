// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package craft

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/wordcraft/services/craft/telemetry"
)

// RegisterRoutes registers the crafting API on rg.
//
// Description:
//
//	Registers all /api/* endpoints on the given group. The group should
//	already carry any middleware.
//
// Endpoints:
//
//	GET    /api/health                  - Liveness and node count
//	GET    /api/objects                 - List all nodes
//	POST   /api/objects                 - Insert a node or merge an edge
//	DELETE /api/objects/:id             - Remove an edge or a node
//	PATCH  /api/objects                 - Vote up or down
//	DELETE /api/objects                 - Reset to the seed roots
//	GET    /api/paths/to-leaf/:leafId   - Recipe chains from the roots
//	GET    /api/paths/leaf-to-leaf      - Recipe chains between two items
//	POST   /api/paths/generate          - Combine two items
func RegisterRoutes(rg *gin.RouterGroup, h *Handlers) {
	api := rg.Group("/api")
	{
		api.GET("/health", h.HandleHealth)

		api.GET("/objects", h.HandleListObjects)
		api.POST("/objects", h.HandleUpsertObject)
		api.PATCH("/objects", h.HandleVote)
		api.DELETE("/objects", h.HandleReset)
		api.DELETE("/objects/:id", h.HandleRemoveObject)

		paths := api.Group("/paths")
		paths.GET("/to-leaf/:leafId", h.HandlePathsToLeaf)
		paths.GET("/leaf-to-leaf", h.HandlePathsBetweenLeaves)
		paths.POST("/generate", h.HandleCombine)
	}
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// ServiceName names the otelgin tracer. Empty disables tracing.
	ServiceName string

	// CORSOrigins lists allowed origins. Empty or containing "*" allows all.
	CORSOrigins []string

	// Metrics enables the request metrics middleware.
	Metrics *telemetry.Metrics

	// Debug adds gin's request logger.
	Debug bool
}

// NewRouter builds the engine with recovery, tracing, CORS, metrics, the
// API routes, and /metrics when the Prometheus exporter is active.
func NewRouter(cfg RouterConfig, h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	if cfg.Debug {
		router.Use(gin.Logger())
	}
	if cfg.ServiceName != "" {
		router.Use(otelgin.Middleware(cfg.ServiceName))
	}
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(telemetry.GinMetrics(cfg.Metrics))

	RegisterRoutes(&router.RouterGroup, h)

	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}
	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
