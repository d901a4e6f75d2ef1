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
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/wordcraft/services/craft/generate"
	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
	"github.com/AleutianAI/wordcraft/services/craft/pathfind"
	"github.com/AleutianAI/wordcraft/services/craft/store"
	"github.com/AleutianAI/wordcraft/services/craft/telemetry"
)

// ServiceVersion is reported by the health endpoint.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the crafting API.
type Handlers struct {
	store    *store.Store
	votes    *lifecycle.Manager
	gate     *generate.Gatekeeper
	pathOpts []pathfind.Option
	metrics  *telemetry.Metrics
}

// NewHandlers creates handlers over the given components.
func NewHandlers(s *store.Store, votes *lifecycle.Manager, gate *generate.Gatekeeper) *Handlers {
	return &Handlers{store: s, votes: votes, gate: gate}
}

// WithPathOptions sets the defaults for path queries. A maxHops query
// parameter still overrides the hop bound.
func (h *Handlers) WithPathOptions(opts ...pathfind.Option) *Handlers {
	h.pathOpts = opts
	return h
}

// WithMetrics records path query metrics. Nil disables recording.
func (h *Handlers) WithMetrics(m *telemetry.Metrics) *Handlers {
	h.metrics = m
	return h
}

const requestIDKey = "request_id"

// requestIDMiddleware assigns every request an id before any handler runs.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// getOrCreateRequestID returns X-Request-ID or a new UUID, echoing it back.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDKey, requestID)
	c.Header("X-Request-ID", requestID)
	return requestID
}

func requestLogger(c *gin.Context, handler string) *slog.Logger {
	logger := slog.With(requestIDKey, getOrCreateRequestID(c), "handler", handler)
	return telemetry.LoggerWithTrace(c.Request.Context(), logger)
}

func abortInvalid(c *gin.Context, logger *slog.Logger, msg string, err error) {
	logger.Warn("Invalid request", "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeInvalidRequest})
}

func abortError(c *gin.Context, logger *slog.Logger, err error) {
	status, resp := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "error", err, "code", resp.Code)
	} else {
		logger.Info("Request rejected", "error", err, "code", resp.Code)
	}
	c.JSON(status, resp)
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: ServiceVersion,
		Nodes:   h.store.Snapshot().Len(),
	})
}

// HandleListObjects handles GET /api/objects.
//
// Response:
//
//	200 OK: []graph.Node in insertion order
func (h *Handlers) HandleListObjects(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot().Nodes())
}

// HandleUpsertObject handles POST /api/objects.
//
// Description:
//
//	Inserts a node or merges a recipe edge into an existing one.
//
// Request Body:
//
//	UpsertRequest
//
// Response:
//
//	201 Created: SuccessResponse
//	400 Bad Request: missing id or name, malformed pair
//	409 Conflict: pair targets a seed root
//	503 Service Unavailable: persistence failed
func (h *Handlers) HandleUpsertObject(c *gin.Context) {
	logger := requestLogger(c, "HandleUpsertObject")

	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, logger, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		abortInvalid(c, logger, "id and name are required", err)
		return
	}

	ur := store.UpsertRequest{
		ID:         req.ID,
		Name:       req.Name,
		Icons:      req.Icons,
		ParentPair: req.ParentPair,
	}
	if req.TimeCreated != nil {
		ur.TimeCreated = *req.TimeCreated
	}

	node, created, err := h.store.Upsert(c.Request.Context(), ur)
	if err != nil {
		abortError(c, logger, err)
		return
	}
	logger.Info("Upserted object", "id", node.ID, "created", created)
	c.JSON(http.StatusCreated, SuccessResponse{Success: true})
}

// HandleRemoveObject handles DELETE /api/objects/:id.
//
// Description:
//
//	With a parentPair body, removes that edge and the node if no edge
//	remains. Without one, removes the node outright.
//
// Response:
//
//	200 OK: RemoveResponse
//	404 Not Found: unknown id
//	409 Conflict: seed root
func (h *Handlers) HandleRemoveObject(c *gin.Context) {
	logger := requestLogger(c, "HandleRemoveObject")
	id := c.Param("id")

	var req RemoveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortInvalid(c, logger, "Invalid request body", err)
		return
	}

	res, err := h.store.RemoveEdgeOrNode(c.Request.Context(), id, req.ParentPair)
	if err != nil {
		abortError(c, logger, err)
		return
	}
	logger.Info("Removed object", "id", id, "edge_removed", res.EdgeRemoved, "node_removed", res.NodeRemoved)
	c.JSON(http.StatusOK, RemoveResponse{Success: true, RemoveResult: res})
}

// HandleVote handles PATCH /api/objects.
//
// Response:
//
//	200 OK: VoteResponse (deleted nodes report deleted=true)
//	400 Bad Request: missing id, vote not up or down
//	404 Not Found: unknown id
func (h *Handlers) HandleVote(c *gin.Context) {
	logger := requestLogger(c, "HandleVote")

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, logger, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		abortInvalid(c, logger, "id and vote (up|down) are required", err)
		return
	}
	kind, err := lifecycle.ParseVote(req.Vote)
	if err != nil {
		abortError(c, logger, err)
		return
	}

	out, err := h.votes.ApplyVote(c.Request.Context(), req.ID, kind)
	if err != nil {
		abortError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, VoteResponse{
		Success:       true,
		UpvoteCount:   out.UpvoteCount,
		DownvoteCount: out.DownvoteCount,
		Approved:      out.Approved,
		Deleted:       out.Deleted,
	})
}

// HandleReset handles DELETE /api/objects.
func (h *Handlers) HandleReset(c *gin.Context) {
	logger := requestLogger(c, "HandleReset")
	if err := h.store.ResetToSeed(c.Request.Context()); err != nil {
		abortError(c, logger, err)
		return
	}
	logger.Warn("Graph reset to seed roots")
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// HandlePathsToLeaf handles GET /api/paths/to-leaf/:leafId.
//
// Query Parameters:
//
//	maxHops - hop bound, default 10, capped at 100
//
// Response:
//
//	200 OK: PathsResponse
//	404 Not Found: unknown leaf
func (h *Handlers) HandlePathsToLeaf(c *gin.Context) {
	logger := requestLogger(c, "HandlePathsToLeaf")
	ctx := c.Request.Context()
	leafID := c.Param("leafId")

	start := time.Now()
	res, err := pathfind.ToLeafFromRoots(ctx, h.store.Snapshot(), leafID, h.pathOptions(c)...)
	h.metrics.ObservePathQuery(ctx, "to_leaf", time.Since(start), res.Truncated, err)
	if err != nil {
		abortError(c, logger, err)
		return
	}
	logger.Debug("Paths to leaf", "leaf", leafID, "paths", len(res.Paths), "visited", res.Visited)
	c.JSON(http.StatusOK, pathsResponse(res))
}

// HandlePathsBetweenLeaves handles GET /api/paths/leaf-to-leaf.
//
// Query Parameters:
//
//	sourceLeafId - required
//	targetLeafId - required
//	maxHops - hop bound, default 10, capped at 100
func (h *Handlers) HandlePathsBetweenLeaves(c *gin.Context) {
	logger := requestLogger(c, "HandlePathsBetweenLeaves")
	ctx := c.Request.Context()

	var q LeafToLeafQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortInvalid(c, logger, "Invalid query", err)
		return
	}
	if err := q.Validate(); err != nil {
		abortInvalid(c, logger, "sourceLeafId and targetLeafId are required", err)
		return
	}

	start := time.Now()
	res, err := pathfind.BetweenLeaves(ctx, h.store.Snapshot(), q.SourceLeafID, q.TargetLeafID, h.pathOptions(c)...)
	h.metrics.ObservePathQuery(ctx, "between", time.Since(start), res.Truncated, err)
	if err != nil {
		abortError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, pathsResponse(res))
}

// pathOptions applies a positive integer maxHops over the defaults.
// Anything else keeps the configured bound.
func (h *Handlers) pathOptions(c *gin.Context) []pathfind.Option {
	opts := slices.Clone(h.pathOpts)
	if n, err := strconv.Atoi(c.Query("maxHops")); err == nil && n > 0 {
		opts = append(opts, pathfind.WithMaxHops(n))
	}
	return opts
}

func pathsResponse(res pathfind.Result) PathsResponse {
	resp := PathsResponse{Truncated: res.Truncated}
	if res.Found() {
		resp.Paths = res.Paths
	}
	return resp
}

// HandleCombine handles POST /api/paths/generate.
//
// Description:
//
//	Serves an approved recipe from the graph or asks the generator for a
//	new item, validates it, and admits it as an unapproved node.
//
// Response:
//
//	200 OK: CombineResponse
//	400 Bad Request: missing or unknown parents, DISCARDED candidate
//	500 Internal Server Error: EXTRACTION_FAILED (raw included)
//	502 Bad Gateway: generator failed
//	504 Gateway Timeout: generator timed out
func (h *Handlers) HandleCombine(c *gin.Context) {
	logger := requestLogger(c, "HandleCombine")

	var req CombineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalid(c, logger, "Invalid request body", err)
		return
	}
	if err := req.Validate(); err != nil {
		abortInvalid(c, logger, "parent1 and parent2 are required", err)
		return
	}

	res, err := h.gate.Combine(c.Request.Context(), req.Parent1, req.Parent2)
	if err != nil {
		abortError(c, logger, err)
		return
	}

	if res.Status == generate.StatusDiscarded {
		logger.Info("Candidate discarded", "leaf", res.Phrase, "violations", res.Violations)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:      "generated item violates the naming rules and was discarded",
			Code:       CodeDiscarded,
			Raw:        res.Raw,
			Leaf:       res.Phrase,
			Violations: res.Violations,
		})
		return
	}

	logger.Info("Combined", "parent1", req.Parent1, "parent2", req.Parent2,
		"leaf", res.Node.ID, "status", res.Status)
	c.JSON(http.StatusOK, CombineResponse{
		Success:   true,
		Leaf:      res.Node.Name,
		LeafID:    res.Node.ID,
		Icon:      res.Icon,
		FromCache: res.FromCache,
		Created:   res.Created,
		Raw:       res.Raw,
	})
}
