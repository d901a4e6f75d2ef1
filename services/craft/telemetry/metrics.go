// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/wordcraft/services/craft/lifecycle"
)

// Metrics holds the instruments for the wordcraft server.
//
// Description:
//
//	HTTP request metrics plus counters and histograms for store commits,
//	votes, combinations and path queries. All names use the "wordcraft_"
//	prefix. The Observe* methods make a *Metrics usable as the observer of
//	the store, lifecycle and generate packages. A nil *Metrics records
//	nothing.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks in-flight HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// CommitsTotal counts store commits by operation and status.
	CommitsTotal metric.Int64Counter

	// CommitDuration records backend commit latency in seconds.
	CommitDuration metric.Float64Histogram

	// GraphNodes records the node count after each successful commit.
	GraphNodes metric.Int64Gauge

	// VotesTotal counts votes by kind and resulting transition.
	VotesTotal metric.Int64Counter

	// CombinesTotal counts combinations by status.
	CombinesTotal metric.Int64Counter

	// CombineDuration records end-to-end combine latency in seconds.
	CombineDuration metric.Float64Histogram

	// PathQueriesTotal counts path queries by kind and status.
	PathQueriesTotal metric.Int64Counter

	// PathQueryDuration records path search latency in seconds.
	PathQueryDuration metric.Float64Histogram
}

// NewMetrics registers every instrument with meter.
//
// Example:
//
//	metrics, err := telemetry.NewMetrics(otel.Meter("wordcraft"))
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"wordcraft_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"wordcraft_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"wordcraft_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	m.CommitsTotal, err = meter.Int64Counter(
		"wordcraft_store_commits_total",
		metric.WithDescription("Total store commits"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create store_commits_total: %w", err)
	}

	m.CommitDuration, err = meter.Float64Histogram(
		"wordcraft_store_commit_duration_seconds",
		metric.WithDescription("Store commit duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create store_commit_duration: %w", err)
	}

	m.GraphNodes, err = meter.Int64Gauge(
		"wordcraft_graph_nodes",
		metric.WithDescription("Nodes in the item graph after the last commit"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create graph_nodes: %w", err)
	}

	m.VotesTotal, err = meter.Int64Counter(
		"wordcraft_votes_total",
		metric.WithDescription("Total votes applied"),
		metric.WithUnit("{vote}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create votes_total: %w", err)
	}

	m.CombinesTotal, err = meter.Int64Counter(
		"wordcraft_combines_total",
		metric.WithDescription("Total combinations by outcome"),
		metric.WithUnit("{combine}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create combines_total: %w", err)
	}

	m.CombineDuration, err = meter.Float64Histogram(
		"wordcraft_combine_duration_seconds",
		metric.WithDescription("Combine duration including generation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("create combine_duration: %w", err)
	}

	m.PathQueriesTotal, err = meter.Int64Counter(
		"wordcraft_path_queries_total",
		metric.WithDescription("Total path queries"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create path_queries_total: %w", err)
	}

	m.PathQueryDuration, err = meter.Float64Histogram(
		"wordcraft_path_query_duration_seconds",
		metric.WithDescription("Path search duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create path_query_duration: %w", err)
	}

	return m, nil
}

// ObserveCommit records one store commit attempt.
func (m *Metrics) ObserveCommit(ctx context.Context, op string, duration time.Duration, nodes int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", statusOf(err)),
	)
	m.CommitsTotal.Add(ctx, 1, attrs)
	m.CommitDuration.Record(ctx, duration.Seconds(), attrs)
	if err == nil {
		m.GraphNodes.Record(ctx, int64(nodes))
	}
}

// ObserveVote records one applied vote and the transition it caused.
func (m *Metrics) ObserveVote(ctx context.Context, kind string, out lifecycle.Outcome) {
	if m == nil {
		return
	}
	transition := "none"
	switch {
	case out.Deleted:
		transition = "deleted"
	case out.Promoted:
		transition = "promoted"
	}
	m.VotesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("transition", transition),
	))
}

// ObserveCombine records one finished combination.
func (m *Metrics) ObserveCombine(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.CombinesTotal.Add(ctx, 1, attrs)
	m.CombineDuration.Record(ctx, duration.Seconds(), attrs)
}

// ObservePathQuery records one path search. kind is "to_leaf" or "between".
func (m *Metrics) ObservePathQuery(ctx context.Context, kind string, duration time.Duration, truncated bool, err error) {
	if m == nil {
		return
	}
	status := statusOf(err)
	if err == nil && truncated {
		status = "truncated"
	}
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	)
	m.PathQueriesTotal.Add(ctx, 1, attrs)
	m.PathQueryDuration.Record(ctx, duration.Seconds(), attrs)
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
