// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry wires OpenTelemetry tracing and metrics for wordcraft.
//
// Init installs the global TracerProvider and MeterProvider from a Config.
// Packages then use otel.Tracer() directly; the Metrics type holds the
// instruments for the crafting operations and satisfies the observer
// interfaces of the store, lifecycle and generate packages.
//
// # Trace Backend (default: none)
//
// Traces go to an OTLP gRPC collector ("otlp") or stdout ("stdout").
//
// # Metrics Backend (default: Prometheus)
//
// The Prometheus exporter registers on its own registry, served by
// MetricsHandler at /metrics.
//
// # Environment Variables
//
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - WORDCRAFT_ENV: environment name (default: development)
package telemetry
