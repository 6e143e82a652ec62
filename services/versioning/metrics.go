// Copyright (C) 2025 StackCanvas (oss@stackcanvas.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package versioning

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for versioning operations.
var (
	tracer = otel.Tracer("stackcanvas.versioning")
	meter  = otel.Meter("stackcanvas.versioning")
)

// Metrics for versioning operations.
var (
	operationLatency metric.Float64Histogram
	commitTotal      metric.Int64Counter
	casRetryTotal    metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		operationLatency, err = meter.Float64Histogram(
			"versioning_operation_duration_seconds",
			metric.WithDescription("Duration of versioning engine operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		commitTotal, err = meter.Int64Counter(
			"versioning_commits_total",
			metric.WithDescription("Total number of versions committed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		casRetryTotal, err = meter.Int64Counter(
			"versioning_cas_retries_total",
			metric.WithDescription("Total number of compare-and-swap retries"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startOperationSpan creates a span for an engine operation.
func startOperationSpan(ctx context.Context, operation, appID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "versioning.Service."+operation,
		trace.WithAttributes(
			attribute.String("versioning.operation", operation),
			attribute.String("versioning.app_id", appID),
		),
	)
}

// recordOperationMetrics records latency and outcome for an operation.
func recordOperationMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	if initMetrics() != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	)
	operationLatency.Record(ctx, duration.Seconds(), attrs)
}

// recordCommit counts one committed version.
func recordCommit(ctx context.Context, merge bool) {
	if initMetrics() != nil {
		return
	}
	commitTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("merge", merge),
	))
}

// recordCASRetry counts one lost compare-and-swap race.
func recordCASRetry(ctx context.Context, operation string) {
	if initMetrics() != nil {
		return
	}
	casRetryTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
