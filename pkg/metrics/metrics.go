// Package metrics provides the centralized Prometheus metrics registry for
// the transitlambda pipeline. All metrics are defined in their respective
// packages (client, ratelimit, fetch, lookup, pipeline) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the pipeline.
// All metrics are automatically registered via promauto in their respective
// packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - transit_rate_limit_admissions_total (Counter): Requests admitted
//   - transit_rate_limit_wait_seconds (Histogram): Time queued before admission
//   - transit_rate_limit_queue_depth (Gauge): Requests currently queued
//
// Request Metrics (pkg/client):
//   - transit_api_requests_total{resource, status} (Counter): Requests by resource and HTTP status
//   - transit_api_request_duration_seconds{resource} (Histogram): Request duration by resource
//   - transit_api_errors_total{class} (Counter): Errors by class (client, server, network, cancelled)
//
// Pagination Metrics (pkg/fetch):
//   - transit_pages_fetched_total{resource} (Counter): Pages fetched by resource
//
// Lookup Metrics (pkg/lookup):
//   - transit_lookup_hits_total{table} (Counter): Lookup table hits
//   - transit_lookup_misses_total{table} (Counter): Lookup table misses
//
// Pipeline Metrics (pkg/pipeline):
//   - transit_pipeline_duration_seconds (Histogram): End-to-end run duration
//   - transit_pipeline_legs_returned (Histogram): Trip legs returned per run
//   - transit_pipeline_empty_total{stage} (Counter): Runs resolving nothing, by stage
