/*
 * Copyright 2024 The wmsclient Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics implements prometheus metrics and exposes the metrics HTTP handler
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricNamespace  = "wmsclient"
	cacheSubsystem   = "cache"
	offlineSubsystem = "offline"
	tokenSubsystem   = "token"
	networkSubsystem = "network"
	buildSubsystem   = "build"
)

// BuildInfo is a Gauge representing the binary build information of the running process
var BuildInfo *prometheus.GaugeVec

// CacheOperations is a Counter of operations performed on a named cache, partitioned by outcome
var CacheOperations *prometheus.CounterVec

// CacheAdaptiveExpiry is a Histogram of computed adaptive expiry durations in seconds
var CacheAdaptiveExpiry prometheus.Histogram

// OfflineQueueSize is a Gauge of operations pending replay in the offline queue
var OfflineQueueSize prometheus.Gauge

// OfflineQueueEvictions is a Counter of operations evicted from a full offline queue
var OfflineQueueEvictions prometheus.Counter

// OfflineSyncOperations is a Counter of replayed offline operations by result (success, retry, dropped)
var OfflineSyncOperations *prometheus.CounterVec

// OfflineRequests is a Counter of offline-aware requests by mode (online, offline) and result
var OfflineRequests *prometheus.CounterVec

// TokenRefreshes is a Counter of access token refresh attempts by result
var TokenRefreshes *prometheus.CounterVec

// NetworkOnline is a Gauge set to 1 while the network boundary is reachable
var NetworkOnline prometheus.Gauge

// NetworkRequestDuration is a Histogram of network boundary request durations in seconds
var NetworkRequestDuration *prometheus.HistogramVec

var defaultBuckets = []float64{0.05, 0.1, 0.5, 1, 5, 10, 20}

func init() {

	BuildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: buildSubsystem,
			Name:      "info",
			Help:      "A metric with a constant '1' value labeled by version and goversion.",
		},
		[]string{"goversion", "version"},
	)

	CacheOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "operations_total",
			Help:      "Count of operations performed on a cache.",
		},
		[]string{"cache", "operation", "status"},
	)

	CacheAdaptiveExpiry = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: cacheSubsystem,
			Name:      "adaptive_expiry_seconds",
			Help:      "Adaptive expiry durations computed by the smart cache.",
			Buckets:   []float64{30, 60, 300, 600, 1200, 1800, 3600},
		},
	)

	OfflineQueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: offlineSubsystem,
			Name:      "queue_size",
			Help:      "Number of operations waiting in the offline queue.",
		},
	)

	OfflineQueueEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: offlineSubsystem,
			Name:      "queue_evictions_total",
			Help:      "Count of operations evicted from a full offline queue.",
		},
	)

	OfflineSyncOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: offlineSubsystem,
			Name:      "sync_operations_total",
			Help:      "Count of offline operations replayed, by result.",
		},
		[]string{"kind", "result"},
	)

	OfflineRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: offlineSubsystem,
			Name:      "requests_total",
			Help:      "Count of offline-aware requests, by connection mode and result.",
		},
		[]string{"mode", "method", "result"},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Subsystem: tokenSubsystem,
			Name:      "refreshes_total",
			Help:      "Count of access token refresh attempts, by result.",
		},
		[]string{"result"},
	)

	NetworkOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricNamespace,
			Subsystem: networkSubsystem,
			Name:      "online",
			Help:      "1 while the network boundary is reachable, otherwise 0.",
		},
	)

	NetworkRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Subsystem: networkSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time required in seconds to complete a network boundary request.",
			Buckets:   defaultBuckets,
		},
		[]string{"method", "status"},
	)

	prometheus.MustRegister(BuildInfo)
	prometheus.MustRegister(CacheOperations)
	prometheus.MustRegister(CacheAdaptiveExpiry)
	prometheus.MustRegister(OfflineQueueSize)
	prometheus.MustRegister(OfflineQueueEvictions)
	prometheus.MustRegister(OfflineSyncOperations)
	prometheus.MustRegister(OfflineRequests)
	prometheus.MustRegister(TokenRefreshes)
	prometheus.MustRegister(NetworkOnline)
	prometheus.MustRegister(NetworkRequestDuration)
}

// Handler returns the http handler for the listener
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCacheOperation increments the cache operation counter
func ObserveCacheOperation(cacheName, operation, status string) {
	CacheOperations.WithLabelValues(cacheName, operation, status).Inc()
}
