// Package metrics provides Prometheus metrics for CodeTree
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for CodeTree
type Metrics struct {
	// gRPC request metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Hierarchy build metrics
	BuildsTotal      *prometheus.CounterVec
	BuildDuration    prometheus.Histogram
	HierarchyNodes   prometheus.Histogram
	ProviderRequests *prometheus.CounterVec

	// Engine metrics
	StatusUpdatesTotal   prometheus.Counter
	DefinitionRulesTotal prometheus.Counter

	// Server metrics
	ServerUptimeSeconds prometheus.GaugeFunc
	ServerStartTime     time.Time
}

// NewMetrics creates all metrics and registers them on reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
	}

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetree_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codetree_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "codetree_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.BuildsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetree_hierarchy_builds_total",
			Help: "Total number of hierarchy builds",
		},
		[]string{"status"},
	)

	m.BuildDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetree_hierarchy_build_duration_seconds",
			Help:    "Duration of hierarchy builds in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.HierarchyNodes = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codetree_hierarchy_nodes",
			Help:    "Number of codes in each built hierarchy",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	m.ProviderRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codetree_provider_requests_total",
			Help: "Total number of coding system provider calls",
		},
		[]string{"method", "status"},
	)

	m.StatusUpdatesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "codetree_status_updates_total",
			Help: "Total number of status updates applied",
		},
	)

	m.DefinitionRulesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "codetree_definition_rules_total",
			Help: "Total number of rules emitted by definition compression",
		},
	)

	m.ServerUptimeSeconds = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "codetree_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
		func() float64 { return time.Since(m.ServerStartTime).Seconds() },
	)

	return m
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBuild records a hierarchy build and the size of the result
func (m *Metrics) RecordBuild(nodes int, duration time.Duration, err error) {
	if err != nil {
		m.BuildsTotal.WithLabelValues("error").Inc()
		return
	}
	m.BuildsTotal.WithLabelValues("ok").Inc()
	m.BuildDuration.Observe(duration.Seconds())
	m.HierarchyNodes.Observe(float64(nodes))
}

// RecordProviderRequest counts one provider call
func (m *Metrics) RecordProviderRequest(method string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProviderRequests.WithLabelValues(method, status).Inc()
}
