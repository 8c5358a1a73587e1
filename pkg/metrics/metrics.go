/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics defines the metrics recorded by the ledger client and the
// HTTP server. Metrics are expressed with go-kit interfaces and backed by a
// Prometheus registry, or discarded.
package metrics

import (
	"net/http"

	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docsecrets"

var (
	queriesReceived = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "queries_received",
		Help:      "The number of ledger queries received.",
	}
	queriesFailed = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "queries_failed",
		Help:      "The number of ledger queries that failed (timeouts excluded).",
	}
	queryTimeouts = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "query_timeouts",
		Help:      "The number of ledger queries that have failed due to time out.",
	}
	queryDuration = prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "query_duration",
		Help:      "The time to complete a ledger query.",
		Buckets:   prometheus.DefBuckets,
	}
	executionsReceived = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "executions_received",
		Help:      "The number of ledger transactions submitted.",
	}
	executionsFailed = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "executions_failed",
		Help:      "The number of submitted transactions that failed (timeouts excluded).",
	}
	executionTimeouts = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "execution_timeouts",
		Help:      "The number of submitted transactions whose outcome is unknown due to time out.",
	}
	executionDuration = prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "execution_duration",
		Help:      "The time to complete a submitted transaction.",
		Buckets:   prometheus.DefBuckets,
	}

	requestsReceived = prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_received",
		Help:      "The number of HTTP requests received.",
	}
	requestDuration = prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration",
		Help:      "The time to serve an HTTP request.",
		Buckets:   prometheus.DefBuckets,
	}
)

var (
	callLabels   = []string{"contract", "fcn"}
	failLabels   = []string{"contract", "fcn", "fail"}
	routeLabels  = []string{"route", "code"}
	timingLabels = []string{"route"}
)

// ClientMetrics contains the metrics used by the ledger client
type ClientMetrics struct {
	QueriesReceived    kitmetrics.Counter
	QueriesFailed      kitmetrics.Counter
	QueryDuration      kitmetrics.Histogram
	QueryTimeouts      kitmetrics.Counter
	ExecutionsReceived kitmetrics.Counter
	ExecutionsFailed   kitmetrics.Counter
	ExecutionDuration  kitmetrics.Histogram
	ExecutionTimeouts  kitmetrics.Counter
}

// ServerMetrics contains the metrics used by the HTTP server
type ServerMetrics struct {
	RequestsReceived kitmetrics.Counter
	RequestDuration  kitmetrics.Histogram
}

// Provider builds metrics registered with a Prometheus registry.
type Provider struct {
	registry *prometheus.Registry
}

// NewProvider returns a provider with its own registry.
func NewProvider() *Provider {
	return &Provider{registry: prometheus.NewRegistry()}
}

// Handler serves the provider's registry in the Prometheus text format.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Provider) counter(opts prometheus.CounterOpts, labels []string) kitmetrics.Counter {
	cv := prometheus.NewCounterVec(opts, labels)
	p.registry.MustRegister(cv)
	return kitprometheus.NewCounter(cv)
}

func (p *Provider) histogram(opts prometheus.HistogramOpts, labels []string) kitmetrics.Histogram {
	hv := prometheus.NewHistogramVec(opts, labels)
	p.registry.MustRegister(hv)
	return kitprometheus.NewHistogram(hv)
}

// NewClientMetrics builds a new instance of ClientMetrics. It must be called
// at most once per provider.
func (p *Provider) NewClientMetrics() *ClientMetrics {
	return &ClientMetrics{
		QueriesReceived:    p.counter(queriesReceived, callLabels),
		QueriesFailed:      p.counter(queriesFailed, failLabels),
		QueryDuration:      p.histogram(queryDuration, callLabels),
		QueryTimeouts:      p.counter(queryTimeouts, callLabels),
		ExecutionsReceived: p.counter(executionsReceived, callLabels),
		ExecutionsFailed:   p.counter(executionsFailed, failLabels),
		ExecutionDuration:  p.histogram(executionDuration, callLabels),
		ExecutionTimeouts:  p.counter(executionTimeouts, callLabels),
	}
}

// NewServerMetrics builds a new instance of ServerMetrics. It must be called
// at most once per provider.
func (p *Provider) NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		RequestsReceived: p.counter(requestsReceived, routeLabels),
		RequestDuration:  p.histogram(requestDuration, timingLabels),
	}
}

// NewDiscardClientMetrics returns client metrics that record nothing.
func NewDiscardClientMetrics() *ClientMetrics {
	return &ClientMetrics{
		QueriesReceived:    discard.NewCounter(),
		QueriesFailed:      discard.NewCounter(),
		QueryDuration:      discard.NewHistogram(),
		QueryTimeouts:      discard.NewCounter(),
		ExecutionsReceived: discard.NewCounter(),
		ExecutionsFailed:   discard.NewCounter(),
		ExecutionDuration:  discard.NewHistogram(),
		ExecutionTimeouts:  discard.NewCounter(),
	}
}

// NewDiscardServerMetrics returns server metrics that record nothing.
func NewDiscardServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		RequestsReceived: discard.NewCounter(),
		RequestDuration:  discard.NewHistogram(),
	}
}
