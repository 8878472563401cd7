// Package metrics provides Prometheus metrics for the gateway and the
// periodic request-rate log line.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/cwgateway/internal/logger"
)

var metricsLogger = logger.GetForComponent("metrics")

// DefaultReportInterval is how often the request-rate line is logged.
const DefaultReportInterval = 5 * time.Minute

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequests counts handled HTTP requests by route and status code.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration tracks handler latency by route.
	HTTPDuration *prometheus.HistogramVec
	// ChainRequests counts calls to the node by method.
	ChainRequests *prometheus.CounterVec
	// ChainErrors counts failed node calls by method.
	ChainErrors *prometheus.CounterVec
	// Broadcasts counts signed transactions by result (committed, rejected, timeout).
	Broadcasts *prometheus.CounterVec

	window atomic.Int64
}

func New(network string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	labels := prometheus.Labels{"network": network}

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gateway_http_requests_total",
			Help:        "HTTP requests by route and status",
			ConstLabels: labels,
		}, []string{"route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "gateway_http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: labels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"route"}),
		ChainRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gateway_chain_requests_total",
			Help:        "Requests sent to the node by method",
			ConstLabels: labels,
		}, []string{"method"}),
		ChainErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gateway_chain_request_errors_total",
			Help:        "Failed node requests by method",
			ConstLabels: labels,
		}, []string{"method"}),
		Broadcasts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gateway_broadcasts_total",
			Help:        "Broadcast transactions by result",
			ConstLabels: labels,
		}, []string{"result"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) chainRequest(method string, err error) {
	m.window.Add(1)
	m.ChainRequests.WithLabelValues(method).Inc()
	if err != nil {
		m.ChainErrors.WithLabelValues(method).Inc()
	}
}

// TakeWindow returns and resets the number of node requests since the last call.
func (m *Metrics) TakeWindow() int64 {
	return m.window.Swap(0)
}

// Report logs "N request(s) sent in last S seconds" every interval until ctx ends.
func (m *Metrics) Report(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := m.TakeWindow()
			metricsLogger.Info().
				Int64("requests", n).
				Float64("seconds", interval.Seconds()).
				Msg(RateLine(n, interval))
		}
	}
}

// RateLine formats the periodic request-rate message.
func RateLine(n int64, interval time.Duration) string {
	return fmt.Sprintf("%d request(s) sent in last %d seconds.", n, int64(interval.Seconds()))
}
