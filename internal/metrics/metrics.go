// Package metrics holds the prometheus collectors for the chat pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Inference outcomes.
const (
	InferenceSuccess   = "success"
	InferenceFallback  = "fallback"
	InferenceSimulated = "simulated"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	Sends             *prometheus.CounterVec
	MessagesPersisted *prometheus.CounterVec
	Inference         *prometheus.CounterVec
	InferenceDuration prometheus.Histogram
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Sends: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelchat",
			Name:      "sends_total",
			Help:      "Send pipeline runs by final outcome.",
		}, []string{"outcome"}),
		MessagesPersisted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelchat",
			Name:      "messages_persisted_total",
			Help:      "Messages appended to the conversation store by role.",
		}, []string{"role"}),
		Inference: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelchat",
			Name:      "responses_total",
			Help:      "Generated responses by source.",
		}, []string{"outcome"}),
		InferenceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "modelchat",
			Name:      "inference_duration_seconds",
			Help:      "Latency of remote inference calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "modelchat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "modelchat",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveSend(outcome string) {
	if m == nil {
		return
	}
	m.Sends.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObservePersisted(role string) {
	if m == nil {
		return
	}
	m.MessagesPersisted.WithLabelValues(role).Inc()
}

func (m *Metrics) ObserveResponse(outcome string) {
	if m == nil {
		return
	}
	m.Inference.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveInference(d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
