package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

type Metrics struct {
	Requests *prometheus.HistogramVec
	Breakers *prometheus.GaugeVec
	Fallback *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agrimonitor", Subsystem: "gateway",
			Name: "request_duration_seconds", Help: "Latency of gateway HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "code"}),
		Breakers: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agrimonitor", Subsystem: "gateway",
			Name: "breaker_state", Help: "Circuit breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"upstream"}),
		Fallback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "gateway",
			Name: "fallback_total", Help: "Responses served from a fallback, by upstream.",
		}, []string{"upstream"}),
	}
}

func (m *Metrics) breakerChanged(name string, to gobreaker.State) {
	if m != nil {
		m.Breakers.WithLabelValues(name).Set(stateValue(to))
	}
}

func (m *Metrics) fallback(upstream string) {
	if m != nil {
		m.Fallback.WithLabelValues(upstream).Inc()
	}
}
