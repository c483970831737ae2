package advisory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/LeonardoBeccarini/agrimonitor/internal/model/messages"
)

// Metrics counts what the service evaluates.
type Metrics struct {
	Readings   prometheus.Counter
	Invalid    prometheus.Counter
	Duplicates prometheus.Counter
	Alerts     *prometheus.CounterVec
	Advisories *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Readings: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "advisory",
			Name: "readings_evaluated_total", Help: "Readings evaluated by the decision engine.",
		}),
		Invalid: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "advisory",
			Name: "readings_invalid_total", Help: "Payloads rejected as invalid input.",
		}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "advisory",
			Name: "readings_duplicate_total", Help: "Redelivered payloads dropped by dedup.",
		}),
		Alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "advisory",
			Name: "alerts_total", Help: "Alerts raised, by code.",
		}, []string{"code"}),
		Advisories: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agrimonitor", Subsystem: "advisory",
			Name: "advisories_total", Help: "Advisory outcomes, by kind and severity (or error).",
		}, []string{"kind", "severity"}),
	}
}

func (m *Metrics) observe(ev Evaluation) {
	if m == nil {
		return
	}
	m.Readings.Inc()
	for _, a := range ev.Alerts {
		m.Alerts.WithLabelValues(a.Code).Inc()
	}
	for kind, res := range map[string]messages.AdvisoryResult{
		"irrigation":      ev.Irrigation,
		"fertilizer":      ev.Fertilizer,
		"crop_suggestion": ev.CropSuggestion,
	} {
		sev := "error"
		if res.Severity != nil {
			sev = res.Severity.String()
		}
		m.Advisories.WithLabelValues(kind, sev).Inc()
	}
}

func (m *Metrics) invalid() {
	if m != nil {
		m.Invalid.Inc()
	}
}

func (m *Metrics) duplicate() {
	if m != nil {
		m.Duplicates.Inc()
	}
}
