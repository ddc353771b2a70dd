package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConciergeMetrics exposes counters/histograms for chat turns, guard
// interventions, model calls and lead notifications. A nil *ConciergeMetrics
// is a valid no-op.
type ConciergeMetrics struct {
	turnsTotal         *prometheus.CounterVec
	guardOverrides     *prometheus.CounterVec
	llmLatency         *prometheus.HistogramVec
	notificationsTotal *prometheus.CounterVec
	leadSubmissions    *prometheus.CounterVec
}

func NewConciergeMetrics(reg prometheus.Registerer) *ConciergeMetrics {
	m := &ConciergeMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wayloft",
			Subsystem: "concierge",
			Name:      "turns_total",
			Help:      "Chat turns by resulting stage and reply source",
		}, []string{"stage", "source"}),
		guardOverrides: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wayloft",
			Subsystem: "concierge",
			Name:      "guard_overrides_total",
			Help:      "Model proposals corrected by the guard, by rule",
		}, []string{"rule"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wayloft",
			Subsystem: "concierge",
			Name:      "llm_latency_seconds",
			Help:      "Latency of language model calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"status"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wayloft",
			Subsystem: "notify",
			Name:      "lead_notifications_total",
			Help:      "Advisor notifications by kind and outcome",
		}, []string{"kind", "status"}),
		leadSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wayloft",
			Subsystem: "leads",
			Name:      "form_submissions_total",
			Help:      "Trip request form submissions by outcome",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.guardOverrides, m.llmLatency, m.notificationsTotal, m.leadSubmissions)
	return m
}

func (m *ConciergeMetrics) ObserveTurn(stage, source string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage, source).Inc()
}

func (m *ConciergeMetrics) ObserveGuardOverride(rule string) {
	if m == nil {
		return
	}
	m.guardOverrides.WithLabelValues(rule).Inc()
}

func (m *ConciergeMetrics) ObserveLLMLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(status).Observe(seconds)
}

func (m *ConciergeMetrics) ObserveNotification(kind, status string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, status).Inc()
}

func (m *ConciergeMetrics) ObserveLeadSubmission(status string) {
	if m == nil {
		return
	}
	m.leadSubmissions.WithLabelValues(status).Inc()
}
