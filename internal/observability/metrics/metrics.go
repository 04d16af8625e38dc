package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the complaint intake flow.
type IntakeMetrics struct {
	stageTotal      *prometheus.CounterVec
	stageLatency    *prometheus.HistogramVec
	verdictTotal    *prometheus.CounterVec
	generationTotal *prometheus.CounterVec
	capabilityTotal *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	deliveryTotal   *prometheus.CounterVec
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nagrik",
			Subsystem: "intake",
			Name:      "stage_total",
			Help:      "Pipeline stage executions by outcome",
		}, []string{"stage", "outcome"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nagrik",
			Subsystem: "intake",
			Name:      "stage_latency_seconds",
			Help:      "Latency of pipeline stages",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		verdictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nagrik",
			Subsystem: "intake",
			Name:      "image_verdict_total",
			Help:      "Image verdicts by status and issue type",
		}, []string{"status", "issue_type"}),
		generationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nagrik",
			Subsystem: "intake",
			Name:      "generation_total",
			Help:      "Complaint letters by source (generated or fallback)",
		}, []string{"kind"}),
		capabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nagrik",
			Subsystem: "capability",
			Name:      "calls_total",
			Help:      "External capability calls by outcome",
		}, []string{"capability", "outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "nagrik",
			Subsystem: "capability",
			Name:      "breaker_open",
			Help:      "1 when the capability circuit breaker is open",
		}, []string{"capability"}),
		deliveryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nagrik",
			Subsystem: "events",
			Name:      "delivery_total",
			Help:      "Outbox deliveries by event type and status",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.stageTotal,
		m.stageLatency,
		m.verdictTotal,
		m.generationTotal,
		m.capabilityTotal,
		m.breakerState,
		m.deliveryTotal,
	)
	return m
}

func (m *IntakeMetrics) ObserveStage(stage, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.stageTotal.WithLabelValues(stage, outcome).Inc()
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *IntakeMetrics) ObserveVerdict(status, issueType string) {
	if m == nil {
		return
	}
	m.verdictTotal.WithLabelValues(status, issueType).Inc()
}

func (m *IntakeMetrics) ObserveGeneration(kind string) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(kind).Inc()
}

func (m *IntakeMetrics) ObserveCapability(capability, outcome string) {
	if m == nil {
		return
	}
	m.capabilityTotal.WithLabelValues(capability, outcome).Inc()
}

// SetBreakerOpen records the breaker state for a capability.
func (m *IntakeMetrics) SetBreakerOpen(capability string, open bool) {
	if m == nil {
		return
	}
	v := 0.0
	if open {
		v = 1
	}
	m.breakerState.WithLabelValues(capability).Set(v)
}

func (m *IntakeMetrics) ObserveDelivery(eventType, status string) {
	if m == nil {
		return
	}
	m.deliveryTotal.WithLabelValues(eventType, status).Inc()
}
