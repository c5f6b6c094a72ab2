package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for compliance runs.
type Metrics struct {
	// Runs by outcome: completed, failed, refused
	Runs *prometheus.CounterVec

	RunDuration prometheus.Histogram

	// Document classifications by state
	Documents *prometheus.CounterVec

	// Notifications by kind (reminder, blocked, digest) and result (sent, failed)
	Notifications *prometheus.CounterVec

	// Status transitions by result: applied, skipped, failed
	Transitions *prometheus.CounterVec

	SLABreaches prometheus.Gauge

	LastSuccess prometheus.Gauge
}

// New registers the compliance metrics with reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorwatch_compliance_runs_total",
			Help: "Compliance runs by outcome",
		}, []string{"outcome"}),

		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vendorwatch_compliance_run_duration_seconds",
			Help:    "Wall time of a compliance run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		Documents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorwatch_compliance_documents_total",
			Help: "Mandatory documents evaluated, by classification",
		}, []string{"state"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorwatch_compliance_notifications_total",
			Help: "Notifications attempted by kind and result",
		}, []string{"kind", "result"}),

		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorwatch_compliance_transitions_total",
			Help: "Automated vendor status transitions by result",
		}, []string{"result"}),

		SLABreaches: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vendorwatch_compliance_sla_breaches",
			Help: "Vendors waiting past the review SLA at the last run",
		}),

		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vendorwatch_compliance_last_success_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
	}
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementRefused() {
	if m != nil {
		m.Runs.WithLabelValues("refused").Inc()
	}
}

func (m *Metrics) IncrementDocument(state string) {
	if m != nil {
		m.Documents.WithLabelValues(state).Inc()
	}
}

func (m *Metrics) IncrementNotification(kind string, sent bool) {
	if m != nil {
		result := "sent"
		if !sent {
			result = "failed"
		}
		m.Notifications.WithLabelValues(kind, result).Inc()
	}
}

func (m *Metrics) IncrementTransition(result string) {
	if m != nil {
		m.Transitions.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) SetSLABreaches(n int) {
	if m != nil {
		m.SLABreaches.Set(float64(n))
	}
}

func (m *Metrics) MarkSuccess(at time.Time) {
	if m != nil {
		m.LastSuccess.Set(float64(at.Unix()))
	}
}
