package access

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/accessgate/pkg/quota"
)

const (
	// OutcomeAllowed labels admitted calls; denials use the reason string.
	OutcomeAllowed = "allowed"
	// OtherAPI is the api label of calls that never passed the permission
	// check. Their API name is caller input and would grow the series set.
	OtherAPI = "other"
)

// Metrics counts admission decisions. A nil *Metrics records nothing.
type Metrics struct {
	decisions *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// NewMetrics creates and registers the decision collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "accessgate",
			Name:      "decisions_total",
			Help:      "Admission decisions by API and outcome.",
		}, []string{"api", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "accessgate",
			Name:      "decision_duration_seconds",
			Help:      "Time spent deciding, including the usage store round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.decisions, m.latency)
	return m
}

// Outcome returns the metric label for d.
func Outcome(d quota.Decision) string {
	if d.Allowed {
		return OutcomeAllowed
	}
	return d.Reason.String()
}

// APILabel returns the api label for d. Only names granted by a plan, those
// of allowed or limit_exceeded decisions, are kept.
func APILabel(d quota.Decision) string {
	if d.Allowed || d.Reason == quota.ReasonLimitExceeded {
		return d.APIName
	}
	return OtherAPI
}

func (m *Metrics) observe(d quota.Decision, took time.Duration) {
	if m == nil {
		return
	}
	outcome := Outcome(d)
	m.decisions.WithLabelValues(APILabel(d), outcome).Inc()
	m.latency.WithLabelValues(outcome).Observe(took.Seconds())
}
