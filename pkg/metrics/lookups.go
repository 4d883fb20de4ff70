package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LookupMetrics tracks entitlement decisions and webhook processing.
type LookupMetrics struct {
	decisions *prometheus.CounterVec
	recorded  prometheus.Counter
	webhooks  *prometheus.CounterVec
}

// NewLookupMetrics registers the lookup metrics on the provided registerer.
func NewLookupMetrics(reg prometheus.Registerer) *LookupMetrics {
	if reg == nil {
		return &LookupMetrics{}
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lookup_decisions_total",
		Help: "Entitlement gate decisions by outcome.",
	}, []string{"outcome"})
	recorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lookup_usage_recorded_total",
		Help: "Usage ledger appends after successful lookups.",
	})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Processed billing webhook events by type.",
	}, []string{"event_type"})
	reg.MustRegister(decisions, recorded, webhooks)
	return &LookupMetrics{
		decisions: decisions,
		recorded:  recorded,
		webhooks:  webhooks,
	}
}

// IncDecision counts one gate decision ("allow" or "deny").
func (m *LookupMetrics) IncDecision(outcome string) {
	if m == nil || m.decisions == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.decisions.WithLabelValues(outcome).Inc()
}

// IncRecorded counts one usage ledger append.
func (m *LookupMetrics) IncRecorded() {
	if m == nil || m.recorded == nil {
		return
	}
	m.recorded.Inc()
}

// IncWebhookEvent counts one processed billing event.
func (m *LookupMetrics) IncWebhookEvent(eventType string) {
	if m == nil || m.webhooks == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhooks.WithLabelValues(eventType).Inc()
}
