package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records checkout-to-fulfillment pipeline outcomes.
type PipelineMetrics struct {
	webhookEvents     *prometheus.CounterVec
	deductionOutcomes *prometheus.CounterVec
	deductionRetries  prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Inbound payment webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	deductionOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_deductions_total",
		Help: "Inventory deduction attempts by outcome.",
	}, []string{"outcome"})
	deductionRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "inventory_deduction_retries_total",
		Help: "Optimistic-concurrency retries during inventory deduction.",
	})
	reg.MustRegister(webhookEvents, deductionOutcomes, deductionRetries)
	return &PipelineMetrics{
		webhookEvents:     webhookEvents,
		deductionOutcomes: deductionOutcomes,
		deductionRetries:  deductionRetries,
	}
}

// IncWebhookEvent counts one inbound webhook event.
func (m *PipelineMetrics) IncWebhookEvent(eventType, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// IncDeduction counts one finished deduction with its outcome.
func (m *PipelineMetrics) IncDeduction(outcome string) {
	if m == nil || m.deductionOutcomes == nil {
		return
	}
	m.deductionOutcomes.WithLabelValues(outcome).Inc()
}

// IncDeductionRetry counts one lost-race retry.
func (m *PipelineMetrics) IncDeductionRetry() {
	if m == nil || m.deductionRetries == nil {
		return
	}
	m.deductionRetries.Inc()
}
