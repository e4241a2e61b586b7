package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPipelineMetrics(reg)

	m.IncWebhookEvent("payment_intent.succeeded", "processed")
	m.IncWebhookEvent("payment_intent.succeeded", "processed")
	m.IncDeduction("success")
	m.IncDeductionRetry()

	if got := testutil.ToFloat64(m.webhookEvents.WithLabelValues("payment_intent.succeeded", "processed")); got != 2 {
		t.Fatalf("expected 2 webhook events, got %v", got)
	}
	if got := testutil.ToFloat64(m.deductionOutcomes.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 deduction, got %v", got)
	}
	if got := testutil.ToFloat64(m.deductionRetries); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestPipelineMetricsNilSafe(t *testing.T) {
	var m *PipelineMetrics
	m.IncWebhookEvent("x", "y")
	m.IncDeduction("z")
	m.IncDeductionRetry()
}
