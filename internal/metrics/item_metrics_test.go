package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	metric := &dto.Metric{}
	if err := vec.WithLabelValues(labels...).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewItemMetrics(t *testing.T) {
	metrics := NewItemMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewItemMetricsWithRegisterer should not return nil")
	}
	if metrics.operations == nil {
		t.Error("operations counter should not be nil")
	}
	if metrics.opDuration == nil {
		t.Error("opDuration histogram vec should not be nil")
	}
	if metrics.batchSize == nil {
		t.Error("batchSize histogram vec should not be nil")
	}
	if metrics.events == nil {
		t.Error("events counter should not be nil")
	}
	if metrics.activeCalls == nil {
		t.Error("activeCalls gauge should not be nil")
	}
}

func TestNewItemMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewItemMetricsWithRegisterer(reg)
	second := NewItemMetricsWithRegisterer(reg)

	first.RecordOperation("create", OutcomeOK, time.Millisecond)
	second.RecordOperation("create", OutcomeOK, time.Millisecond)

	if got := counterValue(t, first.operations, "create", OutcomeOK); got != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", got)
	}
}

func TestRecordOperation(t *testing.T) {
	metrics := NewItemMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOperation("update", OutcomeVersionConflict, 5*time.Millisecond)
	metrics.RecordOperation("update", OutcomeOK, 5*time.Millisecond)
	metrics.RecordOperation("update", OutcomeOK, 5*time.Millisecond)

	if got := counterValue(t, metrics.operations, "update", OutcomeOK); got != 2.0 {
		t.Errorf("expected ok counter 2.0, got %f", got)
	}
	if got := counterValue(t, metrics.operations, "update", OutcomeVersionConflict); got != 1.0 {
		t.Errorf("expected version_conflict counter 1.0, got %f", got)
	}

	metric := &dto.Metric{}
	observer := metrics.opDuration.WithLabelValues("update").(prometheus.Histogram)
	if err := observer.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 duration samples, got %d", metric.Histogram.GetSampleCount())
	}
}

func TestRecordBatchSize(t *testing.T) {
	metrics := NewItemMetricsWithRegisterer(prometheus.NewRegistry())
	metrics.RecordBatchSize("create", 3)
	metrics.RecordBatchSize("create", 7)

	metric := &dto.Metric{}
	if err := metrics.batchSize.WithLabelValues("create").(prometheus.Histogram).Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleSum() != 10 {
		t.Errorf("expected sample sum 10, got %f", metric.Histogram.GetSampleSum())
	}
}

func TestRecordEvent(t *testing.T) {
	metrics := NewItemMetricsWithRegisterer(prometheus.NewRegistry())
	metrics.RecordEvent("item.created", nil)
	metrics.RecordEvent("item.created", errors.New("broker down"))

	if got := counterValue(t, metrics.events, "item.created", OutcomeOK); got != 1.0 {
		t.Errorf("expected ok events 1.0, got %f", got)
	}
	if got := counterValue(t, metrics.events, "item.created", OutcomeError); got != 1.0 {
		t.Errorf("expected failed events 1.0, got %f", got)
	}
}

func TestOperationsInFlight(t *testing.T) {
	metrics := NewItemMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.OperationStarted()
	metrics.OperationStarted()
	metrics.OperationFinished()

	gaugeMetric := &dto.Metric{}
	if err := metrics.activeCalls.Write(gaugeMetric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if gaugeMetric.Gauge.GetValue() != 1.0 {
		t.Errorf("expected in-flight 1.0, got %f", gaugeMetric.Gauge.GetValue())
	}
}

func TestRegister_ConflictingTypePanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "item_operations_total",
		Help:      "Total number of item operations by outcome",
	}))

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for collector registered with another type")
		}
	}()
	NewItemMetricsWithRegisterer(registry)
}
