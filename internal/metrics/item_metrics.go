package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label outcome.
const (
	OutcomeOK              = "ok"
	OutcomeConflict        = "conflict"
	OutcomeVersionConflict = "version_conflict"
	OutcomeUnknownTable    = "unknown_table"
	OutcomeUnknownItem     = "unknown_item"
	OutcomeError           = "error"
)

// ItemMetrics содержит метрики операций над позициями.
type ItemMetrics struct {
	// Операции над репозиторием
	operations  *prometheus.CounterVec
	opDuration  *prometheus.HistogramVec
	batchSize   *prometheus.HistogramVec
	events      *prometheus.CounterVec
	activeCalls prometheus.Gauge
}

// NewItemMetrics создаёт метрики в DefaultRegisterer.
func NewItemMetrics() *ItemMetrics {
	return NewItemMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewItemMetricsWithRegisterer создаёт метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewItemMetricsWithRegisterer(registerer prometheus.Registerer) *ItemMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &ItemMetrics{
		operations: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_operations_total",
			Help:      "Total number of item operations by outcome",
		}, []string{"op", "outcome"})),
		opDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_operation_duration_seconds",
			Help:      "Duration of item operations in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"op"})),
		batchSize: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "item_batch_size",
			Help:      "Number of elements in batch requests",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}, []string{"op"})),
		events: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "item_events_total",
			Help:      "Total number of item events by publish result",
		}, []string{"type", "result"})),
		activeCalls: register(registerer, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "item_operations_in_flight",
			Help:      "Number of item operations currently executing",
		})),
	}
}

// RecordOperation учитывает завершённую операцию и её длительность.
func (m *ItemMetrics) RecordOperation(op, outcome string, duration time.Duration) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.opDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordBatchSize записывает размер пакетного запроса.
func (m *ItemMetrics) RecordBatchSize(op string, size int) {
	m.batchSize.WithLabelValues(op).Observe(float64(size))
}

// RecordEvent учитывает попытку публикации события.
func (m *ItemMetrics) RecordEvent(eventType string, err error) {
	result := OutcomeOK
	if err != nil {
		result = OutcomeError
	}
	m.events.WithLabelValues(eventType, result).Inc()
}

// OperationStarted увеличивает количество выполняющихся операций.
func (m *ItemMetrics) OperationStarted() {
	m.activeCalls.Inc()
}

// OperationFinished уменьшает количество выполняющихся операций.
func (m *ItemMetrics) OperationFinished() {
	m.activeCalls.Dec()
}
