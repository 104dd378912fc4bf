// Package metrics содержит Prometheus-метрики конвейера разбора.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DecoderMetrics - счётчики обработки записей захвата.
//
// Метрики:
// * sniff_records_total{opcode,result} - counter (decoded/skipped/failed)
// * sniff_record_bytes_total - counter
// * sniff_record_duration_seconds{opcode} - histogram
// * sniff_entities - gauge
type DecoderMetrics struct {
	records  *prometheus.CounterVec
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
	entities prometheus.Gauge
}

// Результаты обработки записи
const (
	ResultDecoded = "decoded"
	ResultSkipped = "skipped"
	ResultFailed  = "failed"
)

// NewDecoderMetrics создаёт метрики и регистрирует их в reg.
// nil означает регистр Prometheus по умолчанию.
func NewDecoderMetrics(reg prometheus.Registerer) *DecoderMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &DecoderMetrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sniff",
			Name:      "records_total",
			Help:      "Число обработанных записей захвата по результату.",
		}, []string{"opcode", "result"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sniff",
			Name:      "record_bytes_total",
			Help:      "Суммарный размер полезной нагрузки записей.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sniff",
			Name:      "record_duration_seconds",
			Help:      "Время разбора одной записи.",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"opcode"}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sniff",
			Name:      "entities",
			Help:      "Количество объектов в хранилище.",
		}),
	}

	reg.MustRegister(m.records, m.bytes, m.duration, m.entities)
	return m
}

// ObserveRecord учитывает одну запись
func (m *DecoderMetrics) ObserveRecord(opcode, result string, size int, took time.Duration) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(opcode, result).Inc()
	m.bytes.Add(float64(size))
	m.duration.WithLabelValues(opcode).Observe(took.Seconds())
}

// SetEntities обновляет число объектов
func (m *DecoderMetrics) SetEntities(n int) {
	if m == nil {
		return
	}
	m.entities.Set(float64(n))
}
