package runtime

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ConversionMetrics holds the Prometheus collectors of the converter handler.
type ConversionMetrics struct {
	mu         sync.Mutex
	registerer prometheus.Registerer
	registered bool

	envelopesTotal *prometheus.CounterVec
	rowsTotal      *prometheus.CounterVec
	rowsPerMessage *prometheus.HistogramVec
}

func newConversionCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "csvflow",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewConversionMetrics builds the collectors; a nil registerer means the
// Prometheus default registerer.
func NewConversionMetrics(registerer prometheus.Registerer) *ConversionMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &ConversionMetrics{
		registerer:     registerer,
		envelopesTotal: newConversionCounterVec("envelopes_total", "Envelopes handled by the converter, by outcome", []string{"topic", "outcome"}),
		rowsTotal:      newConversionCounterVec("rows_converted_total", "CSV rows converted into records", []string{"topic"}),
		rowsPerMessage: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "csvflow",
			Name:      "rows_per_envelope",
			Help:      "CSV rows per converted envelope",
			Buckets:   []float64{1, 2, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"topic"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *ConversionMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.envelopesTotal, m.rowsTotal, m.rowsPerMessage} {
		if err := m.registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

// RecordConverted counts a successful conversion.
func (m *ConversionMetrics) RecordConverted(topic string, rows int) {
	if m == nil {
		return
	}
	m.envelopesTotal.WithLabelValues(topic, "converted").Inc()
	m.rowsTotal.WithLabelValues(topic).Add(float64(rows))
	m.rowsPerMessage.WithLabelValues(topic).Observe(float64(rows))
}

// RecordFailed counts a failed conversion; category is an ErrorCategory.
func (m *ConversionMetrics) RecordFailed(topic string, category ErrorCategory) {
	if m == nil {
		return
	}
	m.envelopesTotal.WithLabelValues(topic, string(category)).Inc()
}
