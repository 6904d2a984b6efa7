// internal/transaction/metrics.go
package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики конвейера отправки.
type Metrics struct {
	broadcasts        *prometheus.CounterVec
	outcomes          *prometheus.CounterVec
	durationHistogram prometheus.Histogram
}

// NewMetrics создаёт метрики и регистрирует их в reg. При nil reg метрики
// считаются, но никуда не экспортируются.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serum_sender_broadcasts_total",
			Help: "Total number of raw transaction broadcasts",
		}, []string{"kind", "status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "serum_sender_outcomes_total",
			Help: "Terminal outcomes of transaction submissions",
		}, []string{"outcome"}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "serum_sender_confirmation_duration_seconds",
			Help:    "Time from submission to terminal outcome",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.broadcasts, m.outcomes, m.durationHistogram)
	}
	return m
}

// TrackBroadcast учитывает одну отправку; kind - "initial" или "resend".
func (m *Metrics) TrackBroadcast(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.broadcasts.WithLabelValues(kind, status).Inc()
}

// TrackOutcome учитывает терминальный результат и время ожидания.
func (m *Metrics) TrackOutcome(kind OutcomeKind, start time.Time) {
	m.outcomes.WithLabelValues(kind.String()).Inc()
	m.durationHistogram.Observe(time.Since(start).Seconds())
}
