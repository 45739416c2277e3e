// Package metrics exports intake outcome counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"kiccms/internal/ports"
)

const namespace = "kiccms"

const (
	MetricSubmissions     = "submissions_total"
	MetricSnapshotFetches = "snapshot_fetches_total"
	MetricSnapshotRows    = "snapshot_rows"
)

type IntakeMetrics struct {
	submissions  *prometheus.CounterVec
	fetches      *prometheus.CounterVec
	snapshotRows prometheus.Gauge
}

var _ ports.IntakeMetrics = (*IntakeMetrics)(nil)

// NewIntakeMetrics registers the intake collectors on registerer.
func NewIntakeMetrics(registerer prometheus.Registerer) (*IntakeMetrics, error) {
	m := &IntakeMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricSubmissions,
				Help:      "Intake form submissions by outcome.",
			},
			[]string{"outcome"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      MetricSnapshotFetches,
				Help:      "Sheet snapshot loads that reached the store, by outcome.",
			},
			[]string{"outcome"},
		),
		snapshotRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      MetricSnapshotRows,
				Help:      "Data rows in the most recently loaded snapshot.",
			},
		),
	}
	for _, collector := range []prometheus.Collector{m.submissions, m.fetches, m.snapshotRows} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *IntakeMetrics) SubmissionFinished(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *IntakeMetrics) SnapshotFetched(outcome string, rows int) {
	m.fetches.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.snapshotRows.Set(float64(rows))
	}
}
