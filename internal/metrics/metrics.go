// Package metrics exposes scan counters and timings to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wonny/patternscan/internal/contracts"
)

// Failure reasons recorded per instrument
const (
	ReasonNotFound  = "not_found"
	ReasonMalformed = "malformed"
	ReasonTooShort  = "too_short"
	ReasonPanic     = "panic"
	ReasonOther     = "other"
)

// Metrics holds all Prometheus collectors of the scanner
type Metrics struct {
	ScansTotal         *prometheus.CounterVec // labels: strategy, outcome
	InstrumentsScanned *prometheus.CounterVec // labels: strategy
	HitsTotal          *prometheus.CounterVec // labels: strategy, stage
	FailuresTotal      *prometheus.CounterVec // labels: strategy, reason
	ScanDuration       *prometheus.HistogramVec
	ConceptSyncs       *prometheus.CounterVec // labels: outcome
}

// New creates the collectors and registers them on reg.
// A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscan_scans_total",
			Help: "Completed scan runs",
		}, []string{"strategy", "outcome"}),
		InstrumentsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscan_instruments_scanned_total",
			Help: "Instruments classified",
		}, []string{"strategy"}),
		HitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscan_hits_total",
			Help: "Instruments matched, by stage",
		}, []string{"strategy", "stage"}),
		FailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscan_instrument_failures_total",
			Help: "Instruments excluded from a scan, by reason",
		}, []string{"strategy", "reason"}),
		ScanDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "patternscan_scan_duration_seconds",
			Help:    "Wall time of a full scan",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
		ConceptSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscan_concept_syncs_total",
			Help: "Concept map refreshes",
		}, []string{"outcome"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ScansTotal,
			m.InstrumentsScanned,
			m.HitsTotal,
			m.FailuresTotal,
			m.ScanDuration,
			m.ConceptSyncs,
		)
	}
	return m
}

// ObserveScan records a finished report
func (m *Metrics) ObserveScan(r *contracts.Report) {
	if m == nil || r == nil {
		return
	}

	outcome := "complete"
	if r.Partial {
		outcome = "partial"
	}
	m.ScansTotal.WithLabelValues(r.Strategy, outcome).Inc()
	m.InstrumentsScanned.WithLabelValues(r.Strategy).Add(float64(r.TotalScanned))
	m.ScanDuration.WithLabelValues(r.Strategy).Observe(r.Duration.Seconds())

	for stage, n := range r.StageCounts() {
		m.HitsTotal.WithLabelValues(r.Strategy, stage.String()).Add(float64(n))
	}
}

// ObserveFailure counts one excluded instrument
func (m *Metrics) ObserveFailure(strategy, reason string) {
	if m == nil {
		return
	}
	m.FailuresTotal.WithLabelValues(strategy, reason).Inc()
}

// ObserveConceptSync records a concept refresh
func (m *Metrics) ObserveConceptSync(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.ConceptSyncs.WithLabelValues(outcome).Inc()
}
