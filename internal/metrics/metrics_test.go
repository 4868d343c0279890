package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
)

// counterValue sums every series of a gathered counter family
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestObserveScan(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveScan(&contracts.Report{
		Strategy:     "ma5",
		TotalScanned: 120,
		Duration:     2 * time.Second,
		Hits: []contracts.Hit{
			{Code: "600000", Stage: contracts.StageBreakout},
			{Code: "600001", Stage: contracts.StageBreakout},
			{Code: "600002", Stage: contracts.StageBuilding},
		},
	})
	m.ObserveFailure("ma5", ReasonMalformed)

	assert.Equal(t, 1.0, counterValue(t, reg, "patternscan_scans_total"))
	assert.Equal(t, 120.0, counterValue(t, reg, "patternscan_instruments_scanned_total"))
	assert.Equal(t, 3.0, counterValue(t, reg, "patternscan_hits_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "patternscan_instrument_failures_total"))
}

func TestObserveConceptSync(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveConceptSync(nil)
	m.ObserveConceptSync(errors.New("boom"))

	assert.Equal(t, 2.0, counterValue(t, reg, "patternscan_concept_syncs_total"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScan(&contracts.Report{Strategy: "ma5"})
		m.ObserveFailure("ma5", ReasonPanic)
		m.ObserveConceptSync(nil)
	})
}

func TestNewWithoutRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}
