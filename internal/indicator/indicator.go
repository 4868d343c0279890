package indicator

import (
	"math"

	"github.com/wonny/patternscan/internal/contracts"
)

// Set holds per-bar indicators aligned with the source series.
// Entries before the window is filled are NaN.
// ⭐ SSOT: 이동평균/등락률 계산은 여기서만
type Set struct {
	MA5     []float64
	MA20    []float64
	MA30    []float64
	MA60    []float64
	VolMA20 []float64
	PctChg  []float64 // percent change of close vs prior bar
}

// Compute derives the indicator set. Pure; the series is not modified.
func Compute(s *contracts.Series) *Set {
	n := s.Len()
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range s.Bars {
		closes[i] = b.Close
		volumes[i] = float64(b.Volume)
	}

	return &Set{
		MA5:     SMA(closes, 5),
		MA20:    SMA(closes, 20),
		MA30:    SMA(closes, 30),
		MA60:    SMA(closes, 60),
		VolMA20: SMA(volumes, 20),
		PctChg:  PctChange(closes),
	}
}

// Len returns the aligned length
func (s *Set) Len() int {
	return len(s.PctChg)
}

// SMA returns the trailing simple moving average over period values.
// The first period-1 entries are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if period <= 0 || i < period-1 {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range values[i-period+1 : i+1] {
			sum += v
		}
		out[i] = sum / float64(period)
	}
	return out
}

// PctChange returns (v[i]-v[i-1])/v[i-1]*100. The first entry and any
// entry with a zero predecessor are NaN.
func PctChange(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i == 0 || values[i-1] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i] - values[i-1]) / values[i-1] * 100
	}
	return out
}

// Annotated pairs a private copy of a series with its indicators
type Annotated struct {
	Series *contracts.Series
	Ind    *Set
}

// Annotate clones the series and computes indicators on the clone
func Annotate(s *contracts.Series) *Annotated {
	clone := s.Clone()
	return &Annotated{Series: clone, Ind: Compute(clone)}
}
