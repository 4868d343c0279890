package strategy

import (
	"math"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/indicator"
)

// MinBars is the shortest series any classifier evaluates
const MinBars = 60

// Strategy is a classifier that can also explain its decision
type Strategy interface {
	contracts.Classifier
	Evaluate(s *contracts.Series) Evaluation
}

// Check is one named condition of a decision sequence
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// Evaluation is the stage plus the conditions behind it
type Evaluation struct {
	Stage   contracts.Stage `json:"stage"`
	Checks  []Check         `json:"checks"`
	KeyDate *time.Time      `json:"key_date,omitempty"`
}

func (e *Evaluation) record(name string, passed bool) bool {
	e.Checks = append(e.Checks, Check{Name: name, Passed: passed})
	return passed
}

// Passed returns the outcome of a named check
func (e Evaluation) Passed(name string) bool {
	for _, c := range e.Checks {
		if c.Name == name {
			return c.Passed
		}
	}
	return false
}

// window returns bars[n+from : n+to] with negative offsets, clamped
func window(bars []contracts.Bar, from, to int) []contracts.Bar {
	start, end := bounds(len(bars), from, to)
	return bars[start:end]
}

func bounds(n, from, to int) (int, int) {
	start, end := n+from, n+to
	if to == 0 {
		end = n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// volumeSplit sums volume of red (close>open) and green (close<=open) bars
type volumeSplit struct {
	redVol    float64
	greenVol  float64
	redDays   int
	greenDays int
}

func splitVolume(bars []contracts.Bar) volumeSplit {
	var v volumeSplit
	for _, b := range bars {
		if b.IsRed() {
			v.redVol += float64(b.Volume)
			v.redDays++
		} else {
			v.greenVol += float64(b.Volume)
			v.greenDays++
		}
	}
	return v
}

func meanVolume(bars []contracts.Bar) float64 {
	if len(bars) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, b := range bars {
		sum += float64(b.Volume)
	}
	return sum / float64(len(bars))
}

// countAtLeast counts values >= threshold; NaN never counts
func countAtLeast(values []float64, threshold float64) int {
	count := 0
	for _, v := range values {
		if v >= threshold {
			count++
		}
	}
	return count
}

// pullback compares the last bar with the one before it
type pullback struct {
	shrinking bool // volume decreasing
	ma5Up     bool // MA5 increasing
	onMA5     bool // close >= MA5 and low <= MA5*tolerance
}

func (p pullback) ok() bool {
	return p.shrinking && p.ma5Up && p.onMA5
}

func checkPullback(a *indicator.Annotated, tolerance float64) pullback {
	bars := a.Series.Bars
	n := len(bars)
	curr, prev := bars[n-1], bars[n-2]
	ma5, prevMA5 := a.Ind.MA5[n-1], a.Ind.MA5[n-2]

	return pullback{
		shrinking: curr.Volume < prev.Volume,
		ma5Up:     ma5 > prevMA5,
		onMA5:     curr.Close >= ma5 && curr.Low <= ma5*tolerance,
	}
}

func (e *Evaluation) recordPullback(p pullback) bool {
	e.record("is_shrinking", p.shrinking)
	e.record("ma5_trending_up", p.ma5Up)
	e.record("on_ma5", p.onMA5)
	return e.record("is_pullback", p.ok())
}
