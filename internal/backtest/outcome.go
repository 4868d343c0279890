package backtest

import (
	"time"

	"github.com/wonny/patternscan/internal/contracts"
)

// Outcome is the best move within a forward window after a signal
type Outcome struct {
	Days         int       `json:"days"`
	Success      bool      `json:"success"`
	MaxReturnPct float64   `json:"max_return_pct"`
	MaxDate      time.Time `json:"max_date,omitempty"`
}

// ForwardReturn measures the highest high of bars[idx+1 : idx+1+days]
// against the close of bars[idx]. No future bars means no success.
func ForwardReturn(bars []contracts.Bar, idx, days int, targetPct float64) Outcome {
	out := Outcome{Days: days}

	end := idx + 1 + days
	if end > len(bars) {
		end = len(bars)
	}
	if idx+1 >= end {
		return out
	}

	base := bars[idx].Close
	best := bars[idx+1]
	for _, b := range bars[idx+2 : end] {
		if b.High > best.High {
			best = b
		}
	}

	if base > 0 {
		out.MaxReturnPct = (best.High - base) / base * 100
	}
	out.MaxDate = best.Date
	out.Success = out.MaxReturnPct >= targetPct
	return out
}

// HorizonStats aggregates outcomes of one forward window
type HorizonStats struct {
	Days            int     `json:"days"`
	Signals         int     `json:"signals"`
	Successes       int     `json:"successes"`
	SuccessRate     float64 `json:"success_rate"` // percent
	AvgMaxReturnPct float64 `json:"avg_max_return_pct"`
}

// Summarize computes per-horizon statistics
func Summarize(signals []Signal, horizons []int) []HorizonStats {
	stats := make([]HorizonStats, len(horizons))
	for k, days := range horizons {
		st := HorizonStats{Days: days}
		sum := 0.0
		for _, s := range signals {
			if k >= len(s.Outcomes) {
				continue
			}
			o := s.Outcomes[k]
			st.Signals++
			sum += o.MaxReturnPct
			if o.Success {
				st.Successes++
			}
		}
		if st.Signals > 0 {
			st.SuccessRate = float64(st.Successes) / float64(st.Signals) * 100
			st.AvgMaxReturnPct = sum / float64(st.Signals)
		}
		stats[k] = st
	}
	return stats
}
