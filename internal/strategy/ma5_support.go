package strategy

import (
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/indicator"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

// MA5Support classifies accumulation -> shrink-volume shakeout -> MA5 pullback
// ⭐ SSOT: 중선(MA5 지지) 판정은 여기서만
type MA5Support struct {
	params strategyconfig.MA5Support
}

// NewMA5Support creates the classifier
func NewMA5Support(params strategyconfig.MA5Support) *MA5Support {
	return &MA5Support{params: params}
}

// Classify returns the stage only
func (c *MA5Support) Classify(s *contracts.Series) contracts.Stage {
	return c.Evaluate(s).Stage
}

// Evaluate runs the decision sequence on the trailing 60 bars
func (c *MA5Support) Evaluate(s *contracts.Series) Evaluation {
	var ev Evaluation
	if !ev.record("min_bars", s.Len() >= MinBars) {
		return ev
	}

	a := indicator.Annotate(s)
	bars := a.Series.Bars
	n := len(bars)
	p := c.params

	// 1. 흡수(매집) 판정: [-60:-30]
	split := splitVolume(window(bars, -60, -30))
	accumulating := ev.record("is_accumulating", split.redVol > split.greenVol*p.AccumulationRatio)

	// 2. 세력 털기: 최근 20일 내 축소 거래량 하락
	hadPanicShrink := false
	for i := n - 20; i < n; i++ {
		if i > 0 && bars[i].Low < bars[i-1].Low && bars[i].Volume < bars[i-1].Volume {
			hadPanicShrink = true
			break
		}
	}
	ev.record("had_panic_shrink", hadPanicShrink)

	avgLong := meanVolume(window(bars, -60, -10))
	spike := false
	for _, b := range window(bars, -30, -1) {
		if float64(b.Volume) > avgLong*p.ShakeSpikeMultiple {
			spike = true
			break
		}
	}
	cleanShake := ev.record("is_clean_shake", !spike && hadPanicShrink)

	// 3. 시동: 최근 10일
	hasBreakout := ev.record("has_breakout", countAtLeast(a.Ind.PctChg[n-10:], p.BreakoutPct) >= p.MinBreakoutDays)
	isPullback := ev.recordPullback(checkPullback(a, p.MA5Tolerance))

	if !accumulating || !cleanShake {
		return ev
	}

	switch {
	case hasBreakout && isPullback:
		ev.Stage = contracts.StageBreakout
	case !hasBreakout && hadPanicShrink:
		ev.Stage = contracts.StageBuilding
	default:
		ev.Stage = contracts.StageConsolidation
	}
	return ev
}
