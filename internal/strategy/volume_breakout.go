package strategy

import (
	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/indicator"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

// VolumeBreakout classifies accumulation -> breakout without a consolidation phase
type VolumeBreakout struct {
	params strategyconfig.VolumeBreakout
}

// NewVolumeBreakout creates the classifier
func NewVolumeBreakout(params strategyconfig.VolumeBreakout) *VolumeBreakout {
	return &VolumeBreakout{params: params}
}

// Classify returns the stage only
func (c *VolumeBreakout) Classify(s *contracts.Series) contracts.Stage {
	return c.Evaluate(s).Stage
}

// Evaluate runs the decision sequence on the trailing 60 bars
func (c *VolumeBreakout) Evaluate(s *contracts.Series) Evaluation {
	var ev Evaluation
	if !ev.record("min_bars", s.Len() >= MinBars) {
		return ev
	}

	a := indicator.Annotate(s)
	bars := a.Series.Bars
	n := len(bars)
	p := c.params

	// 1. 매집 판정: [-60:-20]
	split := splitVolume(window(bars, -60, -20))
	if !ev.record("is_accumulating", split.redVol > split.greenVol*p.AccumulationRatio) {
		return ev
	}

	// 2. 핵심 돌파: 전일 양봉 후 당일 저가 이탈
	keyIdx := c.findKeyBreakout(bars)
	isKey := ev.record("is_key_breakout", keyIdx >= 0)
	if isKey {
		date := bars[keyIdx].Date
		ev.KeyDate = &date
	}

	// 3. 시동: 최근 10일
	hasBreakout := ev.record("has_breakout", countAtLeast(a.Ind.PctChg[n-10:], p.BreakoutPct) >= p.MinBreakoutDays)
	isPullback := ev.recordPullback(checkPullback(a, p.MA5Tolerance))

	switch {
	case hasBreakout && isPullback && isKey:
		ev.Stage = contracts.StageBreakoutKey
	case hasBreakout && isPullback:
		ev.Stage = contracts.StageBreakout
	case hasBreakout:
		ev.Stage = contracts.StageBuilding
	}
	return ev
}

// findKeyBreakout scans [-lookback:-1] for a day whose low undercuts a
// prior day that closed above its open. Returns the bar index or -1.
func (c *VolumeBreakout) findKeyBreakout(bars []contracts.Bar) int {
	n := len(bars)
	qualifies := func(i int) bool {
		if i < 1 {
			return false
		}
		prev := bars[i-1]
		return bars[i].Low < prev.Low && prev.BodyPct() > 0
	}

	start, end := bounds(n, -c.params.KeyLookback, -1)
	if c.params.KeyScanOrder == strategyconfig.ScanLatest {
		for i := end - 1; i >= start; i-- {
			if qualifies(i) {
				return i
			}
		}
		return -1
	}

	for i := start; i < end; i++ {
		if qualifies(i) {
			return i
		}
	}
	return -1
}
