package strategy

import (
	"math"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/indicator"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

// BreakoutPullback classifies accumulation -> three rising candles ->
// shrink-volume crash -> recovery / key break (v3.2)
// ⭐ SSOT: 돌파 후 눌림(삼연양 + 축소 급락) 판정은 여기서만
type BreakoutPullback struct {
	params strategyconfig.BreakoutPullback
}

// NewBreakoutPullback creates the classifier
func NewBreakoutPullback(params strategyconfig.BreakoutPullback) *BreakoutPullback {
	return &BreakoutPullback{params: params}
}

// Classify returns the stage only
func (c *BreakoutPullback) Classify(s *contracts.Series) contracts.Stage {
	return c.Evaluate(s).Stage
}

// crashScan is the outcome of the three-candle crash scan
type crashScan struct {
	threeRising bool
	lastLow     float64 // low of day3 of the last qualifying triple
	crash       bool
	recovered   bool
}

// Evaluate runs the decision sequence on the trailing 60 bars
func (c *BreakoutPullback) Evaluate(s *contracts.Series) Evaluation {
	var ev Evaluation
	if !ev.record("min_bars", s.Len() >= MinBars) {
		return ev
	}

	a := indicator.Annotate(s)
	bars := a.Series.Bars
	p := c.params

	// 0. 하락 추세 배제: 최근 20일 내 4연속 음봉
	if !ev.record("no_bearish_run", longestBearishRun(window(bars, -p.BearishLookback, 0)) < p.BearishRunLimit) {
		return ev
	}

	// 1. 매집 판정 (큰 양봉 작은 음봉)
	split := splitVolume(window(bars, -60, -20))
	accumulating := split.redVol > split.greenVol*p.AccumulationRatio && split.redDays >= split.greenDays
	if !ev.record("is_accumulating", accumulating) {
		return ev
	}

	// 2. 최근 5일 소폭 거래량 확대
	volumeOK := ev.record("volume_ok", c.volumeExpansion(a))

	// 3. 삼연양 후 축소 급락
	scan := c.scanCrash(bars)
	ev.record("three_rising", scan.threeRising)
	ev.record("crash", scan.crash)
	ev.record("recovered", scan.recovered)

	// 4. 최우선 신호: 최근 5일 내 삼연양 마지막 날 저가 이탈 + 음봉
	keySignal := false
	if scan.threeRising {
		for _, b := range window(bars, -p.KeyLookback, 0) {
			if b.Low < scan.lastLow && b.IsBearish() {
				keySignal = true
				break
			}
		}
	}
	ev.record("key_signal", keySignal)

	switch {
	case scan.threeRising && scan.crash && keySignal:
		ev.Stage = contracts.StageBreakoutCritical
	case scan.threeRising && scan.crash && scan.recovered:
		ev.Stage = contracts.StageBreakoutKey
	case scan.threeRising && scan.crash:
		ev.Stage = contracts.StageBreakout
	case volumeOK && scan.threeRising:
		ev.Stage = contracts.StageBuilding
	default:
		ev.Stage = contracts.StageConsolidation
	}
	return ev
}

// volumeExpansion: enough days above MA20 volume, none above the spike ratio
func (c *BreakoutPullback) volumeExpansion(a *indicator.Annotated) bool {
	n := len(a.Series.Bars)
	above := 0
	maxRatio := math.NaN()
	for i := n - c.params.ExpansionDays; i < n; i++ {
		vol := float64(a.Series.Bars[i].Volume)
		ma := a.Ind.VolMA20[i]
		if vol > ma {
			above++
		}
		ratio := vol / ma
		if math.IsNaN(ratio) {
			continue
		}
		if math.IsNaN(maxRatio) || ratio > maxRatio {
			maxRatio = ratio
		}
	}

	hasExpansion := above >= c.params.MinExpansionDays
	moderate := !math.IsNaN(maxRatio) && maxRatio < c.params.MaxVolumeRatio
	return hasExpansion && moderate
}

// scanCrash walks triples starting at offsets [CrashScanStart, CrashScanEnd).
// The first triple followed by a qualifying crash day ends the scan.
func (c *BreakoutPullback) scanCrash(bars []contracts.Bar) crashScan {
	p := c.params
	n := len(bars)
	var out crashScan

	for off := p.CrashScanStart; off < p.CrashScanEnd; off++ {
		i := n + off
		if i < 0 || i+3 >= n {
			continue
		}
		d1, d2, d3 := bars[i], bars[i+1], bars[i+2]

		rising := 0
		for _, d := range []contracts.Bar{d1, d2, d3} {
			if d.IsRed() {
				rising++
			}
		}
		gain := (d3.Close - d1.Open) / d1.Open * 100
		if rising < 2 || !(gain > p.RisingGainPct) {
			continue
		}

		out.threeRising = true
		out.lastLow = d3.Low

		crash := bars[i+3]
		avgVol := float64(d1.Volume+d2.Volume+d3.Volume) / 3
		drop := crash.BodyPct()
		isCrash := crash.IsBearish() &&
			crash.Low < d3.Low &&
			float64(crash.Volume) < avgVol*p.CrashVolumeRatio &&
			drop > p.CrashDropMin && drop < p.CrashDropMax
		if !isCrash {
			continue
		}

		out.crash = true
		// 급락 후 빠른 회복 (3일 내), 뒤따르는 봉이 모두 있을 때만
		if i+3+p.RecoveryDays < n {
			for j := i + 4; j <= i+3+p.RecoveryDays; j++ {
				if bars[j].Close > crash.Close*p.RecoveryMultiple {
					out.recovered = true
					break
				}
			}
		}
		break
	}
	return out
}

// longestBearishRun returns the longest streak of close < open bars
func longestBearishRun(bars []contracts.Bar) int {
	longest, run := 0, 0
	for _, b := range bars {
		if b.IsBearish() {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 0
		}
	}
	return longest
}
