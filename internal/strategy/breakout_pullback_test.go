package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
)

type bpOpts struct {
	lopsided    bool // fewer red days than green days
	noCrash     bool
	noRecovery  bool
	noKeySignal bool
	quietVolume bool
	bearishRun  int // consecutive bearish bars starting at 70
}

// bpScenario builds an 80-bar series: accumulation in [20:60], three
// rising candles at 64-66, a shrink-volume crash at 67, recovery at 68
// and a close below day3's low at 78
func bpScenario(o bpOpts) bars {
	var b bars
	b = b.doji(20, 10.0, 9.95, 1000)
	if o.lopsided {
		for i := 0; i < 15; i++ {
			b = b.bar(10.0, 10.15, 9.95, 10.1, 3000)
		}
		for i := 0; i < 25; i++ {
			b = b.bar(10.1, 10.15, 9.95, 10.0, 1000)
		}
	} else {
		b = b.accumulation(40, 2000, 1000)
	}
	b = b.doji(4, 10.0, 9.95, 1000)

	b = b.red(10.0, 10.2, 1500)
	b = b.red(10.2, 10.4, 1500)
	b = b.red(10.4, 10.6, 1500) // day3 low 10.35

	crashVol := int64(1000)
	if o.noCrash {
		crashVol = 1300 // above 0.8 x triple average
	}
	b = b.bar(10.6, 10.62, 10.1, 10.15, crashVol) // -4.2%

	if o.noRecovery {
		b = b.doji(3, 10.2, 10.16, 1000)
	} else {
		b = b.red(10.15, 10.4, 1000)
		b = b.doji(2, 10.4, 10.36, 1000)
	}
	b = b.doji(4, 10.4, 10.36, 1000)

	for i := 0; i < o.bearishRun; i++ {
		b = b.set(70+i, contracts.Bar{Open: 10.41, High: 10.45, Low: 10.37, Close: 10.4, Volume: 1000})
	}

	vol := int64(1400)
	if o.quietVolume {
		vol = 1000
	}
	for i := 75; i < 80; i++ {
		if i == 78 && !o.noKeySignal {
			b = b.bar(10.45, 10.47, 10.3, 10.38, vol)
			continue
		}
		b = b.doji(1, 10.4, 10.36, vol)
	}
	return b
}

func TestBreakoutPullback_Stages(t *testing.T) {
	tests := []struct {
		name string
		opts bpOpts
		want contracts.Stage
	}{
		{"crash, recovery and key signal", bpOpts{}, contracts.StageBreakoutCritical},
		{"crash and recovery", bpOpts{noKeySignal: true}, contracts.StageBreakoutKey},
		{"crash only", bpOpts{noKeySignal: true, noRecovery: true}, contracts.StageBreakout},
		{"key signal without recovery", bpOpts{noRecovery: true}, contracts.StageBreakoutCritical},
		{"three rising without crash", bpOpts{noCrash: true}, contracts.StageBuilding},
		{"accumulation only", bpOpts{noCrash: true, quietVolume: true}, contracts.StageConsolidation},
		{"fewer red days than green days", bpOpts{lopsided: true}, contracts.StageNone},
	}

	c := NewBreakoutPullback(defaults().BreakoutPullback)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bpScenario(tt.opts)
			require.Len(t, b, 80)
			assert.Equal(t, tt.want, c.Classify(b.series(t)))
		})
	}
}

func TestBreakoutPullback_CriticalOutranksRecovered(t *testing.T) {
	ev := NewBreakoutPullback(defaults().BreakoutPullback).Evaluate(bpScenario(bpOpts{}).series(t))

	for _, name := range []string{"three_rising", "crash", "recovered", "key_signal"} {
		assert.True(t, ev.Passed(name), name)
	}
	assert.Equal(t, contracts.StageBreakoutCritical, ev.Stage)
}

func TestBreakoutPullback_BearishRunFilter(t *testing.T) {
	c := NewBreakoutPullback(defaults().BreakoutPullback)

	four := c.Evaluate(bpScenario(bpOpts{bearishRun: 4}).series(t))
	assert.False(t, four.Passed("no_bearish_run"))
	assert.Equal(t, contracts.StageNone, four.Stage)

	three := c.Evaluate(bpScenario(bpOpts{bearishRun: 3}).series(t))
	assert.True(t, three.Passed("no_bearish_run"))
	assert.Equal(t, contracts.StageBreakoutCritical, three.Stage)
}

// crashAtEnd puts the crash day on the last bar so the triple starts at -4
func crashAtEnd() bars {
	var b bars
	b = b.doji(20, 10.0, 9.95, 1000)
	b = b.accumulation(40, 2000, 1000)
	b = b.doji(16, 10.0, 9.95, 1000)
	b = b.red(10.0, 10.2, 1500)
	b = b.red(10.2, 10.4, 1500)
	b = b.red(10.4, 10.6, 1500)
	return b.bar(10.6, 10.62, 10.1, 10.15, 1000)
}

func TestBreakoutPullback_CrashScanBoundary(t *testing.T) {
	s := crashAtEnd().series(t)

	tests := []struct {
		name string
		end  int
		want contracts.Stage
	}{
		{"exclusive end -3 reaches the triple at -4", -3, contracts.StageBreakoutCritical},
		{"exclusive end -4 stops at the triple at -5", -4, contracts.StageBuilding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := defaults().BreakoutPullback
			params.CrashScanEnd = tt.end
			ev := NewBreakoutPullback(params).Evaluate(s)
			assert.Equal(t, tt.want, ev.Stage)
			assert.True(t, ev.Passed("three_rising"))
		})
	}
}

func TestLongestBearishRun(t *testing.T) {
	var b bars
	b = b.bar(10, 10, 9, 9.5, 1)  // bearish
	b = b.bar(10, 10, 9, 9.5, 1)  // bearish
	b = b.bar(10, 10, 9, 10, 1)   // doji breaks the run
	b = b.bar(10, 10, 9, 9.5, 1)  // bearish
	b = b.bar(10, 11, 9, 10.5, 1) // red

	assert.Equal(t, 2, longestBearishRun(b))
	assert.Equal(t, 0, longestBearishRun(nil))
}
