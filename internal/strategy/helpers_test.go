package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

var baseDate = time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

// bars is a small fluent builder for synthetic daily series
type bars []contracts.Bar

func (b bars) bar(open, high, low, close float64, vol int64) bars {
	return append(b, contracts.Bar{
		Date:   baseDate.AddDate(0, 0, len(b)),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: vol,
	})
}

// doji appends n bars with open == close
func (b bars) doji(n int, price, low float64, vol int64) bars {
	for i := 0; i < n; i++ {
		b = b.bar(price, price+0.05, low, price, vol)
	}
	return b
}

// red appends a bullish bar whose low sits 0.05 under the open
func (b bars) red(open, close float64, vol int64) bars {
	return b.bar(open, close+0.05, open-0.05, close, vol)
}

// accumulation appends n alternating red/green bars around 10.0
// with red volume redVol and green volume greenVol
func (b bars) accumulation(n int, redVol, greenVol int64) bars {
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			b = b.bar(10.0, 10.15, 9.95, 10.1, redVol)
		} else {
			b = b.bar(10.1, 10.15, 9.95, 10.0, greenVol)
		}
	}
	return b
}

func (b bars) series(t *testing.T) *contracts.Series {
	t.Helper()
	s, err := contracts.NewSeries("sh.600000", []contracts.Bar(b))
	require.NoError(t, err)
	return s
}

func (b bars) set(i int, bar contracts.Bar) bars {
	bar.Date = b[i].Date
	b[i] = bar
	return b
}

func defaults() *strategyconfig.Config {
	return strategyconfig.Default()
}
