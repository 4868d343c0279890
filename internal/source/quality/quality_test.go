package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
)

func bar(day int, close float64, vol int64) contracts.Bar {
	return contracts.Bar{
		Date:   time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: vol,
	}
}

func TestClean(t *testing.T) {
	rows := []contracts.Bar{
		bar(5, 10.5, 100),
		bar(3, 10.0, 100),
		bar(4, 0, 100),           // bad price
		bar(6, 11.0, -1),         // bad volume
		bar(5, 10.7, 200),        // duplicate, keeps this one
		bar(7, math.NaN(), 100),  // bad price
		bar(8, math.Inf(1), 100), // bad price
	}

	s, stats, err := Clean("sz.000001", rows)
	require.NoError(t, err)

	assert.Equal(t, "000001", s.Code)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 3, s.Bars[0].Date.Day())
	assert.Equal(t, 10.7, s.Bars[1].Close)
	assert.Equal(t, int64(200), s.Bars[1].Volume)

	assert.Equal(t, Stats{Rows: 7, Kept: 2, BadPrice: 3, BadVolume: 1, Duplicates: 1}, stats)
	assert.Equal(t, 5, stats.Dropped())
}

func TestClean_NoUsableRows(t *testing.T) {
	_, stats, err := Clean("sh.600000", []contracts.Bar{bar(2, -1, 100)})
	assert.ErrorIs(t, err, contracts.ErrMalformedSeries)
	assert.Equal(t, 0, stats.Kept)

	_, _, err = Clean("sh.600000", nil)
	assert.ErrorIs(t, err, contracts.ErrMalformedSeries)
}

func TestClean_ZeroVolumeIsKept(t *testing.T) {
	s, _, err := Clean("sh.600000", []contracts.Bar{bar(2, 10, 0)})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}
