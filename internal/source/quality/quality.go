package quality

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/patternscan/internal/contracts"
)

// Stats counts rows dropped while cleaning one instrument
type Stats struct {
	Rows       int `json:"rows"`
	Kept       int `json:"kept"`
	BadPrice   int `json:"bad_price"`
	BadVolume  int `json:"bad_volume"`
	Duplicates int `json:"duplicates"`
}

// Dropped returns the number of rows that did not survive cleaning
func (s Stats) Dropped() int {
	return s.Rows - s.Kept
}

// Clean turns raw loader rows into a valid series.
// Rows with a non-positive or non-finite price, or a negative volume, are
// dropped. Rows are sorted by date and a repeated date keeps the last row.
// An empty result is ErrMalformedSeries.
// ⭐ SSOT: 로더 공통 행 정제는 여기서만
func Clean(fullCode string, rows []contracts.Bar) (*contracts.Series, Stats, error) {
	stats := Stats{Rows: len(rows)}

	kept := make([]contracts.Bar, 0, len(rows))
	for _, b := range rows {
		if !validPrice(b.Open) || !validPrice(b.High) || !validPrice(b.Low) || !validPrice(b.Close) {
			stats.BadPrice++
			continue
		}
		if b.Volume < 0 {
			stats.BadVolume++
			continue
		}
		kept = append(kept, b)
	}

	// stable sort keeps file order among equal dates, so the last one wins below
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date.Before(kept[j].Date)
	})

	deduped := kept[:0]
	for _, b := range kept {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(b.Date) {
			deduped[n-1] = b
			stats.Duplicates++
			continue
		}
		deduped = append(deduped, b)
	}
	stats.Kept = len(deduped)

	if len(deduped) == 0 {
		return nil, stats, fmt.Errorf("%w: %s: no usable rows (%d read)", contracts.ErrMalformedSeries, fullCode, stats.Rows)
	}

	s, err := contracts.NewSeries(fullCode, deduped)
	if err != nil {
		return nil, stats, err
	}
	return s, stats, nil
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
