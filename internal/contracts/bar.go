package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Bar is one trading day of an instrument
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// IsRed reports a bullish candle (close > open)
func (b Bar) IsRed() bool {
	return b.Close > b.Open
}

// IsBearish reports close < open. Doji bars are neither red nor bearish.
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}

// BodyPct returns the open-to-close change in percent
func (b Bar) BodyPct() float64 {
	if b.Open == 0 {
		return 0
	}
	return (b.Close - b.Open) / b.Open * 100
}

// Series is the chronological bar history of one instrument
// ⭐ SSOT: 분류기 입력은 이 구조체로만 전달
type Series struct {
	Code     string `json:"code"`      // pure code, e.g. 600000
	FullCode string `json:"full_code"` // with exchange prefix, e.g. sh.600000
	Bars     []Bar  `json:"bars"`
}

// NewSeries builds a series and checks that dates are strictly increasing
func NewSeries(fullCode string, bars []Bar) (*Series, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%w: %s: date %s not after %s",
				ErrMalformedSeries, fullCode,
				bars[i].Date.Format("2006-01-02"), bars[i-1].Date.Format("2006-01-02"))
		}
	}

	code, full := SplitCode(fullCode)
	return &Series{Code: code, FullCode: full, Bars: bars}, nil
}

// Len returns the number of bars
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar
func (s *Series) Last() Bar {
	return s.Bars[len(s.Bars)-1]
}

// Clone returns a deep copy; classifiers never share the backing array
func (s *Series) Clone() *Series {
	bars := make([]Bar, len(s.Bars))
	copy(bars, s.Bars)
	return &Series{Code: s.Code, FullCode: s.FullCode, Bars: bars}
}

// Tail returns a copy holding the last n bars
func (s *Series) Tail(n int) *Series {
	if n > len(s.Bars) {
		n = len(s.Bars)
	}
	if n < 0 {
		n = 0
	}
	bars := make([]Bar, n)
	copy(bars, s.Bars[len(s.Bars)-n:])
	return &Series{Code: s.Code, FullCode: s.FullCode, Bars: bars}
}

// Until returns a copy holding bars up to and including date
func (s *Series) Until(date time.Time) *Series {
	n := 0
	for n < len(s.Bars) && !s.Bars[n].Date.After(date) {
		n++
	}
	bars := make([]Bar, n)
	copy(bars, s.Bars[:n])
	return &Series{Code: s.Code, FullCode: s.FullCode, Bars: bars}
}

// IndexOf returns the index of the bar on date, or -1
func (s *Series) IndexOf(date time.Time) int {
	for i, b := range s.Bars {
		if b.Date.Equal(date) {
			return i
		}
	}
	return -1
}

// SplitCode separates "sh.600000" into pure code and full code.
// Codes without an exchange prefix are returned as both.
func SplitCode(fullCode string) (string, string) {
	fullCode = strings.TrimSpace(fullCode)
	if idx := strings.Index(fullCode, "."); idx >= 0 {
		return fullCode[idx+1:], fullCode
	}
	return fullCode, fullCode
}

// Exchange returns the exchange prefix (sh, sz, bj) or "" when absent
func Exchange(fullCode string) string {
	if idx := strings.Index(fullCode, "."); idx >= 0 {
		return strings.ToLower(fullCode[:idx])
	}
	return ""
}
