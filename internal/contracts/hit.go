package contracts

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Hit is one instrument matched by a scan
// ⭐ SSOT: 스캔 결과 레코드 형태는 여기서만
type Hit struct {
	Code      string  `json:"code"`
	Name      string  `json:"name,omitempty"`
	FullCode  string  `json:"full_code"`
	Price     float64 `json:"price"`
	ChangePct float64 `json:"change_pct"`
	Change    string  `json:"change"` // e.g. "5.0%"
	Stage     Stage   `json:"stage"`
	Concepts  string  `json:"concepts"`
}

// ConceptTags splits the concept string into individual tags
func (h Hit) ConceptTags() []string {
	parts := strings.Split(h.Concepts, ConceptSeparator)
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// ConceptSeparator joins multiple concept tags in one string
const ConceptSeparator = " / "

// SortHits orders hits by stage rank descending, then code ascending
func SortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Stage != hits[j].Stage {
			return hits[i].Stage.Rank() > hits[j].Stage.Rank()
		}
		return hits[i].Code < hits[j].Code
	})
}

// FormatChange renders a percent change rounded to two decimals,
// always keeping at least one fractional digit ("5.0%", "-1.23%")
func FormatChange(pct float64) string {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(pct, 'f', 2, 64), 64)
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// Report is a finished scan handed to result sinks
type Report struct {
	RunID        string        `json:"run_id"`
	Strategy     string        `json:"strategy"`
	StrategyName string        `json:"strategy_name"`
	GeneratedAt  time.Time     `json:"generated_at"`
	Duration     time.Duration `json:"duration"`
	TotalScanned int           `json:"total_scanned"`
	Failed       int           `json:"failed"`
	Partial      bool          `json:"partial"` // batch was cancelled before completion
	Hits         []Hit         `json:"hits"`
}

// Codes returns the pure codes of all hits in report order
func (r *Report) Codes() []string {
	codes := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		codes[i] = h.Code
	}
	return codes
}

// StageCounts counts hits per stage
func (r *Report) StageCounts() map[Stage]int {
	counts := make(map[Stage]int)
	for _, h := range r.Hits {
		counts[h.Stage]++
	}
	return counts
}
