package sink

import (
	"encoding/json"
	"io"
	"time"

	"github.com/wonny/patternscan/internal/contracts"
)

// Envelope is the API response wrapper
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ScanData is the payload of a scan response
type ScanData struct {
	RunID               string       `json:"runId"`
	StrategyName        string       `json:"strategyName"`
	StrategyDisplayName string       `json:"strategyDisplayName"`
	GeneratedAt         time.Time    `json:"generatedAt"`
	TotalScanned        int          `json:"totalScanned"`
	TotalHit            int          `json:"totalHit"`
	Partial             bool         `json:"partial,omitempty"`
	Results             []ResultItem `json:"results"`
}

// ResultItem is one hit as exposed by the API
type ResultItem struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	FullCode string  `json:"fullCode"`
	Price    float64 `json:"price"`
	Change   string  `json:"change"`
	Stage    string  `json:"stage"`
	Concepts string  `json:"concepts"`
}

// NewScanData converts a report into the API payload
func NewScanData(r *contracts.Report) ScanData {
	items := make([]ResultItem, len(r.Hits))
	for i, h := range r.Hits {
		items[i] = ResultItem{
			Code:     h.Code,
			Name:     h.Name,
			FullCode: h.FullCode,
			Price:    h.Price,
			Change:   h.Change,
			Stage:    h.Stage.String(),
			Concepts: h.Concepts,
		}
	}

	return ScanData{
		RunID:               r.RunID,
		StrategyName:        r.Strategy,
		StrategyDisplayName: r.StrategyName,
		GeneratedAt:         r.GeneratedAt,
		TotalScanned:        r.TotalScanned,
		TotalHit:            len(r.Hits),
		Partial:             r.Partial,
		Results:             items,
	}
}

// RenderJSON writes the success envelope of a report
func RenderJSON(w io.Writer, r *contracts.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(Envelope{Success: true, Data: NewScanData(r)})
}
