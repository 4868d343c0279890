package scanner

import (
	"context"
	"fmt"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/strategy"
)

// Analysis is the full decision trace for one instrument
type Analysis struct {
	Strategy   string              `json:"strategy"`
	Bars       int                 `json:"bars"`
	Hit        contracts.Hit       `json:"hit"`
	Evaluation strategy.Evaluation `json:"evaluation"`
}

// Analyze evaluates one instrument and returns the checks behind its stage.
// Unlike Run, errors are returned to the caller.
func (s *Scanner) Analyze(ctx context.Context, entry strategy.Entry, code string) (*Analysis, error) {
	id, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	series, err := s.loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no bars", contracts.ErrMalformedSeries, id)
	}

	eval := entry.Strategy.Evaluate(series.Clone())
	return &Analysis{
		Strategy:   entry.ID,
		Bars:       series.Len(),
		Hit:        s.BuildHit(series, eval.Stage),
		Evaluation: eval,
	}, nil
}
