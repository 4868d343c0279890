package contracts

import "context"

// SeriesLoader provides bar series by instrument id (full code)
// ⭐ SSOT: 바 시리즈 로더 인터페이스
type SeriesLoader interface {
	// List returns every instrument id available in the archive
	List(ctx context.Context) ([]string, error)

	// Load returns the series for id, or ErrNotFound
	Load(ctx context.Context, id string) (*Series, error)
}

// ConceptLookup resolves a pure code to its concept tags
type ConceptLookup interface {
	Lookup(code string) string
}

// NameLookup resolves a pure code to the instrument name
type NameLookup interface {
	Name(code string) string
}

// Classifier derives a Stage from a bar series
type Classifier interface {
	Classify(s *Series) Stage
}

// ResultSink consumes a finished report
type ResultSink interface {
	Write(ctx context.Context, report *Report) error
}
