package contracts

import "errors"

var (
	// ErrNotFound means the instrument has no backing series
	ErrNotFound = errors.New("series not found")

	// ErrMalformedSeries means the source could not yield a usable series
	ErrMalformedSeries = errors.New("malformed series")

	// ErrNoSeries means the whole input set is empty or unavailable
	ErrNoSeries = errors.New("no series available")

	// ErrUnknownStrategy means the strategy id is not registered
	ErrUnknownStrategy = errors.New("unknown strategy")
)
