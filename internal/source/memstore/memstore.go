// Package memstore keeps bar series in memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/logger"
)

// Store is an in-memory bar archive keyed by full code
// ⭐ SSOT: 메모리 시리즈 캐시는 이 구조체에서만
type Store struct {
	mu     sync.RWMutex
	series map[string]*contracts.Series
	logger *logger.Logger
}

// New creates a store holding the given series
func New(log *logger.Logger, series ...*contracts.Series) *Store {
	s := &Store{
		series: make(map[string]*contracts.Series, len(series)),
		logger: log,
	}
	for _, sr := range series {
		s.put(sr)
	}
	return s
}

// List returns the stored ids sorted
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.series) == 0 {
		return nil, contracts.ErrNoSeries
	}
	ids := make([]string, 0, len(s.series))
	for id := range s.series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Load returns a copy of the stored series
func (s *Store) Load(ctx context.Context, id string) (*contracts.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrNotFound, id)
	}
	return sr.Clone(), nil
}

// Write replaces the series of its full code
func (s *Store) Write(ctx context.Context, sr *contracts.Series) error {
	if sr == nil || sr.Len() == 0 {
		return fmt.Errorf("%w: empty series", contracts.ErrMalformedSeries)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(sr)
	return nil
}

func (s *Store) put(sr *contracts.Series) {
	s.series[sr.FullCode] = sr.Clone()
}

// Len returns the number of stored series
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}

// Preload copies every readable series of src into a new store.
// Unreadable instruments are skipped and counted.
func Preload(ctx context.Context, src contracts.SeriesLoader, log *logger.Logger) (*Store, int, error) {
	ids, err := src.List(ctx)
	if err != nil {
		return nil, 0, err
	}

	s := New(log)
	skipped := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		sr, err := src.Load(ctx, id)
		if err != nil {
			skipped++
			log.WithError(err).WithField("code", id).Debug("Skipped unreadable series")
			continue
		}
		s.put(sr)
	}

	log.WithFields(map[string]interface{}{
		"loaded":  s.Len(),
		"skipped": skipped,
	}).Info("Preloaded bar archive")

	return s, skipped, nil
}
