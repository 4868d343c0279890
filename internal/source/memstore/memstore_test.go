package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/logger"
)

func series(t *testing.T, code string, n int) *contracts.Series {
	t.Helper()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, n)
	for i := range bars {
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: 10, High: 11, Low: 9, Close: 10, Volume: 100}
	}
	s, err := contracts.NewSeries(code, bars)
	require.NoError(t, err)
	return s
}

func TestStore_ListLoad(t *testing.T) {
	ctx := context.Background()
	s := New(logger.Nop(), series(t, "sz.000001", 3), series(t, "sh.600000", 5))

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sh.600000", "sz.000001"}, ids)

	got, err := s.Load(ctx, "sh.600000")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Len())

	// loaded copies never alias the stored bars
	got.Bars[0].Close = 99
	again, _ := s.Load(ctx, "sh.600000")
	assert.Equal(t, 10.0, again.Bars[0].Close)

	_, err = s.Load(ctx, "sh.600001")
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestStore_Empty(t *testing.T) {
	_, err := New(logger.Nop()).List(context.Background())
	assert.ErrorIs(t, err, contracts.ErrNoSeries)
}

func TestStore_Write(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.Write(context.Background(), series(t, "sh.600000", 2)))
	assert.Equal(t, 1, s.Len())

	err := s.Write(context.Background(), &contracts.Series{FullCode: "sh.600001"})
	assert.ErrorIs(t, err, contracts.ErrMalformedSeries)
}

type flakyLoader struct{ *Store }

func (f flakyLoader) Load(ctx context.Context, id string) (*contracts.Series, error) {
	if id == "sz.000001" {
		return nil, errors.New("disk error")
	}
	return f.Store.Load(ctx, id)
}

func TestPreload(t *testing.T) {
	src := flakyLoader{New(logger.Nop(), series(t, "sz.000001", 3), series(t, "sh.600000", 5))}

	s, skipped, err := Preload(context.Background(), src, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, s.Len())
}
