package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/patternscan/internal/contracts"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(defaults())

	assert.Equal(t, []string{IDMA5Support, IDVolumeBreakout, IDBreakoutPullback}, r.IDs())
	require.Len(t, r.List(), 3)

	e, err := r.Get(IDBreakoutPullback)
	require.NoError(t, err)
	assert.Equal(t, "Breakout Pullback", e.Name)
	assert.IsType(t, &BreakoutPullback{}, e.Strategy)

	_, err = r.Get("strategy4")
	assert.ErrorIs(t, err, contracts.ErrUnknownStrategy)
}

func TestRegistry_UsesConfiguredParams(t *testing.T) {
	cfg := defaults()
	cfg.BreakoutPullback.CrashScanEnd = -4
	r := NewRegistry(cfg)

	e, err := r.Get(IDBreakoutPullback)
	require.NoError(t, err)
	assert.Equal(t, contracts.StageBuilding, e.Strategy.Classify(crashAtEnd().series(t)))
}

func TestRegistry_IDsIsACopy(t *testing.T) {
	r := NewRegistry(defaults())
	ids := r.IDs()
	ids[0] = "changed"
	assert.Equal(t, IDMA5Support, r.IDs()[0])
}
