package strategy

import (
	"fmt"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/internal/strategyconfig"
)

// Strategy ids accepted by the CLI and the API
const (
	IDMA5Support       = "ma5"
	IDVolumeBreakout   = "volume_breakout"
	IDBreakoutPullback = "breakout_pullback"
)

// Entry describes a registered strategy
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Strategy    Strategy `json:"-"`
}

// Registry maps strategy ids to classifier variants
// ⭐ SSOT: 전략 id → 분류기 매핑은 여기서만
type Registry struct {
	entries map[string]Entry
	order   []string
}

// NewRegistry builds the three classifiers from cfg
func NewRegistry(cfg *strategyconfig.Config) *Registry {
	r := &Registry{entries: make(map[string]Entry)}

	r.add(Entry{
		ID:          IDMA5Support,
		Name:        "MA5 Support",
		Description: "Accumulation, shrink-volume shakeout, then pullback onto a rising MA5",
		Strategy:    NewMA5Support(cfg.MA5Support),
	})
	r.add(Entry{
		ID:          IDVolumeBreakout,
		Name:        "Volume Breakout",
		Description: "Accumulation straight into a volume breakout, no consolidation phase",
		Strategy:    NewVolumeBreakout(cfg.VolumeBreakout),
	})
	r.add(Entry{
		ID:          IDBreakoutPullback,
		Name:        "Breakout Pullback",
		Description: "Three rising candles followed by a shrink-volume crash and recovery",
		Strategy:    NewBreakoutPullback(cfg.BreakoutPullback),
	})

	return r
}

func (r *Registry) add(e Entry) {
	r.entries[e.ID] = e
	r.order = append(r.order, e.ID)
}

// Get returns the entry for id
func (r *Registry) Get(id string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", contracts.ErrUnknownStrategy, id)
	}
	return e, nil
}

// List returns all entries in registration order
func (r *Registry) List() []Entry {
	out := make([]Entry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// IDs returns the registered ids in registration order
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
