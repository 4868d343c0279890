// Package concept holds the read-only code -> theme and code -> name maps
// consumed when annotating hits, plus the job that refreshes them.
package concept

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/patternscan/internal/contracts"
	"github.com/wonny/patternscan/pkg/logger"
)

// Unclassified is returned for codes without concept tags
const Unclassified = "unclassified"

type cacheFile struct {
	Date string            `json:"date"` // YYYYMMDD
	Data map[string]string `json:"data"`
}

// Map is the concept tag lookup, keyed by pure code
// ⭐ SSOT: 개념 태그 조회는 여기서만
type Map struct {
	date string
	data map[string]string
}

var _ contracts.ConceptLookup = (*Map)(nil)

// NewMap wraps data; a nil map is treated as empty
func NewMap(date string, data map[string]string) *Map {
	if data == nil {
		data = make(map[string]string)
	}
	return &Map{date: date, data: data}
}

// LoadMap reads a cache file of the form {"date": "...", "data": {...}}
func LoadMap(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read concept cache: %w", err)
	}

	var f cacheFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse concept cache %s: %w", path, err)
	}
	return NewMap(f.Date, f.Data), nil
}

// LoadMapOrEmpty never fails: a missing or unreadable cache yields an
// empty map so that every lookup is Unclassified
func LoadMapOrEmpty(path string, log *logger.Logger) *Map {
	m, err := LoadMap(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.WithError(err).WithField("path", path).Warn("Concept cache unusable, continuing without tags")
		}
		return NewMap("", nil)
	}
	return m
}

// Lookup returns the " / " joined tags of a pure code, or Unclassified
func (m *Map) Lookup(code string) string {
	if v, ok := m.data[code]; ok && strings.TrimSpace(v) != "" {
		return v
	}
	return Unclassified
}

// Tags splits the tags of a code
func (m *Map) Tags(code string) []string {
	return contracts.Hit{Concepts: m.Lookup(code)}.ConceptTags()
}

// Date returns the sync date of the cache (YYYYMMDD), empty when unknown
func (m *Map) Date() string {
	return m.date
}

// Len returns the number of tagged codes
func (m *Map) Len() int {
	return len(m.data)
}

// BoardCount is one concept and how many codes carry it
type BoardCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Boards counts codes per concept, most common first
func (m *Map) Boards() []BoardCount {
	counts := make(map[string]int)
	for code := range m.data {
		for _, tag := range m.Tags(code) {
			counts[tag]++
		}
	}

	out := make([]BoardCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, BoardCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Save writes the map in cache file format
func (m *Map) Save(path string) error {
	return writeJSON(path, cacheFile{Date: m.date, Data: m.data})
}

// writeJSON writes through a temp file so readers never see a partial cache
func writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}
