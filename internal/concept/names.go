package concept

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/wonny/patternscan/internal/contracts"
)

// Names maps pure codes to display names
type Names map[string]string

var _ contracts.NameLookup = Names(nil)

// LoadNames reads a {"600000": "name"} file; a missing file is empty
func LoadNames(path string) (Names, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Names{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read name cache: %w", err)
	}

	var n Names
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("parse name cache %s: %w", path, err)
	}
	if n == nil {
		n = Names{}
	}
	return n, nil
}

// Name returns the display name or ""
func (n Names) Name(code string) string {
	return n[code]
}

// Merge copies entries of other into n, overwriting existing ones
func (n Names) Merge(other Names) {
	for k, v := range other {
		n[k] = v
	}
}

// Save writes the names file
func (n Names) Save(path string) error {
	return writeJSON(path, map[string]string(n))
}
