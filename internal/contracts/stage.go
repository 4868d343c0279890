package contracts

import (
	"encoding/json"
	"fmt"
)

// Stage is the lifecycle label a classifier assigns to an instrument
// ⭐ SSOT: 단계(Stage) 열거형은 여기서만 정의
type Stage int

const (
	StageNone Stage = iota
	StageConsolidation
	StageBuilding
	StageBreakout
	StageBreakoutKey
	StageBreakoutCritical
)

var stageNames = map[Stage]string{
	StageNone:             "None",
	StageConsolidation:    "Consolidation",
	StageBuilding:         "Building",
	StageBreakout:         "Breakout",
	StageBreakoutKey:      "Breakout-Key",
	StageBreakoutCritical: "Breakout-Critical",
}

// String returns the wire name of the stage
func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// IsSignal reports whether the stage is a match
func (s Stage) IsSignal() bool {
	return s != StageNone
}

// Rank orders stages by significance; higher ranks sort first in reports
func (s Stage) Rank() int {
	return int(s)
}

// ParseStage converts a wire name back into a Stage
func ParseStage(name string) (Stage, error) {
	for stage, n := range stageNames {
		if n == name {
			return stage, nil
		}
	}
	return StageNone, fmt.Errorf("unknown stage %q", name)
}

// MarshalJSON encodes the stage as its name
func (s Stage) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a stage name
func (s *Stage) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	stage, err := ParseStage(name)
	if err != nil {
		return err
	}
	*s = stage
	return nil
}
