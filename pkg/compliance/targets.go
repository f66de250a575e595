package compliance

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultShiftTarget is the expected number of staffed shifts per post per day
const DefaultShiftTarget = 3

// Targets maps post names to their expected shifts per day. Overrides match
// the post name exactly, case included.
type Targets struct {
	Default   int            `yaml:"default"`
	Overrides map[string]int `yaml:"overrides"`
}

// NewTargets builds a target table; a non-positive default falls back to DefaultShiftTarget
func NewTargets(def int, overrides map[string]int) Targets {
	t := Targets{Default: def, Overrides: make(map[string]int, len(overrides))}
	for name, v := range overrides {
		t.Overrides[name] = v
	}
	return t
}

// For returns the target of a post
func (t Targets) For(postName string) int {
	if v, ok := t.Overrides[postName]; ok && v > 0 {
		return v
	}
	if t.Default > 0 {
		return t.Default
	}
	return DefaultShiftTarget
}

// With returns a copy with extra overrides applied on top
func (t Targets) With(overrides map[string]int) Targets {
	merged := NewTargets(t.Default, t.Overrides)
	for name, v := range overrides {
		merged.Overrides[name] = v
	}
	return merged
}

// LoadTargetsFile reads a YAML target table. An empty path yields the defaults.
func LoadTargetsFile(path string, def int) (Targets, error) {
	if path == "" {
		return NewTargets(def, nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Targets{}, fmt.Errorf("read targets file: %w", err)
	}

	var t Targets
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Targets{}, fmt.Errorf("parse targets file %s: %w", path, err)
	}
	if t.Default <= 0 {
		t.Default = def
	}
	return NewTargets(t.Default, t.Overrides), nil
}
