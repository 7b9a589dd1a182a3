package core

import (
	"errors"
	"fmt"
)

// Preset is a named quality/speed tradeoff consumed by the generation engine.
type Preset string

// Supported presets, ordered from fastest to highest quality.
const (
	PresetUltraFast   Preset = "ultra_fast"
	PresetFast        Preset = "fast"
	PresetStandard    Preset = "standard"
	PresetHighQuality Preset = "high_quality"
)

// DefaultPreset is used when a request leaves the preset blank.
const DefaultPreset = PresetHighQuality

// ErrUnknownPreset is returned for preset names outside the fixed set.
var ErrUnknownPreset = errors.New("unknown preset")

// Presets returns the supported presets in display order.
func Presets() []Preset {
	return []Preset{PresetUltraFast, PresetFast, PresetStandard, PresetHighQuality}
}

// ParsePreset converts a user-supplied name into a Preset. An empty name maps
// to DefaultPreset.
func ParsePreset(name string) (Preset, error) {
	if name == "" {
		return DefaultPreset, nil
	}

	for _, preset := range Presets() {
		if string(preset) == name {
			return preset, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// String implements fmt.Stringer.
func (p Preset) String() string {
	return string(p)
}
