package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wricardo/cube-blast-game/game/engine"
)

// LoadTuning reads gameplay variables from a YAML file. Keys missing from the file keep
// their default values; an empty path returns the defaults.
func LoadTuning(path string) (engine.Tuning, error) {
	tuning := engine.DefaultTuning()
	if path == "" {
		return tuning, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tuning, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return tuning, fmt.Errorf("failed to parse tuning file '%s': %w", path, err)
	}
	if err := tuning.Validate(); err != nil {
		return tuning, err
	}
	return tuning, nil
}

// SaveTuning writes gameplay variables to a YAML file
func SaveTuning(path string, tuning engine.Tuning) error {
	if err := tuning.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(tuning)
	if err != nil {
		return fmt.Errorf("failed to marshal tuning: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tuning file: %w", err)
	}
	return nil
}
