// Package config reads scenario files describing a simulation run: the run
// period, the timestep raster and the component graph with per-component
// parameter blocks.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type Scenario struct {
	Name                   string           `json:"name" yaml:"name"`
	Start                  time.Time        `json:"start" yaml:"start"`
	SecondsPerTimestep     float64          `json:"secondsPerTimestep" yaml:"secondsPerTimestep"`
	Timesteps              int              `json:"timesteps" yaml:"timesteps"`
	PredictionHorizonSteps int              `json:"predictionHorizonSteps" yaml:"predictionHorizonSteps"`
	ResultsPath            string           `json:"resultsPath" yaml:"resultsPath"`
	Components             []ComponentBlock `json:"components" yaml:"components"`
}

// ComponentBlock pairs a component type with its untyped parameter block.
// The block is decoded into the component's own config struct at build time.
type ComponentBlock struct {
	Type   string         `json:"type" yaml:"type"`
	Name   string         `json:"name" yaml:"name"`
	Params map[string]any `json:"params" yaml:"params"`
}

// Read loads a scenario from a JSON or YAML file, chosen by extension.
func Read(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario: %w", err)
	}

	var scenario Scenario
	switch ext := filepath.Ext(path); ext {
	case ".json":
		err = json.Unmarshal(data, &scenario)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &scenario)
	default:
		return Scenario{}, fmt.Errorf("scenario %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario %s: %w", path, err)
	}

	if err := scenario.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return scenario, nil
}

func (s Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.SecondsPerTimestep <= 0 {
		return fmt.Errorf("secondsPerTimestep must be positive")
	}
	if s.Timesteps <= 0 {
		return fmt.Errorf("timesteps must be positive")
	}
	if s.PredictionHorizonSteps < 0 {
		return fmt.Errorf("predictionHorizonSteps must not be negative")
	}
	if len(s.Components) == 0 {
		return fmt.Errorf("at least one component is required")
	}
	seen := make(map[string]bool)
	for i, block := range s.Components {
		if block.Type == "" {
			return fmt.Errorf("component %d: type is required", i)
		}
		if block.Name == "" {
			return fmt.Errorf("component %d (%s): name is required", i, block.Type)
		}
		if seen[block.Name] {
			return fmt.Errorf("component name %q used twice", block.Name)
		}
		seen[block.Name] = true
	}
	return nil
}

// DecodeParams maps an untyped parameter block onto a component config
// struct. Unknown keys are an error so typos in scenario files surface
// instead of silently falling back to defaults.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(params); err != nil {
		return fmt.Errorf("decoding params: %w", err)
	}
	return nil
}
