// Package config loads per-class rate limit overrides from YAML:
//
//	classes:
//	  auth:
//	    max: 10
//	    window: 5m
//	  telemetry:
//	    max: 30
//	    window: 60s
//
// Classes not listed keep their defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"waypoint/internal/ratelimit/models"
)

type file struct {
	Classes map[string]classLimit `yaml:"classes"`
}

type classLimit struct {
	Max    int    `yaml:"max"`
	Window string `yaml:"window"`
}

// Load returns the default limits with any overrides from path applied. An
// empty path yields the defaults.
func Load(path string) (map[models.Class]models.Limit, error) {
	if path == "" {
		return models.DefaultLimits(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rate limit config: %w", err)
	}
	return Parse(data)
}

// Parse applies YAML overrides to the defaults.
func Parse(data []byte) (map[models.Class]models.Limit, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rate limit config: %w", err)
	}

	limits := models.DefaultLimits()
	for name, override := range f.Classes {
		class := models.Class(name)
		if !class.IsValid() {
			return nil, fmt.Errorf("unknown rate limit class %q", name)
		}
		limit := limits[class]
		if override.Max != 0 {
			limit.Max = override.Max
		}
		if override.Window != "" {
			window, err := time.ParseDuration(override.Window)
			if err != nil {
				return nil, fmt.Errorf("class %s: invalid window %q: %w", name, override.Window, err)
			}
			limit.Window = window
		}
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("class %s: %w", name, err)
		}
		limits[class] = limit
	}
	return limits, nil
}
