package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied after loading when the corresponding field is unset.
const (
	DefaultPort           = 8090
	DefaultDir            = "data"
	DefaultMaxShapePoints = 260
	DefaultScheduleMode   = "external"
	DefaultTimezone       = "America/New_York"
)

// Load reads and validates the application configuration. When path is empty
// the usual candidate locations are tried in order.
func Load(path string) (*AppConfig, error) {
	paths := []string{path}
	if path == "" {
		paths = []string{"config.yml", "config.yaml"}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes, validates and defaults a configuration document.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	v := validator.New()
	if err := v.Struct(cfg.Server); err != nil {
		return nil, err
	}
	if err := v.Struct(cfg.Output); err != nil {
		return nil, err
	}
	if len(cfg.Feeds) == 0 {
		return nil, fmt.Errorf("config: at least one feed is required")
	}
	for i, f := range cfg.Feeds {
		if err := v.Struct(f); err != nil {
			return nil, fmt.Errorf("config: feed %d (%s): %w", i, f.ID, err)
		}
		for _, st := range f.SearchTerms {
			if err := v.Struct(st); err != nil {
				return nil, fmt.Errorf("config: feed %s search terms: %w", f.ID, err)
			}
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultDir
	}
	if cfg.Output.MaxShapePoints == 0 {
		cfg.Output.MaxShapePoints = DefaultMaxShapePoints
	}
	if cfg.Output.ScheduleMode == "" {
		cfg.Output.ScheduleMode = DefaultScheduleMode
	}
	if cfg.Output.Timezone == "" {
		cfg.Output.Timezone = DefaultTimezone
	}
}
