package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-meshlet/engine/model"
	"gopkg.in/yaml.v3"
)

// Load reads settings with priority defaults < file. An empty path returns the defaults.
//
// Parameters:
//   - path: the YAML settings file, or ""
//
// Returns:
//   - *Settings: the merged and validated settings
//   - error: an error if the file cannot be read, parsed or validated
func Load(path string) (*Settings, error) {
	cfg := Default()
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(cfg *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Save writes the settings to path as YAML.
//
// Parameters:
//   - path: the destination file
//
// Returns:
//   - error: an error if encoding or writing fails
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings for values the engine cannot run with.
//
// Returns:
//   - error: every problem found joined together, or nil
func (s *Settings) Validate() error {
	var errs []error
	if s.Window.Width <= 0 || s.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", s.Window.Width, s.Window.Height))
	}
	if s.Window.MSAA != 1 && s.Window.MSAA != 4 {
		errs = append(errs, fmt.Errorf("msaa %d must be 1 or 4", s.Window.MSAA))
	}
	if s.Render.FramesInFlight < 1 || s.Render.FramesInFlight > 3 {
		errs = append(errs, fmt.Errorf("frames_in_flight %d must be between 1 and 3", s.Render.FramesInFlight))
	}
	switch s.Render.Visibility {
	case VisibilityPassThrough, VisibilityFrustum:
	default:
		errs = append(errs, fmt.Errorf("unknown visibility test %q", s.Render.Visibility))
	}
	switch s.Render.NormalEncoding {
	case model.NormalEncodingLegacy.String(), model.NormalEncodingSymmetric.String():
	default:
		errs = append(errs, fmt.Errorf("unknown normal encoding %q", s.Render.NormalEncoding))
	}
	if s.Meshlet.Workers < 1 {
		errs = append(errs, fmt.Errorf("meshlet workers %d must be at least 1", s.Meshlet.Workers))
	}
	if s.Meshlet.CacheEntries < 0 {
		errs = append(errs, fmt.Errorf("meshlet cache_entries %d must not be negative", s.Meshlet.CacheEntries))
	}
	if s.Demo.GridSize < 1 {
		errs = append(errs, fmt.Errorf("demo grid_size %d must be at least 1", s.Demo.GridSize))
	}
	return errors.Join(errs...)
}
