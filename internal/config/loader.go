package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/vocero/internal/engine"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Fields absent from the document keep their [Default] values; unknown
// fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Directory.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("directory.ttl_seconds %d must not be negative", cfg.Directory.TTLSeconds))
	}
	if cfg.Directory.SourceTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("directory.source_timeout_seconds %d must not be negative", cfg.Directory.SourceTimeoutSeconds))
	}

	if cfg.Engines.AI.ServerURL != "" {
		if _, err := url.ParseRequestURI(cfg.Engines.AI.ServerURL); err != nil {
			errs = append(errs, fmt.Errorf("engines.ai.server_url %q is not a valid URL", cfg.Engines.AI.ServerURL))
		}
	}
	if cfg.Engines.AI.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("engines.ai.timeout_seconds %d must not be negative", cfg.Engines.AI.TimeoutSeconds))
	}

	if r := cfg.Defaults.Rate; r != 0 && (r < engine.MinRate || r > engine.MaxRate) {
		errs = append(errs, fmt.Errorf("defaults.rate %.2f is out of range [%.1f, %.1f]", r, engine.MinRate, engine.MaxRate))
	}
	if v := cfg.Defaults.Volume; v != 0 && (v < engine.MinVolume || v > engine.MaxVolume) {
		errs = append(errs, fmt.Errorf("defaults.volume %.2f is out of range [%.1f, %.1f]", v, engine.MinVolume, engine.MaxVolume))
	}
	if p := cfg.Defaults.Pitch; p != 0 && (p < engine.MinPitch || p > engine.MaxPitch) {
		errs = append(errs, fmt.Errorf("defaults.pitch %.2f is out of range [%.1f, %.1f]", p, engine.MinPitch, engine.MaxPitch))
	}
	if f := cfg.Defaults.Format; f != "" && !engine.Format(f).IsValid() {
		errs = append(errs, fmt.Errorf("defaults.format %q is invalid; valid values: wav, aiff", f))
	}

	return errors.Join(errs...)
}
