// Package config loads the editor configuration file.
//
// The file is optional YAML (storyed.yaml next to the story, or a path
// given via --config); a missing file yields the defaults. Provider
// sections are kept as generic maps and decoded per provider with
// mapstructure, so each adapter owns its option names.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/mooncrowned/storyed/internal/adapters/chadai"
	"github.com/mooncrowned/storyed/internal/adapters/openrouter"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/ports"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = "storyed.yaml"

// Config is the top-level configuration.
type Config struct {
	// Provider names the active image provider section.
	Provider string `yaml:"provider"`
	// Aspect is the ratio requested from providers.
	Aspect string `yaml:"aspect"`
	// DebounceMS overrides the save debounce window in milliseconds.
	DebounceMS int `yaml:"debounce_ms"`

	Lock LockConfig `yaml:"lock"`

	// Providers holds one untyped option map per provider name.
	Providers map[string]map[string]any `yaml:"providers"`
}

// LockConfig enables the distributed story lock.
type LockConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Prefix    string `yaml:"prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:   "chadai",
		Aspect:     domain.DefaultAspect,
		DebounceMS: int(domain.DebounceWindow / time.Millisecond),
		Lock:       LockConfig{Prefix: "storyed:"},
		Providers:  map[string]map[string]any{},
	}
}

// Load reads a config file, merging it over the defaults. A missing file
// (or an empty path pointing at a missing DefaultFileName) is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Aspect == "" {
		cfg.Aspect = domain.DefaultAspect
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = int(domain.DebounceWindow / time.Millisecond)
	}
	return cfg, nil
}

// Debounce returns the configured debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// DecodeProvider decodes one provider's option map into a typed struct.
func (c *Config) DecodeProvider(name string, out any) error {
	raw, ok := c.Providers[name]
	if !ok {
		return fmt.Errorf("provider %q has no configuration section", name)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder for provider %q: %w", name, err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("invalid configuration for provider %q: %w", name, err)
	}
	return nil
}

type chadaiOptions struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	MaxWaitMS      int    `mapstructure:"max_wait_ms"`
}

type openrouterOptions struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// BuildProvider constructs the configured ImageProvider.
func (c *Config) BuildProvider(httpClient *http.Client, logger *slog.Logger) (ports.ImageProvider, error) {
	switch c.Provider {
	case "chadai":
		var opts chadaiOptions
		if err := c.DecodeProvider("chadai", &opts); err != nil {
			return nil, err
		}
		return chadai.New(chadai.Config{
			BaseURL:      opts.BaseURL,
			APIKey:       opts.APIKey,
			Model:        opts.Model,
			PollInterval: time.Duration(opts.PollIntervalMS) * time.Millisecond,
			MaxWait:      time.Duration(opts.MaxWaitMS) * time.Millisecond,
		}, httpClient, logger)
	case "openrouter":
		var opts openrouterOptions
		if err := c.DecodeProvider("openrouter", &opts); err != nil {
			return nil, err
		}
		return openrouter.New(openrouter.Config{
			BaseURL: opts.BaseURL,
			APIKey:  opts.APIKey,
			Model:   opts.Model,
		}, httpClient, logger)
	case "":
		return nil, errors.New("no image provider configured")
	default:
		return nil, fmt.Errorf("unknown image provider %q", c.Provider)
	}
}
