// Package config loads cardgrid settings from a YAML file with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/cardgrid/pkg/core"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (CARDGRID_*). A missing file is not an
// error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envValue maps CARDGRID_SERVER__ALLOWED_ORIGINS=a,b to
// server.allowed_origins = [a b].
func envValue(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if key == "server.allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validCodecs = map[string]bool{
	CodecJSON:    true,
	CodecMsgPack: true,
}

var validLogFormats = map[string]bool{
	LogFormatText: true,
	LogFormatJSON: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Content.Source == "" {
		return fmt.Errorf("content.source is required")
	}
	if c.Content.Timeout < 0 {
		return fmt.Errorf("content.timeout must be non-negative")
	}
	if c.Content.Retries < 0 {
		return fmt.Errorf("content.retries must be non-negative")
	}

	if c.Page.Breakpoint <= 0 {
		return fmt.Errorf("page.breakpoint must be positive")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		return fmt.Errorf("server.path %q must start with /", c.Server.Path)
	}
	if !validCodecs[c.Server.Codec] {
		return fmt.Errorf("invalid server.codec %q: must be one of json, msgpack", c.Server.Codec)
	}
	if c.Server.MaxSessions < 0 {
		return fmt.Errorf("server.max_sessions must be non-negative")
	}
	if c.Server.MaxSessionsPerIP < 0 {
		return fmt.Errorf("server.max_sessions_per_ip must be non-negative")
	}
	if c.Server.EventRate < 0 || c.Server.EventBurst < 0 {
		return fmt.Errorf("server.event_rate and server.event_burst must be non-negative")
	}
	if err := c.Timeouts().Validate(); err != nil {
		return fmt.Errorf("invalid server timeouts: %w", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log.format %q: must be one of text, json", c.Log.Format)
	}

	return nil
}

// Timeouts returns the router timeouts for this configuration.
func (c *Config) Timeouts() core.TimeoutConfig {
	t := core.DefaultTimeoutConfig()
	t.ComponentMount = c.Server.MountTimeout
	t.ComponentEvent = c.Server.EventTimeout
	if c.Server.IdleTimeout > 0 {
		t.SessionIdle = c.Server.IdleTimeout
	}
	if c.Server.ShutdownGrace > 0 {
		t.GracefulShutdown = c.Server.ShutdownGrace
	}
	return t
}

// NewLogger builds the process logger described by c.Log.
func (c *Config) NewLogger() (*logging.SlogLogger, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	// stdout carries rendered pages.
	opts := []logging.LoggerOption{logging.WithLevel(level), logging.WithOutput(os.Stderr)}
	if c.Log.Format == LogFormatJSON {
		opts = append(opts, logging.WithJSON())
	}
	if c.Log.File != "" {
		opts = append(opts, logging.WithFile(logging.FileConfig{
			Path:       c.Log.File,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
			MaxAgeDays: c.Log.MaxAgeDays,
			Compress:   true,
		}, true))
	}
	return logging.NewSlogLogger(opts...), nil
}
