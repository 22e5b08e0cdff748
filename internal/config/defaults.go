package config

import (
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/accordion"
	"github.com/gabrielmiguelok/cardgrid/pkg/content"
	"github.com/gabrielmiguelok/cardgrid/pkg/textutil"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "cardgrid.yml"

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: CARDGRID_SERVER__ADDR sets server.addr.
const EnvPrefix = "CARDGRID_"

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() *Config {
	return &Config{
		Content: ContentConfig{
			Source:  content.DefaultName,
			Timeout: 10 * time.Second,
		},
		Page: PageConfig{
			Breakpoint: accordion.DefaultBreakpoint,
			Separators: textutil.DefaultSeparators,
		},
		Server: ServerConfig{
			Addr:             ":8080",
			Path:             "/",
			Codec:            CodecJSON,
			WatchDebounce:    200 * time.Millisecond,
			MaxSessions:      1000,
			MaxSessionsPerIP: 20,
			EventRate:        20,
			EventBurst:       40,
			Metrics:          true,
			MountTimeout:     10 * time.Second,
			EventTimeout:     10 * time.Second,
			IdleTimeout:      30 * time.Minute,
			ShutdownGrace:    15 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     LogFormatText,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}
