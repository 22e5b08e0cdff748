package config

import "time"

// Wire formats accepted by server.codec.
const (
	CodecJSON    = "json"
	CodecMsgPack = "msgpack"
)

// Log formats accepted by log.format.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the top-level cardgrid configuration, corresponding to
// cardgrid.yml.
type Config struct {
	Content ContentConfig `yaml:"content" koanf:"content"`
	Page    PageConfig    `yaml:"page" koanf:"page"`
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Log     LogConfig     `yaml:"log" koanf:"log"`
}

// ContentConfig says where the content document comes from.
type ContentConfig struct {
	// Source is a file path or an http(s) URL.
	Source  string        `yaml:"source" koanf:"source"`
	Timeout time.Duration `yaml:"timeout" koanf:"timeout"`
	// Retries applies to HTTP sources only.
	Retries int `yaml:"retries" koanf:"retries"`
}

// PageConfig controls how the page is built.
type PageConfig struct {
	// Shell is an HTML file used instead of the built-in page template.
	Shell      string `yaml:"shell" koanf:"shell"`
	Breakpoint int    `yaml:"breakpoint" koanf:"breakpoint"`
	Separators string `yaml:"separators" koanf:"separators"`
}

// ServerConfig holds settings for cardgrid serve.
type ServerConfig struct {
	Addr           string        `yaml:"addr" koanf:"addr"`
	Path           string        `yaml:"path" koanf:"path"`
	Codec          string        `yaml:"codec" koanf:"codec"`
	Watch          bool          `yaml:"watch" koanf:"watch"`
	WatchDebounce  time.Duration `yaml:"watch_debounce" koanf:"watch_debounce"`
	AllowedOrigins []string      `yaml:"allowed_origins" koanf:"allowed_origins"`
	InsecureDev    bool          `yaml:"insecure_dev" koanf:"insecure_dev"`
	MaxSessions    int           `yaml:"max_sessions" koanf:"max_sessions"`
	// MaxSessionsPerIP of zero means no per-address limit.
	MaxSessionsPerIP int `yaml:"max_sessions_per_ip" koanf:"max_sessions_per_ip"`
	// EventRate is events per second per session; zero disables it.
	EventRate  float64 `yaml:"event_rate" koanf:"event_rate"`
	EventBurst int     `yaml:"event_burst" koanf:"event_burst"`
	// Metrics exposes /metrics.
	Metrics       bool          `yaml:"metrics" koanf:"metrics"`
	MountTimeout  time.Duration `yaml:"mount_timeout" koanf:"mount_timeout"`
	EventTimeout  time.Duration `yaml:"event_timeout" koanf:"event_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout" koanf:"idle_timeout"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace" koanf:"shutdown_grace"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
	// File enables a rotating log file next to stderr output.
	File       string `yaml:"file" koanf:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" koanf:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" koanf:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" koanf:"max_age_days"`
}
