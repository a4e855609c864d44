package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrMissingDatabaseURL is returned when no catalog DSN is configured.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required (use memory:// for the in-memory catalog)")

// MemoryDSN selects the in-memory catalog instead of PostgreSQL.
const MemoryDSN = "memory://"

// Config holds application configuration. It is loaded once at boot.
type Config struct {
	DatabaseURL     string        `yaml:"database_url" env:"DATABASE_URL"`
	RedisURL        string        `yaml:"redis_url" env:"REDIS_URL"`
	ServerPort      string        `yaml:"server_port" env:"SERVER_PORT"`
	UserAgent       string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout         time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	MigrationsPath  string        `yaml:"migrations_path" env:"MIGRATIONS_PATH"`
	ImportRateLimit int           `yaml:"import_rate_limit" env:"IMPORT_RATE_LIMIT"`
	Stream          StreamSettings
}

// StreamSettings controls how outward-facing stream URLs and server
// metadata are built.
type StreamSettings struct {
	// Domain is the public host[:port]. Empty means "use the request Host".
	Domain string `yaml:"server_domain"`
	// SSL forces https; otherwise the request scheme is used.
	SSL bool `yaml:"ssl_enabled"`
	// PreviewURL is the base of the hosted preview environment. When set,
	// HLS streams are routed through its edge-function proxy.
	PreviewURL string `yaml:"preview_proxy_url"`
	Timezone   string `yaml:"timezone"`
	ServerName string `yaml:"server_name"`
	HTTPPort   string `yaml:"http_port"`
	HTTPSPort  string `yaml:"https_port"`
	RTMPPort   string `yaml:"rtmp_port"`
}

// Location returns the configured timezone, falling back to UTC.
func (s StreamSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the current directory.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		UserAgent:      os.Getenv("FETCHER_USER_AGENT"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		Stream: StreamSettings{
			Domain:     os.Getenv("SERVER_DOMAIN"),
			SSL:        envBool("SERVER_SSL"),
			PreviewURL: os.Getenv("PREVIEW_PROXY_URL"),
			Timezone:   os.Getenv("TIMEZONE"),
			ServerName: os.Getenv("SERVER_NAME"),
			HTTPPort:   os.Getenv("PUBLIC_HTTP_PORT"),
			HTTPSPort:  os.Getenv("PUBLIC_HTTPS_PORT"),
			RTMPPort:   os.Getenv("PUBLIC_RTMP_PORT"),
		},
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	if s := os.Getenv("IMPORT_RATE_LIMIT"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			c.ImportRateLimit = n
		}
	}
	c.applyDefaults()
	if c.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.ServerPort == "" {
		c.ServerPort = "8080"
	}
	if c.UserAgent == "" {
		c.UserAgent = "StreamOne/1.0"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ImportRateLimit <= 0 {
		c.ImportRateLimit = 10
	}
	if c.Stream.Timezone == "" {
		c.Stream.Timezone = "UTC"
	}
	if c.Stream.ServerName == "" {
		c.Stream.ServerName = "StreamOne"
	}
	if c.Stream.HTTPPort == "" {
		c.Stream.HTTPPort = "80"
	}
	if c.Stream.HTTPSPort == "" {
		c.Stream.HTTPSPort = "443"
	}
	if c.Stream.RTMPPort == "" {
		c.Stream.RTMPPort = "1935"
	}
}

// ApplyPanelSettings overlays panel_settings rows (key → value) onto the
// stream settings. Unknown keys are ignored. Called once at boot.
func (c *Config) ApplyPanelSettings(kv map[string]string) {
	if v := strings.TrimSpace(kv["server_domain"]); v != "" {
		c.Stream.Domain = v
	}
	if v, ok := kv["ssl_enabled"]; ok {
		c.Stream.SSL = parseBool(v)
	}
	if v := strings.TrimSpace(kv["server_port"]); v != "" {
		c.Stream.HTTPPort = v
	}
	if v := strings.TrimSpace(kv["timezone"]); v != "" {
		c.Stream.Timezone = v
	}
	if v := strings.TrimSpace(kv["server_name"]); v != "" {
		c.Stream.ServerName = v
	}
}

func envBool(key string) bool {
	return parseBool(os.Getenv(key))
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
