package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL     string         `yaml:"database_url"`
	RedisURL        string         `yaml:"redis_url"`
	ServerPort      string         `yaml:"server_port"`
	UserAgent       string         `yaml:"user_agent"`
	Timeout         string         `yaml:"timeout"`
	LogLevel        string         `yaml:"log_level"`
	MigrationsPath  string         `yaml:"migrations_path"`
	ImportRateLimit int            `yaml:"import_rate_limit"`
	Stream          StreamSettings `yaml:"stream"`
}

// LoadFromFile loads config from a YAML file. database_url is required.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.DatabaseURL == "" {
		return nil, ErrMissingDatabaseURL
	}
	c := &Config{
		DatabaseURL:     f.DatabaseURL,
		RedisURL:        f.RedisURL,
		ServerPort:      f.ServerPort,
		UserAgent:       f.UserAgent,
		LogLevel:        f.LogLevel,
		MigrationsPath:  f.MigrationsPath,
		ImportRateLimit: f.ImportRateLimit,
		Stream:          f.Stream,
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			c.Timeout = d
		}
	}
	c.applyDefaults()
	return c, nil
}
