// Package config loads codexd settings from flags, environment variables
// (CODEXD_ prefix) and an optional .codexd.yaml file via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"`
	CORSOrigins string `mapstructure:"cors_origins"`
}

// CORSOriginsList splits the comma-separated origins setting.
func (s ServerConfig) CORSOriginsList() []string {
	var out []string
	for _, origin := range strings.Split(s.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// CodexConfig holds agent binary settings.
type CodexConfig struct {
	// Binary is the agent executable name or path.
	Binary string `mapstructure:"binary"`
	// Home overrides the resolved Codex home directory. Empty means the
	// CODEX_HOME environment variable or ~/.codex.
	Home string `mapstructure:"home"`
}

// RunnerConfig holds job supervision settings. MaxOutputLines is defaulted
// and range-checked at load but is not passed to the runner; per-job tail
// capacity comes from the exec request or runner.DefaultMaxOutputLines.
type RunnerConfig struct {
	MaxOutputLines int `mapstructure:"max_output_lines"`
}

// MongoConfig holds the optional conversation-store backend. The
// conversation routes stay disabled when URI is empty.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// SkillsConfig holds the suggester manifest location. Empty means the
// embedded default manifest.
type SkillsConfig struct {
	ManifestPath string `mapstructure:"manifest_path"`
}

// Config is the full codexd configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Codex  CodexConfig  `mapstructure:"codex"`
	Runner RunnerConfig `mapstructure:"runner"`
	Mongo  MongoConfig  `mapstructure:"mongo"`
	Skills SkillsConfig `mapstructure:"skills"`
}

// Load unmarshals the current viper state into a Config and applies
// defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = "127.0.0.1:8173"
	}
	if cfg.Server.CORSOrigins == "" {
		cfg.Server.CORSOrigins = "http://localhost:5173"
	}
	if cfg.Codex.Binary == "" {
		cfg.Codex.Binary = "codex"
	}
	if cfg.Runner.MaxOutputLines == 0 {
		cfg.Runner.MaxOutputLines = 2000
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "codexd"
	}
	if cfg.Mongo.Collection == "" {
		cfg.Mongo.Collection = "conversation_events"
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Runner.MaxOutputLines < 100 || c.Runner.MaxOutputLines > 20000 {
		return fmt.Errorf("runner.max_output_lines must be in [100, 20000], got %d", c.Runner.MaxOutputLines)
	}
	return nil
}
