package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config holds runtime settings for a starscan session.
// Values come from .starscan.toml or .starscan.yaml, STARSCAN_* env vars and CLI flags.
type Config struct {
	JournalDir    string `mapstructure:"journal_dir" toml:"journal_dir" json:"journal_dir"`
	ArchivePath   string `mapstructure:"archive_path" toml:"archive_path" json:"archive_path"`
	Archive       bool   `mapstructure:"archive" toml:"archive" json:"archive"`
	HTTPAddr      string `mapstructure:"http_addr" toml:"http_addr" json:"http_addr"`
	HTTPPort      int    `mapstructure:"http_port" toml:"http_port" json:"http_port"`
	ReplayOnTouch bool   `mapstructure:"replay_on_touch" toml:"replay_on_touch" json:"replay_on_touch"`
	Quiet         bool   `mapstructure:"quiet" toml:"quiet" json:"quiet"`
	ExportDir     string `mapstructure:"export_dir" toml:"export_dir" json:"export_dir"`
	Workers       int    `mapstructure:"workers" toml:"workers" json:"workers"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		JournalDir:    DefaultJournalDir(),
		ArchivePath:   "starscan.db",
		Archive:       true,
		HTTPAddr:      "127.0.0.1",
		HTTPPort:      13380,
		ReplayOnTouch: true,
		Quiet:         false,
		ExportDir:     "",
		Workers:       4,
	}
}

// DefaultJournalDir is where the game writes its journals on Windows.
// Elsewhere it falls back to the current directory.
func DefaultJournalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(home, "Saved Games", "Frontier Developments", "Elite Dangerous")
	if _, err := os.Stat(dir); err != nil {
		return "."
	}
	return dir
}

// Addr is the listen address for the HTTP API.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPAddr, c.HTTPPort)
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	return LoadFrom(viper.GetViper())
}

// LoadFrom is Load against an explicit viper instance.
func LoadFrom(v *viper.Viper) Config {
	d := Default()
	v.SetDefault("journal_dir", d.JournalDir)
	v.SetDefault("archive_path", d.ArchivePath)
	v.SetDefault("archive", d.Archive)
	v.SetDefault("http_addr", d.HTTPAddr)
	v.SetDefault("http_port", d.HTTPPort)
	v.SetDefault("replay_on_touch", d.ReplayOnTouch)
	v.SetDefault("quiet", d.Quiet)
	v.SetDefault("export_dir", d.ExportDir)
	v.SetDefault("workers", d.Workers)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg
}

// Save writes c as TOML to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ReadFile decodes a TOML config file on top of Default().
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}
