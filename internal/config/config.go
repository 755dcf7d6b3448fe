// Package config loads settings from an optional shiplabel.toml and then
// lets environment variables override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/phillip-england/shiplabel/internal/label"
	"github.com/phillip-england/shiplabel/internal/orders"
)

const DefaultPath = "shiplabel.toml"

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Label   LabelConfig   `toml:"label"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Addr        string `toml:"addr"`
	ClientAddr  string `toml:"client_addr"`
	APIBaseURL  string `toml:"api_base_url"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

type StorageConfig struct {
	DataDir        string `toml:"data_dir"`
	RetentionHours int    `toml:"retention_hours"`
}

type LabelConfig struct {
	FontPath      string   `toml:"font_path"`
	FontSize      float64  `toml:"font_size"`
	ImageMaxWidth int      `toml:"image_max_width"`
	FillColumns   []string `toml:"fill_columns"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8080",
			ClientAddr:  ":3000",
			APIBaseURL:  "http://localhost:8080",
			MaxUploadMB: 20,
		},
		Storage: StorageConfig{
			DataDir:        "data",
			RetentionHours: 24,
		},
		Label: LabelConfig{
			FontSize:      9,
			ImageMaxWidth: 1200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path when it exists and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = envOrDefault("API_ADDR", c.Server.Addr)
	c.Server.ClientAddr = envOrDefault("CLIENT_ADDR", c.Server.ClientAddr)
	c.Server.APIBaseURL = envOrDefault("API_BASE_URL", c.Server.APIBaseURL)
	c.Storage.DataDir = envOrDefault("DATA_DIR", c.Storage.DataDir)
	c.Label.FontPath = envOrDefault("LABEL_FONT_PATH", c.Label.FontPath)
	c.Log.Level = envOrDefault("LOG_LEVEL", c.Log.Level)

	if raw := envOrDefault("MAX_UPLOAD_MB", ""); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("MAX_UPLOAD_MB must be a positive integer")
		}
		c.Server.MaxUploadMB = n
	}
	if raw := envOrDefault("RETENTION_HOURS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("RETENTION_HOURS must be a non-negative integer")
		}
		c.Storage.RetentionHours = n
	}
	if raw := envOrDefault("LOG_DEVELOPMENT", ""); raw != "" {
		c.Log.Development = parseBool(raw)
	}
	return nil
}

func (c *Config) MaxUploadBytes() int64 {
	if c.Server.MaxUploadMB <= 0 {
		return 20 << 20
	}
	return c.Server.MaxUploadMB << 20
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionHours) * time.Hour
}

// Layout builds the label layout, loading a custom font when configured.
func (c *Config) Layout() (label.Layout, error) {
	layout := label.DefaultLayout()
	if c.Label.FontSize > 0 {
		layout.FontSize = c.Label.FontSize
	}
	if c.Label.FontPath != "" {
		return layout.WithFontFile(c.Label.FontPath)
	}
	return layout, nil
}

// FillColumns resolves the configured forward-fill set, falling back to
// orders.DefaultFill.
func (c *Config) FillColumns() ([]orders.Column, error) {
	if len(c.Label.FillColumns) == 0 {
		return orders.DefaultFill, nil
	}
	cols := make([]orders.Column, 0, len(c.Label.FillColumns))
	for _, name := range c.Label.FillColumns {
		col, err := orders.ParseColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
