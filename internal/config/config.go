package config

import (
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL    string `envconfig:"DATABASE_URL"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AuthRequired   bool   `envconfig:"AUTH_REQUIRED" default:"false"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	ExportDir      string `envconfig:"EXPORT_DIR" default:"./data/exports"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`

	ThumbnailWidth  int     `envconfig:"THUMBNAIL_WIDTH" default:"300"`
	ThumbnailHeight int     `envconfig:"THUMBNAIL_HEIGHT" default:"300"`
	HistoryLimit    int     `envconfig:"HISTORY_LIMIT" default:"100"`
	MaxRenderPixels int     `envconfig:"MAX_RENDER_PIXELS" default:"40000000"`
	PDFRenderScale  float64 `envconfig:"PDF_RENDER_SCALE" default:"2"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// CORSOrigins returns AllowedOrigins as full origin values.
func (c *Config) CORSOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, strings.TrimSuffix(o, "/"))
		}
	}
	return out
}

// Origins splits AllowedOrigins into host patterns for the WebSocket accept check.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		o = strings.TrimSpace(o)
		o = strings.TrimPrefix(o, "http://")
		o = strings.TrimPrefix(o, "https://")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
