package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, 300, cfg.ThumbnailWidth)
	assert.Equal(t, 40000000, cfg.MaxRenderPixels)
	assert.InDelta(t, 2.0, cfg.PDFRenderScale, 1e-9)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_LIMIT", "25")
	t.Setenv("AUTH_REQUIRED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 25, cfg.HistoryLimit)
	assert.True(t, cfg.AuthRequired)
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173, https://studio.example.com,"}
	assert.Equal(t, []string{"localhost:5173", "studio.example.com"}, cfg.Origins())
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "nonsense"}).SlogLevel())
}

func TestCORSOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: "http://localhost:5173/, https://studio.example.com"}
	assert.Equal(t, []string{"http://localhost:5173", "https://studio.example.com"}, cfg.CORSOrigins())
}
