package config_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-graph/engine/config"
)

func TestLoadFile(t *testing.T) {
	cfg, err := config.Load("testdata/engine.toml")
	require.NoError(t, err)

	assert.Equal(t, 120.0, cfg.Engine.TickRate)
	assert.Equal(t, 144.0, cfg.Engine.FrameLimit)
	assert.Equal(t, 8, cfg.Engine.ComputeWorkers)
	assert.True(t, cfg.Engine.Profiling)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.ProfileEvery())

	assert.Equal(t, "deferred", cfg.Window.Title)
	assert.Equal(t, 1600, cfg.Window.Width)
	assert.Equal(t, 900, cfg.Window.Height)
	assert.Equal(t, 600, cfg.Window.MinWidth, "unset fields take defaults")

	assert.Equal(t, "vsync", cfg.Renderer.PresentMode, "enum strings are case-insensitive")
	assert.True(t, cfg.Renderer.ForceFallback)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "graphs/deferred.hcl", cfg.Graph.File)
	assert.Equal(t, "backbuffer", cfg.Graph.Backbuffer)
}

func TestParseEmptyIsDefault(t *testing.T) {
	cfg, err := config.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
	require.NoError(t, cfg.Validate())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"negative tick rate", "[engine]\ntick_rate = -1"},
		{"negative workers", "[engine]\ncompute_workers = -2"},
		{"bad interval", "[engine]\nprofile_interval = \"soon\""},
		{"bad present mode", "[renderer]\npresent_mode = \"mailbox\""},
		{"bad level", "[logging]\nlevel = \"loud\""},
		{"bad format", "[logging]\nformat = \"xml\""},
		{"min exceeds max", "[window]\nmin_width = 2000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.src))
			require.ErrorIs(t, err, config.ErrInvalid)
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := config.Parse([]byte("[engine\ntick_rate = 1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
	assert.Contains(t, err.Error(), "config: decode")
}

func TestStrictRejectsUnknownKeys(t *testing.T) {
	src := []byte("[engine]\ntick_rat = 30")

	cfg, err := config.Parse(src)
	require.NoError(t, err)
	assert.Equal(t, 60.0, cfg.Engine.TickRate)

	_, err = config.Parse(src, config.WithStrict())
	require.Error(t, err)
}

func TestOverridesRunBeforeValidation(t *testing.T) {
	cfg, err := config.Parse([]byte("[engine]\ncompute_workers = 8"), config.WithOverride(func(c *config.Config) {
		c.Engine.ComputeWorkers = 1
	}))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Engine.ComputeWorkers)

	_, err = config.Parse(nil, config.WithOverride(func(c *config.Config) {
		c.Renderer.PresentMode = "mailbox"
	}))
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestEncodeRoundTrip(t *testing.T) {
	want := config.Default()
	want.Graph.File = "frame.hcl"
	want.Engine.ComputeWorkers = 2

	var buf bytes.Buffer
	require.NoError(t, want.Encode(&buf))
	got, err := config.Parse(buf.Bytes(), config.WithStrict())
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := config.Logging{Level: "warn", Format: "json"}.NewLogger(&buf)
	require.NoError(t, err)

	l.Info("dropped")
	l.Warn("kept", slog.Int("passes", 3))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "kept", rec["msg"])
	assert.Equal(t, 3.0, rec["passes"])

	_, err = config.Logging{Level: "info", Format: "xml"}.NewLogger(&buf)
	require.ErrorIs(t, err, config.ErrInvalid)
}
