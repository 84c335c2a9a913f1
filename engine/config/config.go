// Package config loads engine configuration from TOML files.
//
// Every field has a default; a file only needs to name what it changes:
//
//	[engine]
//	tick_rate = 120
//	compute_workers = 8
//
//	[renderer]
//	present_mode = "vsync"
//
//	[graph]
//	file = "graphs/deferred.hcl"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation error returned from Load and Parse.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the root of an engine configuration file.
type Config struct {
	Engine   Engine   `toml:"engine"`
	Window   Window   `toml:"window"`
	Renderer Renderer `toml:"renderer"`
	Logging  Logging  `toml:"logging"`
	Graph    Graph    `toml:"graph"`
}

// Engine configures the tick and render loops.
type Engine struct {
	// TickRate is the fixed update rate in ticks per second.
	TickRate float64 `toml:"tick_rate"`
	// FrameLimit caps the render loop in frames per second. Zero is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
	// ComputeWorkers is the number of workers running per-frame prepare jobs.
	ComputeWorkers int `toml:"compute_workers"`
	// Profiling enables periodic frame statistics.
	Profiling bool `toml:"profiling"`
	// ProfileInterval is a duration string such as "1s" or "500ms".
	ProfileInterval string `toml:"profile_interval"`
}

// Window configures the platform window.
type Window struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	MinWidth  int    `toml:"min_width"`
	MinHeight int    `toml:"min_height"`
	MaxWidth  int    `toml:"max_width"`
	MaxHeight int    `toml:"max_height"`
}

// Renderer configures the WebGPU backend.
type Renderer struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// ForceFallback requests a software adapter.
	ForceFallback bool `toml:"force_fallback"`
}

// Logging configures the engine logger.
type Logging struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Graph names the frame graph description and the resource bound to the swapchain.
type Graph struct {
	// File is an HCL frame graph description. Empty means the graph is built in code.
	File string `toml:"file"`
	// Backbuffer is the external texture name the swapchain image is registered under.
	Backbuffer string `toml:"backbuffer"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Engine: Engine{
			TickRate:        60,
			ComputeWorkers:  4,
			ProfileInterval: "1s",
		},
		Window: Window{
			Title:     "oxy-graph",
			Width:     1280,
			Height:    720,
			MinWidth:  600,
			MinHeight: 200,
			MaxWidth:  1600,
			MaxHeight: 1200,
		},
		Renderer: Renderer{
			PresentMode: "uncapped",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Graph: Graph{
			Backbuffer: "backbuffer",
		},
	}
}

// Load reads the TOML file at path and returns the resulting configuration.
//
// Parameters:
//   - path: the file to read
//   - options: functional options controlling decoding
//
// Returns:
//   - *Config: the configuration with defaults applied to unset fields
//   - error: an error if the file cannot be read, decoded or validated
func Load(path string, options ...ConfigBuilderOption) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, options...)
}

// Parse decodes a TOML document.
//
// Parameters:
//   - data: the TOML source
//   - options: functional options controlling decoding
//
// Returns:
//   - *Config: the configuration with defaults applied to unset fields
//   - error: an error if the document cannot be decoded or validated
func Parse(data []byte, options ...ConfigBuilderOption) (*Config, error) {
	l := &loader{}
	for _, opt := range options {
		opt(l)
	}

	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	if l.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("config: decode at %d:%d: %w", row, col, err)
		}
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	cfg.applyDefaults()
	for _, o := range l.overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Encode writes c as TOML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: an error if encoding or writing fails
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

func (c *Config) applyDefaults() {
	d := Default()

	c.Engine.TickRate = coalesce(c.Engine.TickRate, d.Engine.TickRate)
	c.Engine.ComputeWorkers = coalesce(c.Engine.ComputeWorkers, d.Engine.ComputeWorkers)
	c.Engine.ProfileInterval = coalesce(c.Engine.ProfileInterval, d.Engine.ProfileInterval)

	c.Window.Title = coalesce(c.Window.Title, d.Window.Title)
	c.Window.Width = coalesce(c.Window.Width, d.Window.Width)
	c.Window.Height = coalesce(c.Window.Height, d.Window.Height)
	c.Window.MinWidth = coalesce(c.Window.MinWidth, d.Window.MinWidth)
	c.Window.MinHeight = coalesce(c.Window.MinHeight, d.Window.MinHeight)
	c.Window.MaxWidth = coalesce(c.Window.MaxWidth, d.Window.MaxWidth)
	c.Window.MaxHeight = coalesce(c.Window.MaxHeight, d.Window.MaxHeight)

	c.Renderer.PresentMode = coalesce(strings.ToLower(c.Renderer.PresentMode), d.Renderer.PresentMode)

	c.Logging.Level = coalesce(strings.ToLower(c.Logging.Level), d.Logging.Level)
	c.Logging.Format = coalesce(strings.ToLower(c.Logging.Format), d.Logging.Format)

	c.Graph.Backbuffer = coalesce(c.Graph.Backbuffer, d.Graph.Backbuffer)
}

// Validate reports the first invalid field of c.
//
// Returns:
//   - error: an error wrapping ErrInvalid, or nil
func (c *Config) Validate() error {
	switch {
	case c.Engine.TickRate < 0:
		return fmt.Errorf("%w: engine.tick_rate must not be negative", ErrInvalid)
	case c.Engine.FrameLimit < 0:
		return fmt.Errorf("%w: engine.frame_limit must not be negative", ErrInvalid)
	case c.Engine.ComputeWorkers < 0:
		return fmt.Errorf("%w: engine.compute_workers must not be negative", ErrInvalid)
	}
	if _, err := time.ParseDuration(c.Engine.ProfileInterval); err != nil {
		return fmt.Errorf("%w: engine.profile_interval: %w", ErrInvalid, err)
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Window.MinWidth > c.Window.MaxWidth || c.Window.MinHeight > c.Window.MaxHeight {
		return fmt.Errorf("%w: window minimum size exceeds maximum", ErrInvalid)
	}

	switch c.Renderer.PresentMode {
	case "vsync", "uncapped":
	default:
		return fmt.Errorf("%w: renderer.present_mode %q", ErrInvalid, c.Renderer.PresentMode)
	}

	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalid, c.Logging.Format)
	}
	return nil
}

// ProfileEvery returns the parsed profile interval, or one second if it does not parse.
//
// Returns:
//   - time.Duration: the interval between profiler reports
func (e Engine) ProfileEvery() time.Duration {
	d, err := time.ParseDuration(e.ProfileInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

func (l Logging) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: logging.level %q", ErrInvalid, l.Level)
	}
	return lvl, nil
}

// NewLogger builds a slog.Logger writing to w with the configured level and format.
//
// Parameters:
//   - w: the destination of log records
//
// Returns:
//   - *slog.Logger: the logger
//   - error: an error if the level or format is invalid
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, error) {
	lvl, err := l.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch l.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: logging.format %q", ErrInvalid, l.Format)
}

// coalesce returns the first non-zero value, or the zero value if all are zero.
func coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
