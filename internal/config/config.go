// Package config loads flowcanvas settings from YAML, TOML or JSON.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/recera/flowcanvas/pkg/canvas"
	"github.com/recera/flowcanvas/pkg/flow"
	"github.com/recera/flowcanvas/pkg/geom"
	"github.com/recera/flowcanvas/pkg/snap"
	"github.com/recera/flowcanvas/pkg/viewport"
)

// Config is the whole file.
type Config struct {
	Canvas CanvasConfig `json:"canvas" yaml:"canvas" toml:"canvas"`
	Server ServerConfig `json:"server" yaml:"server" toml:"server"`
	Render RenderConfig `json:"render" yaml:"render" toml:"render"`
}

// CanvasConfig holds the editor behavior settings.
type CanvasConfig struct {
	MinZoom     float64       `json:"minZoom" yaml:"minZoom" toml:"min_zoom"`
	MaxZoom     float64       `json:"maxZoom" yaml:"maxZoom" toml:"max_zoom"`
	ZoomSpeed   float64       `json:"zoomSpeed" yaml:"zoomSpeed" toml:"zoom_speed"`
	PanSpeed    float64       `json:"panSpeed" yaml:"panSpeed" toml:"pan_speed"`
	DisableZoom bool          `json:"disableZoom" yaml:"disableZoom" toml:"disable_zoom"`
	DisablePan  bool          `json:"disablePan" yaml:"disablePan" toml:"disable_pan"`
	Viewport    geom.Viewport `json:"defaultViewport" yaml:"defaultViewport" toml:"default_viewport"`

	DefaultEdgeType flow.EdgeType `json:"defaultEdgeType" yaml:"defaultEdgeType" toml:"default_edge_type"`
	DragThreshold   float64       `json:"dragThreshold" yaml:"dragThreshold" toml:"drag_threshold"`
	DragDelay       Duration      `json:"dragDelay" yaml:"dragDelay" toml:"drag_delay"`
	// ClampMargins maps a node kind to how far it may overhang the visible
	// area.
	ClampMargins map[string]float64 `json:"clampMargins" yaml:"clampMargins" toml:"clamp_margins"`
	HandleRadius float64            `json:"handleRadius" yaml:"handleRadius" toml:"handle_radius"`

	Snap  snap.Settings `json:"snap" yaml:"snap" toml:"snap"`
	Touch TouchConfig   `json:"touch" yaml:"touch" toml:"touch"`
}

type TouchConfig struct {
	LongPress  Duration `json:"longPress" yaml:"longPress" toml:"long_press"`
	Tolerance  float64  `json:"tolerance" yaml:"tolerance" toml:"tolerance"`
	TapTimeout Duration `json:"tapTimeout" yaml:"tapTimeout" toml:"tap_timeout"`
}

// ServerConfig configures the live server.
type ServerConfig struct {
	Host           string   `json:"host" yaml:"host" toml:"host"`
	Port           int      `json:"port" yaml:"port" toml:"port"`
	Path           string   `json:"path" yaml:"path" toml:"path"`
	FrameInterval  Duration `json:"frameInterval" yaml:"frameInterval" toml:"frame_interval"`
	AllowedOrigins []string `json:"allowedOrigins" yaml:"allowedOrigins" toml:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// RenderConfig configures PNG output.
type RenderConfig struct {
	Width  int    `json:"width" yaml:"width" toml:"width"`
	Height int    `json:"height" yaml:"height" toml:"height"`
	Theme  string `json:"theme" yaml:"theme" toml:"theme"`
}

// Duration accepts "100ms" style strings in every format.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Canvas: CanvasConfig{
			MinZoom:         0.1,
			MaxZoom:         4,
			ZoomSpeed:       0.1,
			PanSpeed:        1,
			Viewport:        geom.DefaultViewport,
			DefaultEdgeType: flow.EdgeSmoothStep,
			DragThreshold:   5,
			DragDelay:       Duration{100 * time.Millisecond},
			ClampMargins:    map[string]float64{string(flow.KindFrame): 200},
			HandleRadius:    8,
			Snap:            snap.DefaultSettings(),
			Touch: TouchConfig{
				LongPress:  Duration{750 * time.Millisecond},
				Tolerance:  10,
				TapTimeout: Duration{300 * time.Millisecond},
			},
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			Path:          "/live/",
			FrameInterval: Duration{16 * time.Millisecond},
		},
		Render: RenderConfig{
			Width:  1280,
			Height: 800,
			Theme:  "light",
		},
	}
}

// Load reads path, choosing the decoder by extension. Fields missing from the
// file keep their defaults. A missing file yields Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path in the format its extension names.
func Save(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(cfg)
		data = []byte(b.String())
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	default:
		return fmt.Errorf("config: unsupported format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// applyDefaults replaces values a file zeroed out explicitly.
func applyDefaults(cfg *Config) {
	d := Default()
	c := &cfg.Canvas
	if c.MinZoom <= 0 {
		c.MinZoom = d.Canvas.MinZoom
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = d.Canvas.MaxZoom
	}
	if c.Viewport.Zoom <= 0 {
		c.Viewport.Zoom = 1
	}
	if !c.DefaultEdgeType.Valid() {
		c.DefaultEdgeType = d.Canvas.DefaultEdgeType
	}
	if c.HandleRadius <= 0 {
		c.HandleRadius = d.Canvas.HandleRadius
	}
	if c.ClampMargins == nil {
		c.ClampMargins = d.Canvas.ClampMargins
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = d.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = d.Server.Port
	}
	if cfg.Server.Path == "" {
		cfg.Server.Path = d.Server.Path
	}

	if cfg.Render.Width <= 0 {
		cfg.Render.Width = d.Render.Width
	}
	if cfg.Render.Height <= 0 {
		cfg.Render.Height = d.Render.Height
	}
	if cfg.Render.Theme == "" {
		cfg.Render.Theme = d.Render.Theme
	}
}

// Validate rejects settings no controller can honor.
func (c *Config) Validate() error {
	if c.Canvas.MaxZoom < c.Canvas.MinZoom {
		return fmt.Errorf("config: maxZoom %v below minZoom %v", c.Canvas.MaxZoom, c.Canvas.MinZoom)
	}
	if c.Canvas.DragThreshold < 0 || c.Canvas.DragDelay.Duration < 0 {
		return fmt.Errorf("config: drag threshold and delay must not be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	for kind, m := range c.Canvas.ClampMargins {
		if m < 0 {
			return fmt.Errorf("config: clamp margin for %q is negative", kind)
		}
	}
	return nil
}

// CanvasOptions converts the canvas section into canvas.Options with an
// empty board.
func (c *Config) CanvasOptions() canvas.Options {
	cc := c.Canvas
	margins := make(map[flow.NodeKind]float64, len(cc.ClampMargins))
	for k, v := range cc.ClampMargins {
		margins[flow.NodeKind(k)] = v
	}
	opts := canvas.DefaultOptions()
	opts.Viewport = viewport.Options{
		MinZoom:     cc.MinZoom,
		MaxZoom:     cc.MaxZoom,
		ZoomSpeed:   cc.ZoomSpeed,
		PanSpeed:    cc.PanSpeed,
		DisableZoom: cc.DisableZoom,
		DisablePan:  cc.DisablePan,
		Default:     cc.Viewport,
	}
	opts.Snap = cc.Snap
	opts.DefaultEdgeType = cc.DefaultEdgeType
	opts.DragThreshold = cc.DragThreshold
	opts.DragDelay = cc.DragDelay.Duration
	opts.ClampMargins = margins
	opts.HandleRadius = cc.HandleRadius
	opts.Touch.LongPress = cc.Touch.LongPress.Duration
	opts.Touch.Tolerance = cc.Touch.Tolerance
	opts.Touch.TapTimeout = cc.Touch.TapTimeout.Duration
	return opts
}
