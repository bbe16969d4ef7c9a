// CLAUDE:SUMMARY Defines canvascap config structs and parses YAML configuration files with defaults.
// Package config handles canvascap configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level canvascap configuration.
type Config struct {
	Browser   BrowserConfig  `yaml:"browser"`
	Capture   CaptureConfig  `yaml:"capture"`
	Selectors SelectorConfig `yaml:"selectors"`
	Engine    EngineConfig   `yaml:"engine"`
	Sinks     []SinkConfig   `yaml:"sinks"`
	Store     StoreConfig    `yaml:"store"`
	Serve     ServeConfig    `yaml:"serve"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	Stealth          string        `yaml:"stealth"` // headless | headful
	XvfbDisplay      string        `yaml:"xvfb_display"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	WindowWidth      int           `yaml:"window_width"`
	WindowHeight     int           `yaml:"window_height"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout"`
}

// CaptureConfig parameterises one capture session.
type CaptureConfig struct {
	URL          string        `yaml:"url"`
	Scale        int           `yaml:"scale"` // requested percent, snapped to Levels
	Levels       []int         `yaml:"levels"`
	CellSize     int           `yaml:"cell_size"`
	MaxRetries   int           `yaml:"max_retries"`
	UITimeout    time.Duration `yaml:"ui_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Margin       int           `yaml:"margin"` // px of temporary padding; 0 = viewport size
	Mode         string        `yaml:"mode"`   // auto | scroll | camera
	CorrectionX  float64       `yaml:"correction_x"`
	CorrectionY  float64       `yaml:"correction_y"`
	Format       string        `yaml:"format"`        // png | webp screenshots
	BlockPrivate bool          `yaml:"block_private"` // refuse loopback and private-network pages
}

// SelectorConfig locates the page controls. ZoomOption is a fmt pattern
// receiving the scale percentage.
type SelectorConfig struct {
	Canvas        string `yaml:"canvas"`
	Container     string `yaml:"container"`
	ZoomLabel     string `yaml:"zoom_label"`
	ZoomOpen      string `yaml:"zoom_open"`
	ZoomOption    string `yaml:"zoom_option"`
	SidebarToggle string `yaml:"sidebar_toggle"`
	SidebarOpen   string `yaml:"sidebar_open"`
}

// EngineConfig holds JS expressions evaluated in the page. SizeJS must
// return {width, height} in logical units; CameraJS must evaluate to the
// camera object (empty disables camera mode).
type EngineConfig struct {
	SizeJS   string `yaml:"size_js"`
	RenderJS string `yaml:"render_js"`
	CameraJS string `yaml:"camera_js"`
}

// SinkConfig defines a presentation backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | file | webhook | sqlite
	URL  string `yaml:"url"`  // webhook
	Dir  string `yaml:"dir"`  // file
	Path string `yaml:"path"` // sqlite
}

// StoreConfig enables the SQLite capture archive.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// ServeConfig configures the HTTP API.
type ServeConfig struct {
	Addr       string        `yaml:"addr"`
	MaxBody    int64         `yaml:"max_body"`    // request body cap in bytes
	RateLimit  int           `yaml:"rate_limit"`  // captures per client per window; 0 = unlimited
	RateWindow time.Duration `yaml:"rate_window"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML configuration and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.WindowWidth <= 0 {
		c.Browser.WindowWidth = 1280
	}
	if c.Browser.WindowHeight <= 0 {
		c.Browser.WindowHeight = 800
	}
	if c.Browser.NavigateTimeout <= 0 {
		c.Browser.NavigateTimeout = 30 * time.Second
	}
	if c.Serve.MaxBody <= 0 {
		c.Serve.MaxBody = 64 << 10
	}
	if c.Serve.RateWindow <= 0 {
		c.Serve.RateWindow = time.Minute
	}
	if c.Capture.Scale <= 0 {
		c.Capture.Scale = 100
	}
	if c.Capture.CellSize <= 0 {
		c.Capture.CellSize = 1
	}
	if c.Capture.MaxRetries <= 0 {
		c.Capture.MaxRetries = 5
	}
	if c.Capture.UITimeout <= 0 {
		c.Capture.UITimeout = 3 * time.Second
	}
	if c.Capture.PollInterval <= 0 {
		c.Capture.PollInterval = 50 * time.Millisecond
	}
	if c.Capture.Mode == "" {
		c.Capture.Mode = "auto"
	}
	if c.Capture.Format == "" {
		c.Capture.Format = "png"
	}
	if c.Selectors.Canvas == "" {
		c.Selectors.Canvas = "canvas"
	}
	if c.Engine.SizeJS == "" {
		c.Engine.SizeJS = `(() => { const c = document.querySelector("canvas"); return {width: c.width, height: c.height}; })()`
	}
}

// Validate rejects values that cannot be used.
func (c *Config) Validate() error {
	switch c.Capture.Mode {
	case "auto", "scroll", "camera":
	default:
		return fmt.Errorf("config: capture.mode %q: want auto, scroll or camera", c.Capture.Mode)
	}
	switch c.Capture.Format {
	case "png", "webp":
	default:
		return fmt.Errorf("config: capture.format %q: want png or webp", c.Capture.Format)
	}
	switch c.Browser.Stealth {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.stealth %q: want headless or headful", c.Browser.Stealth)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout", "file", "webhook", "sqlite":
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}
