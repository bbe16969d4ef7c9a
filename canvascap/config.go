package canvascap

import (
	"github.com/hazyhaar/tilecap/canvascap/internal/config"
)

// Config is the top-level canvascap configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// CaptureConfig parameterises capture sessions.
type CaptureConfig = config.CaptureConfig

// SelectorConfig locates the page controls.
type SelectorConfig = config.SelectorConfig

// EngineConfig holds the page-side JS accessors.
type EngineConfig = config.EngineConfig

// SinkConfig defines a presentation backend.
type SinkConfig = config.SinkConfig

// ServeConfig configures the HTTP API.
type ServeConfig = config.ServeConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
