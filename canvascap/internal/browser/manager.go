// CLAUDE:SUMMARY Manages the Chrome instance captures run in: launch or connect, fixed window size, relaunch after a crash.
// Package browser manages the Chrome instance captures run in and exposes a
// page as the set of collaborators a capture session drives: scroll
// container, camera, scale widget, sidebar, frame clock and screenshots.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// StealthLevel controls the browser automation mode.
type StealthLevel int

const (
	LevelHeadless StealthLevel = 1 // Rod headless + stealth
	LevelHeadful  StealthLevel = 2 // Rod headful + Xvfb, for GPU-backed canvases
)

// ParseStealth maps a config value to a StealthLevel. Unknown values mean headless.
func ParseStealth(s string) StealthLevel {
	if s == "headful" {
		return LevelHeadful
	}
	return LevelHeadless
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// Stealth sets the automation mode. Default: LevelHeadless.
	Stealth StealthLevel

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string

	// WindowWidth and WindowHeight size the page viewport. Default: 1280x800.
	WindowWidth, WindowHeight int

	// NavigateTimeout bounds page navigation. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Stealth == 0 {
		c.Stealth = LevelHeadless
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1280
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 800
	}
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance) and returns the
// Rod browser handle.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}

	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()
	return b, nil
}

// Browser returns the current Rod browser handle. Thread-safe.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle kills Chrome and starts a fresh instance.
func (m *Manager) Recycle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}

	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	if err := m.cleanup(); err != nil {
		log.Warn("browser: cleanup during recycle", "error", err)
	}

	b, err := m.launch(ctx)
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()

	log.Info("browser: recycled successfully")
	return nil
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Stealth == LevelHeadful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)

		if m.cfg.Stealth == LevelHeadful {
			l = l.Headless(false).Env("DISPLAY="+m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}

		for _, f := range launchFlags(m.cfg) {
			l = l.Set(f.name, f.values...)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	return b, nil
}

type launchFlag struct {
	name   flags.Flag
	values []string
}

// launchFlags keeps the frame clock running in a tab nobody looks at and
// pins one CSS pixel to one device pixel.
func launchFlags(cfg Config) []launchFlag {
	fl := []launchFlag{
		{"disable-blink-features", []string{"AutomationControlled"}},
		{"window-size", []string{fmt.Sprintf("%d,%d", cfg.WindowWidth, cfg.WindowHeight)}},
		{"force-device-scale-factor", []string{"1"}},
		{"hide-scrollbars", nil},
		{"disable-background-timer-throttling", nil},
		{"disable-backgrounding-occluded-windows", nil},
		{"disable-renderer-backgrounding", nil},
	}
	if cfg.Stealth == LevelHeadless {
		// WebGL canvases need a software GL backend without a display.
		fl = append(fl, launchFlag{"use-angle", []string{"swiftshader"}}, launchFlag{"enable-unsafe-swiftshader", nil})
	}
	return fl
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}
