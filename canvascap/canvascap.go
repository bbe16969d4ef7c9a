// Package canvascap captures a large canvas that is only ever partially
// visible through a browser viewport. It pans the viewport tile by tile,
// waits for each tile to finish rendering, and stitches the tiles into one
// full-resolution PNG.
//
// The Session runs the capture against any Surface. The Capturer wires a
// Session to a Chrome tab, the configured sinks and the SQLite archive.
package canvascap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/tilecap/canvascap/internal/browser"
	"github.com/hazyhaar/tilecap/canvascap/internal/config"
	"github.com/hazyhaar/tilecap/canvascap/internal/scale"
	"github.com/hazyhaar/tilecap/canvascap/internal/sink"
	"github.com/hazyhaar/tilecap/canvascap/internal/store"
	"github.com/hazyhaar/tilecap/canvascap/internal/tiles"
	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/horosafe"
)

// ErrNoArchive is returned by archive queries when no store is configured.
var ErrNoArchive = errors.New("canvascap: no capture archive configured")

// Progress is reported after every captured tile.
type Progress = tiles.Progress

// Request asks for one capture. Zero fields fall back to configuration.
type Request struct {
	URL   string `json:"url"`
	Scale int    `json:"scale,omitempty"`
}

// Service is what the HTTP API and MCP tools call.
type Service interface {
	Capture(ctx context.Context, req Request) (output.Image, error)
	List(ctx context.Context, limit int) ([]output.Meta, error)
	Get(ctx context.Context, id string) (*output.Image, error)
}

// Capturer owns the browser, the sinks and the optional archive. Captures
// are serialized: one viewport is never shared by two sessions.
type Capturer struct {
	cfg        *config.Config
	mgr        *browser.Manager
	sinkR      *sink.Router
	store      *store.Store
	onProgress func(Progress)
	mu         sync.Mutex
	logger     *slog.Logger
}

// New creates a Capturer from configuration. When cfg.Store.Path is set the
// archive is opened and every capture is also presented to it.
func New(cfg *config.Config, logger *slog.Logger, sinks ...sink.Sink) (*Capturer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Capturer{
		cfg: cfg,
		mgr: browser.NewManager(browser.Config{
			RemoteURL:        cfg.Browser.Remote,
			ResourceBlocking: cfg.Browser.ResourceBlocking,
			Stealth:          browser.ParseStealth(cfg.Browser.Stealth),
			XvfbDisplay:      cfg.Browser.XvfbDisplay,
			WindowWidth:      cfg.Browser.WindowWidth,
			WindowHeight:     cfg.Browser.WindowHeight,
			NavigateTimeout:  cfg.Browser.NavigateTimeout,
			Logger:           logger,
		}),
		sinkR:  sink.NewRouter(logger, sinks...),
		logger: logger,
	}

	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("canvascap: open archive: %w", err)
		}
		c.store = st
		c.sinkR.Add(sink.NewStore(st))
	}
	return c, nil
}

// OnProgress sets a callback invoked after every captured tile.
func (c *Capturer) OnProgress(fn func(Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onProgress = fn
}

// Start launches the browser.
func (c *Capturer) Start(ctx context.Context) error {
	if _, err := c.mgr.Start(ctx); err != nil {
		return fmt.Errorf("canvascap: start browser: %w", err)
	}
	return nil
}

// Capture opens req.URL in a fresh tab, runs a Session over it and presents
// the result to every sink.
func (c *Capturer) Capture(ctx context.Context, req Request) (output.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	url := req.URL
	if url == "" {
		url = c.cfg.Capture.URL
	}
	if url == "" {
		return output.Image{}, fmt.Errorf("canvascap: no url to capture")
	}
	if err := horosafe.ValidateURL(url, !c.cfg.Capture.BlockPrivate); err != nil {
		return output.Image{}, fmt.Errorf("canvascap: %w", err)
	}
	requested := req.Scale
	if requested <= 0 {
		requested = c.cfg.Capture.Scale
	}

	tab, err := browser.OpenTab(ctx, c.mgr, url)
	if err != nil && ctx.Err() == nil {
		c.logger.Warn("canvascap: open tab failed, recycling browser", "url", url, "error", err)
		if rerr := c.mgr.Recycle(ctx); rerr != nil {
			return output.Image{}, fmt.Errorf("canvascap: %w", errors.Join(err, rerr))
		}
		tab, err = browser.OpenTab(ctx, c.mgr, url)
	}
	if err != nil {
		return output.Image{}, fmt.Errorf("canvascap: %w", err)
	}
	defer tab.Close()

	surface := browser.NewSurface(tab.Page, surfaceConfig(c.cfg, c.logger))

	var presenter Presenter
	if c.sinkR.Len() > 0 {
		presenter = c.sinkR
	}
	sess := NewSession(surface, SessionConfig{
		SourceURL:    url,
		Scale:        requested,
		Levels:       scale.Ladder(c.cfg.Capture.Levels),
		CellSize:     c.cfg.Capture.CellSize,
		MaxRetries:   c.cfg.Capture.MaxRetries,
		UITimeout:    c.cfg.Capture.UITimeout,
		PollInterval: c.cfg.Capture.PollInterval,
		Margin:       c.cfg.Capture.Margin,
		Mode:         c.cfg.Capture.Mode,
		CorrectionX:  c.cfg.Capture.CorrectionX,
		CorrectionY:  c.cfg.Capture.CorrectionY,
		Presenter:    presenter,
		OnProgress:   c.onProgress,
		Logger:       c.logger,
	})
	return sess.Run(ctx)
}

// List returns archived capture metadata, newest first.
func (c *Capturer) List(ctx context.Context, limit int) ([]output.Meta, error) {
	if c.store == nil {
		return nil, ErrNoArchive
	}
	return c.store.List(ctx, limit)
}

// Get returns an archived capture, or nil if the ID is unknown.
func (c *Capturer) Get(ctx context.Context, id string) (*output.Image, error) {
	if c.store == nil {
		return nil, ErrNoArchive
	}
	return c.store.Get(ctx, id)
}

// Stop closes the sinks, the archive and the browser.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	errs = append(errs, c.sinkR.Close())
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	errs = append(errs, c.mgr.Close())
	return errors.Join(errs...)
}

func surfaceConfig(cfg *config.Config, logger *slog.Logger) browser.SurfaceConfig {
	return browser.SurfaceConfig{
		Selectors: browser.Selectors{
			Canvas:        cfg.Selectors.Canvas,
			Container:     cfg.Selectors.Container,
			ZoomLabel:     cfg.Selectors.ZoomLabel,
			ZoomOpen:      cfg.Selectors.ZoomOpen,
			ZoomOption:    cfg.Selectors.ZoomOption,
			SidebarToggle: cfg.Selectors.SidebarToggle,
			SidebarOpen:   cfg.Selectors.SidebarOpen,
		},
		Engine: browser.Engine{
			SizeJS:   cfg.Engine.SizeJS,
			RenderJS: cfg.Engine.RenderJS,
			CameraJS: cfg.Engine.CameraJS,
		},
		Format: cfg.Capture.Format,
		Logger: logger,
	}
}
