package canvascap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hazyhaar/tilecap/canvascap/internal/grid"
	"github.com/hazyhaar/tilecap/canvascap/internal/scale"
	"github.com/hazyhaar/tilecap/canvascap/internal/stitch"
	"github.com/hazyhaar/tilecap/canvascap/internal/tiles"
	"github.com/hazyhaar/tilecap/canvascap/internal/viewport"
	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/idgen"
)

// Presenter receives the finished image.
type Presenter interface {
	Present(ctx context.Context, img output.Image) error
}

// SessionConfig parameterises one capture. It is read once when the session
// starts.
type SessionConfig struct {
	SourceURL string

	// Scale is the requested percentage, snapped up to Levels. 0 means 100.
	Scale  int
	Levels scale.Ladder

	// CellSize is the pixel size of one logical unit at scale 100. Default: 1.
	CellSize int

	MaxRetries   int
	UITimeout    time.Duration
	PollInterval time.Duration

	// Margin is the temporary padding in pixels. 0 means the larger
	// viewport dimension.
	Margin int

	// Mode is "auto", "scroll" or "camera". Auto picks camera when the
	// engine exposes one.
	Mode string

	CorrectionX, CorrectionY float64

	Presenter  Presenter
	OnProgress func(tiles.Progress)
	Logger     *slog.Logger
}

func (c *SessionConfig) defaults() {
	if c.Scale <= 0 {
		c.Scale = scale.Default
	}
	c.Levels = c.Levels.Normalize()
	if c.CellSize <= 0 {
		c.CellSize = 1
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = tiles.DefaultMaxRetries
	}
	if c.UITimeout <= 0 {
		c.UITimeout = 3 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 50 * time.Millisecond
	}
	if c.Mode == "" {
		c.Mode = "auto"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Session captures one canvas through a Surface. A Session runs once.
type Session struct {
	cfg     SessionConfig
	surface Surface
	zoom    *scale.Switcher
	logger  *slog.Logger
	newID   func() string
	now     func() time.Time
}

// NewSession creates a Session over surface.
func NewSession(surface Surface, cfg SessionConfig) *Session {
	cfg.defaults()
	return &Session{
		cfg:     cfg,
		surface: surface,
		zoom: scale.NewSwitcher(surface,
			scale.WithTimeout(cfg.UITimeout),
			scale.WithPollInterval(cfg.PollInterval),
			scale.WithLogger(cfg.Logger)),
		logger: cfg.Logger,
		newID:  idgen.New,
		now:    time.Now,
	}
}

// altered records UI state the session changed and must put back.
type altered struct {
	origScale     int
	scaleTouched  bool
	overlayHidden bool
	origPadding   string
	paddingSet    bool
}

// Run captures the whole canvas, stitches it and hands it to the presenter.
// UI state changed by the session is restored on every exit path.
func (s *Session) Run(ctx context.Context) (img output.Image, err error) {
	log := s.logger.With("url", s.cfg.SourceURL)
	var st altered

	defer func() {
		if cerr := s.restore(context.WithoutCancel(ctx), &st); cerr != nil {
			log.Warn("canvascap: cleanup incomplete", "error", cerr)
			if err != nil {
				err = errors.Join(err, cerr)
			}
		}
		if err != nil {
			log.Error("canvascap: session failed", "error", err)
		}
	}()

	missing, err := s.surface.Discover(ctx)
	if err != nil {
		return img, fmt.Errorf("canvascap: discover: %w", err)
	}
	if len(missing) > 0 {
		return img, fmt.Errorf("%w: %s", ErrMissingCollaborator, strings.Join(missing, ", "))
	}

	if cur, err := s.zoom.Current(ctx); err != nil {
		log.Warn("canvascap: cannot read current scale", "error", err)
	} else {
		st.origScale = cur
	}

	open, err := s.surface.OverlayOpen(ctx)
	if err != nil {
		log.Warn("canvascap: cannot read overlay state", "error", err)
	} else if open {
		if err := s.surface.ToggleOverlay(ctx); err != nil {
			log.Warn("canvascap: cannot hide overlay", "error", err)
		} else {
			st.overlayHidden = true
		}
	}

	vw, vh, err := s.surface.ViewportSize(ctx)
	if err != nil {
		return img, fmt.Errorf("canvascap: viewport size: %w", err)
	}
	if vw <= 0 || vh <= 0 {
		return img, fmt.Errorf("%w: viewport has no area (%dx%d)", ErrMissingCollaborator, vw, vh)
	}

	margin := s.cfg.Margin
	if margin <= 0 {
		margin = max(vw, vh)
	}
	pad, err := s.surface.Padding(ctx)
	if err != nil {
		return img, fmt.Errorf("canvascap: read padding: %w", err)
	}
	if err := s.surface.SetPadding(ctx, fmt.Sprintf("%dpx", margin)); err != nil {
		return img, fmt.Errorf("canvascap: set padding: %w", err)
	}
	st.origPadding, st.paddingSet = pad, true

	effective, detour, err := s.applyScale(ctx, &st)
	if err != nil {
		return img, fmt.Errorf("canvascap: %w", err)
	}

	mode, err := s.resolveMode(ctx)
	if err != nil {
		return img, err
	}

	lw, lh, err := s.surface.CanvasSize(ctx)
	if err != nil {
		return img, fmt.Errorf("canvascap: canvas size: %w", err)
	}
	factor := scale.Factor(effective)
	width := int(math.Round(float64(lw*s.cfg.CellSize) * factor))
	height := int(math.Round(float64(lh*s.cfg.CellSize) * factor))
	g := grid.New(width, height, vw, vh)

	log.Info("canvascap: capturing",
		"scale", effective, "mode", mode, "width", width, "height", height,
		"viewport", fmt.Sprintf("%dx%d", vw, vh), "tiles", g.Count())

	var zoom viewport.Zoomer
	if detour != effective {
		zoom = s.zoom
	}
	vp, err := viewport.New(viewport.Config{
		Mode:       mode,
		Scroller:   s.surface,
		Camera:     s.surface,
		Zoom:       zoom,
		Renderer:   s.surface,
		Scale:      effective,
		Detour:     detour,
		Margin:     viewport.Margin{Top: float64(margin), Left: float64(margin)},
		ViewWidth:  vw,
		ViewHeight: vh,
	})
	if err != nil {
		return img, fmt.Errorf("canvascap: %w", err)
	}

	stitcher := stitch.New(width, height, image.Pt(vw, vh),
		stitch.WithCorrection(s.cfg.CorrectionX, s.cfg.CorrectionY))

	loop := tiles.New(tiles.Config{
		Grid:       g,
		Positioner: vp,
		Frames:     s.surface,
		Grabber:    s.surface,
		Stitcher:   stitcher,
		MaxRetries: s.cfg.MaxRetries,
		OnProgress: s.cfg.OnProgress,
		Logger:     s.logger,
	})
	sum, err := loop.Run(ctx)
	if err != nil {
		return img, fmt.Errorf("canvascap: capture: %w", err)
	}

	data, err := stitcher.PNG()
	if errors.Is(err, stitch.ErrEmpty) {
		return img, fmt.Errorf("%w: %dx%d at scale %d", ErrEmptyCanvas, width, height, effective)
	}
	if err != nil {
		return img, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	img = output.Image{
		ID:         s.newID(),
		SourceURL:  s.cfg.SourceURL,
		Scale:      effective,
		Width:      width,
		Height:     height,
		Tiles:      sum.Tiles,
		Exhausted:  sum.Exhausted,
		Format:     output.FormatPNG,
		Data:       data,
		CapturedAt: s.now().UnixMilli(),
		Report:     report(sum),
	}
	if err := img.Verify(); err != nil {
		return output.Image{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if sum.Exhausted > 0 {
		log.Warn("canvascap: some tiles kept best-effort pixels",
			"exhausted", sum.Exhausted, "tiles", sum.Tiles)
	}

	if s.cfg.Presenter != nil {
		if err := s.cfg.Presenter.Present(ctx, img); err != nil {
			return img, fmt.Errorf("%w: %w", ErrPresent, err)
		}
	}

	log.Info("canvascap: capture complete",
		"id", img.ID, "tiles", sum.Tiles, "exhausted", sum.Exhausted, "bytes", len(data))
	return img, nil
}

// applyScale switches to the snapped target scale, falling back to the
// default on failure. It returns the effective scale and its redraw detour.
func (s *Session) applyScale(ctx context.Context, st *altered) (effective, detour int, err error) {
	if f, ok := s.surface.(fixedScaler); ok && f.ScaleFixed() {
		cur := st.origScale
		if cur <= 0 {
			cur = scale.Default
		}
		return cur, cur, nil
	}

	target := s.cfg.Levels.Snap(s.cfg.Scale)
	st.scaleTouched = true
	effective, err = s.zoom.SetOrFallback(ctx, target)
	if err != nil {
		return 0, 0, err
	}
	return effective, s.cfg.Levels.Detour(effective), nil
}

func (s *Session) resolveMode(ctx context.Context) (viewport.Mode, error) {
	switch s.cfg.Mode {
	case "scroll":
		return viewport.ModeScroll, nil
	case "camera", "auto":
		ok, err := s.surface.HasCamera(ctx)
		if err != nil {
			return 0, fmt.Errorf("canvascap: camera probe: %w", err)
		}
		if ok {
			return viewport.ModeCamera, nil
		}
		if s.cfg.Mode == "camera" {
			return 0, fmt.Errorf("%w: camera", ErrMissingCollaborator)
		}
		return viewport.ModeScroll, nil
	default:
		return 0, fmt.Errorf("canvascap: unknown mode %q", s.cfg.Mode)
	}
}

// restore puts back scale, overlay and padding, in that order. Every step
// is attempted; failures are joined.
func (s *Session) restore(ctx context.Context, st *altered) error {
	var errs []error

	if st.scaleTouched {
		orig := st.origScale
		if orig <= 0 {
			orig = scale.Default
		}
		if err := s.zoom.Set(ctx, orig); err != nil {
			errs = append(errs, fmt.Errorf("restore scale %d: %w", orig, err))
		}
	}
	if st.overlayHidden {
		if err := s.surface.ToggleOverlay(ctx); err != nil {
			errs = append(errs, fmt.Errorf("restore overlay: %w", err))
		}
	}
	if st.paddingSet {
		if err := s.surface.SetPadding(ctx, st.origPadding); err != nil {
			errs = append(errs, fmt.Errorf("restore padding: %w", err))
		}
	}
	return errors.Join(errs...)
}

func report(sum tiles.Summary) []output.TileOutcome {
	out := make([]output.TileOutcome, len(sum.Results))
	for i, r := range sum.Results {
		out[i] = output.TileOutcome{
			Index:   r.Tile.Index,
			X:       r.Tile.X,
			Y:       r.Tile.Y,
			Outcome: r.Outcome.String(),
			Retries: r.Retries,
		}
	}
	return out
}
