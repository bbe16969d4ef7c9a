// CLAUDE:SUMMARY Rod-backed capture surface: engine JS, scroll container, camera, scale widget, sidebar, frame clock and screenshots.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"golang.org/x/image/webp"

	"github.com/hazyhaar/tilecap/canvascap/internal/scale"
)

// Selectors locate the page controls. Empty selectors disable the control.
// ZoomOption is a fmt pattern receiving the scale percentage.
type Selectors struct {
	Canvas        string
	Container     string
	ZoomLabel     string
	ZoomOpen      string
	ZoomOption    string
	SidebarToggle string
	SidebarOpen   string
}

// Engine holds page-side JS expressions. SizeJS evaluates to
// {width, height} in logical units, RenderJS triggers a render pass and
// CameraJS evaluates to an object with mutable position.x and position.y.
type Engine struct {
	SizeJS   string
	RenderJS string
	CameraJS string
}

// SurfaceConfig configures a Surface.
type SurfaceConfig struct {
	Selectors Selectors
	Engine    Engine

	// Format is the screenshot encoding: "png" (default) or "webp".
	Format string

	Logger *slog.Logger
}

// Surface drives a canvas page through Rod. It is bound to one page and
// must not be shared between sessions.
type Surface struct {
	page   *rod.Page
	sel    Selectors
	eng    Engine
	format proto.PageCaptureScreenshotFormat
	logger *slog.Logger
}

// NewSurface wraps page.
func NewSurface(page *rod.Page, cfg SurfaceConfig) *Surface {
	format := proto.PageCaptureScreenshotFormatPng
	if cfg.Format == "webp" {
		format = proto.PageCaptureScreenshotFormatWebp
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Surface{
		page:   page,
		sel:    cfg.Selectors,
		eng:    cfg.Engine,
		format: format,
		logger: cfg.Logger,
	}
}

// Discover checks that every configured control is present on the page and
// returns the names of the missing ones. The canvas and the engine size
// accessor are always required.
func (s *Surface) Discover(ctx context.Context) ([]string, error) {
	p := s.page.Context(ctx)
	var missing []string

	checks := []struct{ name, sel string }{
		{"canvas", s.sel.Canvas},
		{"container", s.sel.Container},
		{"zoom label", s.sel.ZoomLabel},
		{"zoom selector", s.sel.ZoomOpen},
		{"sidebar toggle", s.sel.SidebarToggle},
	}
	for _, c := range checks {
		if c.sel == "" {
			if c.name == "canvas" {
				missing = append(missing, c.name)
			}
			continue
		}
		ok, _, err := p.Has(c.sel)
		if err != nil {
			return nil, fmt.Errorf("browser: discover %s: %w", c.name, err)
		}
		if !ok {
			missing = append(missing, c.name)
		}
	}

	if _, _, err := s.CanvasSize(ctx); err != nil {
		s.logger.Debug("browser: size accessor failed", "error", err)
		missing = append(missing, "engine size")
	}
	return missing, nil
}

// CanvasSize evaluates the engine size accessor.
func (s *Surface) CanvasSize(ctx context.Context) (w, h int, err error) {
	res, err := s.page.Context(ctx).Eval(exprFunc(s.eng.SizeJS))
	if err != nil {
		return 0, 0, fmt.Errorf("browser: canvas size: %w", err)
	}
	v := res.Value
	if v.Nil() {
		return 0, 0, fmt.Errorf("browser: canvas size: accessor returned null")
	}
	return v.Get("width").Int(), v.Get("height").Int(), nil
}

// Render triggers a render pass. No-op without a render expression.
func (s *Surface) Render(ctx context.Context) error {
	if s.eng.RenderJS == "" {
		return nil
	}
	if _, err := s.page.Context(ctx).Eval(exprFunc(s.eng.RenderJS)); err != nil {
		return fmt.Errorf("browser: render: %w", err)
	}
	return nil
}

// HasCamera reports whether the camera expression resolves to an object with
// a position.
func (s *Surface) HasCamera(ctx context.Context) (bool, error) {
	if s.eng.CameraJS == "" {
		return false, nil
	}
	js := fmt.Sprintf(`() => { try { const c = (%s); return !!(c && c.position); } catch (e) { return false; } }`, s.eng.CameraJS)
	res, err := s.page.Context(ctx).Eval(js)
	if err != nil {
		return false, fmt.Errorf("browser: camera probe: %w", err)
	}
	return res.Value.Bool(), nil
}

// MoveCamera sets the camera position.
func (s *Surface) MoveCamera(ctx context.Context, x, y float64) error {
	js := fmt.Sprintf(`(x, y) => { const c = (%s); c.position.x = x; c.position.y = y; }`, s.eng.CameraJS)
	if _, err := s.page.Context(ctx).Eval(js, x, y); err != nil {
		return fmt.Errorf("browser: move camera: %w", err)
	}
	return nil
}

// ScrollTo scrolls the container, or the document when no container is set.
func (s *Surface) ScrollTo(ctx context.Context, x, y float64) error {
	if _, err := s.page.Context(ctx).Eval(jsScrollTo, s.sel.Container, x, y); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// ViewportSize returns the visible content area of the container in pixels.
func (s *Surface) ViewportSize(ctx context.Context) (w, h int, err error) {
	r, err := s.containerRect(ctx)
	if err != nil {
		return 0, 0, err
	}
	return int(r.Width), int(r.Height), nil
}

// Padding returns the container's inline padding style.
func (s *Surface) Padding(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(jsGetPadding, s.sel.Container)
	if err != nil {
		return "", fmt.Errorf("browser: read padding: %w", err)
	}
	return res.Value.Str(), nil
}

// SetPadding replaces the container's inline padding style.
func (s *Surface) SetPadding(ctx context.Context, css string) error {
	if _, err := s.page.Context(ctx).Eval(jsSetPadding, s.sel.Container, css); err != nil {
		return fmt.Errorf("browser: set padding: %w", err)
	}
	return nil
}

// OverlayOpen reports whether the sidebar is showing. Without a sidebar
// state selector the overlay is treated as closed.
func (s *Surface) OverlayOpen(ctx context.Context) (bool, error) {
	if s.sel.SidebarOpen == "" {
		return false, nil
	}
	ok, _, err := s.page.Context(ctx).Has(s.sel.SidebarOpen)
	if err != nil {
		return false, fmt.Errorf("browser: sidebar state: %w", err)
	}
	return ok, nil
}

// ToggleOverlay actuates the sidebar toggle.
func (s *Surface) ToggleOverlay(ctx context.Context) error {
	if err := s.click(ctx, s.sel.SidebarToggle); err != nil {
		return fmt.Errorf("browser: toggle sidebar: %w", err)
	}
	return nil
}

// ScaleFixed reports that no zoom widget is configured; the page then stays
// at its native scale.
func (s *Surface) ScaleFixed() bool {
	return s.sel.ZoomLabel == ""
}

// Current reads the scale the zoom widget displays.
func (s *Surface) Current(ctx context.Context) (int, error) {
	if s.ScaleFixed() {
		return scale.Default, nil
	}
	ok, el, err := s.page.Context(ctx).Has(s.sel.ZoomLabel)
	if err != nil {
		return 0, fmt.Errorf("browser: zoom label: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("browser: zoom label %q not found", s.sel.ZoomLabel)
	}
	text, err := el.Text()
	if err != nil {
		return 0, fmt.Errorf("browser: zoom label text: %w", err)
	}
	return scale.ParsePercent(text)
}

// Open opens the zoom selector.
func (s *Surface) Open(ctx context.Context) error {
	if s.sel.ZoomOpen == "" {
		return nil
	}
	if err := s.click(ctx, s.sel.ZoomOpen); err != nil {
		return fmt.Errorf("browser: open zoom selector: %w", err)
	}
	return nil
}

// Choose clicks option p in the open zoom selector.
func (s *Surface) Choose(ctx context.Context, p int) error {
	if s.ScaleFixed() || s.sel.ZoomOption == "" {
		if p == scale.Default {
			return nil
		}
		return scale.ErrUnavailable
	}
	sel := fmt.Sprintf(s.sel.ZoomOption, p)
	ok, el, err := s.page.Context(ctx).Has(sel)
	if err != nil {
		return fmt.Errorf("browser: zoom option %d: %w", p, err)
	}
	if !ok {
		return fmt.Errorf("browser: zoom option %d: %w", p, scale.ErrUnavailable)
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("browser: zoom option %d: %w", p, err)
	}
	return nil
}

// NextFrame resolves when the page is about to paint its next frame.
func (s *Surface) NextFrame(ctx context.Context) error {
	if _, err := s.page.Context(ctx).Eval(jsNextFrame); err != nil {
		return fmt.Errorf("browser: frame wait: %w", err)
	}
	return nil
}

// Grab screenshots the container's visible area.
func (s *Surface) Grab(ctx context.Context) (image.Image, error) {
	r, err := s.containerRect(ctx)
	if err != nil {
		return nil, err
	}
	data, err := s.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: s.format,
		Clip: &proto.PageViewport{
			X:      r.X,
			Y:      r.Y,
			Width:  r.Width,
			Height: r.Height,
			Scale:  1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return decodeScreenshot(data, s.format)
}

type rect struct {
	X, Y, Width, Height float64
}

func (s *Surface) containerRect(ctx context.Context) (rect, error) {
	res, err := s.page.Context(ctx).Eval(jsContainerRect, s.sel.Container)
	if err != nil {
		return rect{}, fmt.Errorf("browser: container rect: %w", err)
	}
	v := res.Value
	r := rect{
		X:      v.Get("x").Num(),
		Y:      v.Get("y").Num(),
		Width:  v.Get("width").Num(),
		Height: v.Get("height").Num(),
	}
	if r.Width <= 0 || r.Height <= 0 {
		return rect{}, fmt.Errorf("browser: container has empty area %.0fx%.0f", r.Width, r.Height)
	}
	return r, nil
}

func (s *Surface) click(ctx context.Context, sel string) error {
	if sel == "" {
		return fmt.Errorf("no selector configured")
	}
	ok, el, err := s.page.Context(ctx).Has(sel)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%q not found", sel)
	}
	return el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func decodeScreenshot(data []byte, format proto.PageCaptureScreenshotFormat) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch format {
	case proto.PageCaptureScreenshotFormatWebp:
		img, err = webp.Decode(bytes.NewReader(data))
	default:
		img, err = png.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("browser: decode %s screenshot: %w", format, err)
	}
	return img, nil
}

var funcLiteral = regexp.MustCompile(`^(async\s+)?(function\b|\([^()]*\)\s*=>|[A-Za-z_$][\w$]*\s*=>)`)

// exprFunc wraps a JS expression as the function Rod evaluates. Function
// literals are returned unchanged.
func exprFunc(expr string) string {
	e := strings.TrimRight(strings.TrimSpace(expr), ";")
	if funcLiteral.MatchString(e) {
		return e
	}
	return "() => (" + e + ")"
}

const (
	jsTarget = `(sel) => sel ? document.querySelector(sel) : (document.scrollingElement || document.documentElement)`

	jsScrollTo = `(sel, x, y) => { const el = (` + jsTarget + `)(sel); el.scrollTo(x, y); }`

	jsGetPadding = `(sel) => (` + jsTarget + `)(sel).style.padding`

	jsSetPadding = `(sel, css) => { (` + jsTarget + `)(sel).style.padding = css; }`

	jsContainerRect = `(sel) => {
		if (!sel) {
			const d = document.documentElement;
			return {x: 0, y: 0, width: d.clientWidth, height: d.clientHeight};
		}
		const el = document.querySelector(sel);
		const r = el.getBoundingClientRect();
		const x = Math.max(0, r.left + el.clientLeft);
		const y = Math.max(0, r.top + el.clientTop);
		const w = Math.min(el.clientWidth, window.innerWidth - x);
		const h = Math.min(el.clientHeight, window.innerHeight - y);
		return {x, y, width: w, height: h};
	}`

	jsNextFrame = `() => new Promise(resolve => requestAnimationFrame(() => resolve()))`
)
