// CLAUDE:SUMMARY Positions the visible window over the logical canvas via scroll offsets or a camera transform, and forces redraws by detouring through a neighbouring scale.
// Package viewport moves the visible window over a logical canvas that is
// larger than the screen. Two positioning strategies exist: scrolling a
// container, or moving an engine camera whose anchor is the viewport centre.
package viewport

import (
	"context"
	"errors"
	"fmt"
)

// Mode selects the positioning strategy. It is chosen once per session.
type Mode int

const (
	ModeScroll Mode = iota // container scroll offsets
	ModeCamera             // engine camera transform, centre-anchored
)

func (m Mode) String() string {
	switch m {
	case ModeScroll:
		return "scroll"
	case ModeCamera:
		return "camera"
	default:
		return "unknown"
	}
}

// Margin is the temporary padding added around the canvas so edge tiles can
// be reached, in logical (unscaled) pixels.
type Margin struct {
	Top, Left float64
}

// Scroller sets the scroll offsets of the viewport container.
type Scroller interface {
	ScrollTo(ctx context.Context, x, y float64) error
}

// Camera sets the position of an engine camera.
type Camera interface {
	MoveCamera(ctx context.Context, x, y float64) error
}

// Zoomer switches the rendered scale and waits for it to take effect.
type Zoomer interface {
	Set(ctx context.Context, p int) error
}

// Renderer triggers a render pass.
type Renderer interface {
	Render(ctx context.Context) error
}

// Config wires a Controller. Scroller is required for ModeScroll, Camera for
// ModeCamera.
type Config struct {
	Mode     Mode
	Scroller Scroller
	Camera   Camera
	Zoom     Zoomer
	Renderer Renderer

	// Scale is the target scale percentage; Detour the neighbouring level
	// used to force a redraw.
	Scale  int
	Detour int

	Margin Margin

	// ViewWidth and ViewHeight are the viewport size in pixels.
	ViewWidth, ViewHeight int
}

// State is the offset the viewport was last positioned to.
type State struct {
	X, Y       int
	Positioned bool
}

// Controller positions the viewport at tile origins.
type Controller struct {
	cfg    Config
	factor float64
	state  State
}

// New validates cfg and returns a Controller.
func New(cfg Config) (*Controller, error) {
	switch cfg.Mode {
	case ModeScroll:
		if cfg.Scroller == nil {
			return nil, errors.New("viewport: scroll mode requires a scroller")
		}
	case ModeCamera:
		if cfg.Camera == nil {
			return nil, errors.New("viewport: camera mode requires a camera")
		}
	default:
		return nil, fmt.Errorf("viewport: unknown mode %d", cfg.Mode)
	}
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("viewport: invalid scale %d", cfg.Scale)
	}
	return &Controller{cfg: cfg, factor: float64(cfg.Scale) / 100}, nil
}

// Mode returns the positioning strategy in use.
func (c *Controller) Mode() Mode { return c.cfg.Mode }

// State returns the last positioned offset.
func (c *Controller) State() State { return c.state }

// Position moves the viewport so the tile at output-buffer origin (x, y)
// becomes visible. The move is not instantaneous: callers must wait for a
// frame boundary before reading pixels.
func (c *Controller) Position(ctx context.Context, x, y int) error {
	var err error
	switch c.cfg.Mode {
	case ModeCamera:
		cx, cy := CameraPosition(x, y, c.factor, c.cfg.Margin, c.cfg.ViewWidth, c.cfg.ViewHeight)
		err = c.cfg.Camera.MoveCamera(ctx, cx, cy)
	default:
		sx, sy := ScrollOffset(x, y, c.factor, c.cfg.Margin)
		err = c.cfg.Scroller.ScrollTo(ctx, sx, sy)
	}
	if err != nil {
		return fmt.Errorf("viewport: position %s (%d,%d): %w", c.cfg.Mode, x, y, err)
	}
	c.state = State{X: x, Y: y, Positioned: true}
	return nil
}

// ForceRedraw makes the renderer repaint the current viewport by switching
// to the detour scale and back, then triggering a render pass.
func (c *Controller) ForceRedraw(ctx context.Context) error {
	if c.cfg.Zoom != nil && c.cfg.Detour > 0 && c.cfg.Detour != c.cfg.Scale {
		if err := c.cfg.Zoom.Set(ctx, c.cfg.Detour); err != nil {
			return fmt.Errorf("viewport: detour to %d: %w", c.cfg.Detour, err)
		}
		if err := c.cfg.Zoom.Set(ctx, c.cfg.Scale); err != nil {
			return fmt.Errorf("viewport: return to %d: %w", c.cfg.Scale, err)
		}
	}
	if c.cfg.Renderer != nil {
		if err := c.cfg.Renderer.Render(ctx); err != nil {
			return fmt.Errorf("viewport: render: %w", err)
		}
	}
	return nil
}

// ScrollOffset is the scroll position that shows output origin (ox, oy).
// The margin pairing (Top with x, Left with y) matches the page convention
// the padding is applied with; margins are uniform in practice.
func ScrollOffset(ox, oy int, scale float64, m Margin) (x, y float64) {
	return float64(ox) + m.Top*scale, float64(oy) + m.Left*scale
}

// CameraPosition is the camera position that shows output origin (ox, oy).
// The camera anchors the viewport centre and its y axis points up.
func CameraPosition(ox, oy int, scale float64, m Margin, vw, vh int) (x, y float64) {
	x = float64(ox)/scale + m.Left*scale + float64(vw)/scale/2
	y = -float64(oy)/scale + m.Top*scale - float64(vh)/scale/2
	return x, y
}
