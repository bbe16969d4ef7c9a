package canvascap

import (
	"context"
	"image"

	"github.com/hazyhaar/tilecap/canvascap/internal/scale"
)

// Engine exposes the scene being rendered.
type Engine interface {
	// CanvasSize returns the canvas size in logical units.
	CanvasSize(ctx context.Context) (w, h int, err error)
	// Render triggers a render pass.
	Render(ctx context.Context) error
	// HasCamera reports whether the engine exposes a movable camera.
	HasCamera(ctx context.Context) (bool, error)
	// MoveCamera sets the camera position in engine coordinates.
	MoveCamera(ctx context.Context, x, y float64) error
}

// Container is the element the canvas is scrolled within.
type Container interface {
	// ViewportSize returns the visible area in pixels.
	ViewportSize(ctx context.Context) (w, h int, err error)
	ScrollTo(ctx context.Context, x, y float64) error
	// Padding and SetPadding read and replace the inline padding style.
	Padding(ctx context.Context) (string, error)
	SetPadding(ctx context.Context, css string) error
}

// Overlay is a panel that covers part of the viewport.
type Overlay interface {
	OverlayOpen(ctx context.Context) (bool, error)
	ToggleOverlay(ctx context.Context) error
}

// Screen reads back what is displayed.
type Screen interface {
	// NextFrame blocks until the next render frame boundary.
	NextFrame(ctx context.Context) error
	// Grab returns the current viewport contents.
	Grab(ctx context.Context) (image.Image, error)
}

// Surface is the full set of collaborators a Session drives.
type Surface interface {
	Engine
	Container
	Overlay
	Screen
	scale.Control

	// Discover returns the names of required collaborators that are absent.
	Discover(ctx context.Context) ([]string, error)
}

// fixedScaler is implemented by surfaces without a usable zoom widget.
type fixedScaler interface {
	ScaleFixed() bool
}
