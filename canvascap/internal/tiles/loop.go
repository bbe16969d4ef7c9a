// CLAUDE:SUMMARY Per-tile capture state machine: position, settle, force redraw, grab, stitch, check edge rows, retry with escalating frame waits.
// Package tiles drives the per-tile capture loop: position the viewport,
// wait for the frame to settle, force a redraw, draw the viewport into the
// output buffer and check the result with the render-completion oracle,
// retrying with escalating settle time.
package tiles

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/hazyhaar/tilecap/canvascap/internal/grid"
	"github.com/hazyhaar/tilecap/canvascap/internal/oracle"
	"github.com/hazyhaar/tilecap/canvascap/internal/stitch"
)

// DefaultMaxRetries is the attempt ceiling per tile when none is configured.
const DefaultMaxRetries = 5

// Positioner moves the viewport and forces the renderer to repaint it.
type Positioner interface {
	Position(ctx context.Context, x, y int) error
	ForceRedraw(ctx context.Context) error
}

// Frames waits for render frame boundaries.
type Frames interface {
	// NextFrame returns when the next frame is about to be drawn.
	NextFrame(ctx context.Context) error
}

// Grabber reads the current viewport contents as pixels.
type Grabber interface {
	Grab(ctx context.Context) (image.Image, error)
}

// Outcome is the terminal state of a tile.
type Outcome int

const (
	Accepted  Outcome = iota // oracle accepted an attempt
	Exhausted                // all attempts rejected; best-effort pixels kept
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "exhausted"
}

// Result describes how one tile was captured.
type Result struct {
	Tile    grid.Tile
	Outcome Outcome
	// Retries is the number of rejected attempts before the outcome.
	Retries int
	// Waits holds the frame boundaries waited before each attempt's grab.
	Waits []int
}

// Progress is reported after every tile.
type Progress struct {
	Done, Total int
	Percent     int
	Last        Result
}

// Summary aggregates a full grid run.
type Summary struct {
	Tiles     int
	Accepted  int
	Exhausted int
	Results   []Result
}

// Config wires a Loop.
type Config struct {
	Grid       grid.Grid
	Positioner Positioner
	Frames     Frames
	Grabber    Grabber
	Stitcher   *stitch.Stitcher
	MaxRetries int
	OnProgress func(Progress)
	Logger     *slog.Logger
}

// Loop captures tiles one at a time. Tiles share the viewport and the output
// buffer, so a Loop must not be used concurrently.
type Loop struct {
	cfg Config
}

// New returns a Loop for cfg.
func New(cfg Config) *Loop {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{cfg: cfg}
}

// Run captures every tile of the grid in row-major order. Exhausted tiles do
// not stop the run; only collaborator failures do.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	tiles := l.cfg.Grid.Tiles()
	sum := Summary{Tiles: len(tiles), Results: make([]Result, 0, len(tiles))}

	for i, t := range tiles {
		res, err := l.Capture(ctx, t)
		if err != nil {
			return sum, err
		}
		sum.Results = append(sum.Results, res)
		if res.Outcome == Accepted {
			sum.Accepted++
		} else {
			sum.Exhausted++
		}

		p := Progress{Done: i + 1, Total: len(tiles), Percent: (i + 1) * 100 / len(tiles), Last: res}
		l.cfg.Logger.Info("tiles: progress",
			"done", p.Done, "total", p.Total, "percent", p.Percent, "outcome", res.Outcome)
		if l.cfg.OnProgress != nil {
			l.cfg.OnProgress(p)
		}
	}
	return sum, nil
}

// Capture runs the state machine for one tile.
func (l *Loop) Capture(ctx context.Context, t grid.Tile) (Result, error) {
	log := l.cfg.Logger
	res := Result{Tile: t, Outcome: Exhausted}

	if err := l.cfg.Positioner.Position(ctx, t.X, t.Y); err != nil {
		return res, fmt.Errorf("tiles: tile %d: %w", t.Index, err)
	}
	if err := l.waitFrames(ctx, 1); err != nil {
		return res, fmt.Errorf("tiles: tile %d: settle: %w", t.Index, err)
	}

	region := l.cfg.Grid.Bounds(t)
	for i := 0; i < l.cfg.MaxRetries; i++ {
		if err := l.cfg.Positioner.ForceRedraw(ctx); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("tiles: force redraw failed", "tile", t.Index, "attempt", i+1, "error", err)
		}

		n := i + 1
		if err := l.waitFrames(ctx, n); err != nil {
			return res, fmt.Errorf("tiles: tile %d: wait: %w", t.Index, err)
		}
		res.Waits = append(res.Waits, n)

		img, err := l.cfg.Grabber.Grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn("tiles: grab failed", "tile", t.Index, "attempt", i+1, "error", err)
			res.Retries = i + 1
			continue
		}
		// Judge the pixels this attempt wrote, clipped to the tile's share
		// of the canvas.
		drawn := l.cfg.Stitcher.DrawTile(t.X, t.Y, img)
		check := drawn.Intersect(region.Add(l.cfg.Stitcher.Correction()))
		if oracle.Ready(l.cfg.Stitcher.Image(), check) {
			res.Outcome = Accepted
			res.Retries = i
			return res, nil
		}
		res.Retries = i + 1
		log.Debug("tiles: tile not ready, retrying", "tile", t.Index, "attempt", i+1)
	}

	log.Warn("tiles: retries exhausted, keeping best-effort pixels",
		"tile", t.Index, "x", t.X, "y", t.Y, "attempts", l.cfg.MaxRetries)
	return res, nil
}

func (l *Loop) waitFrames(ctx context.Context, n int) error {
	for range n {
		if err := l.cfg.Frames.NextFrame(ctx); err != nil {
			return err
		}
	}
	return nil
}
