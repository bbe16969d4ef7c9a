// Package grid computes the tile grid that covers a scaled canvas with
// viewport-sized tiles.
package grid

import "image"

// Tile is one grid cell identified by its top-left origin in output-buffer
// pixels. Index is the row-major position of the tile in the grid.
type Tile struct {
	Index int
	X, Y  int
}

// Origin returns the tile origin as an image.Point.
func (t Tile) Origin() image.Point { return image.Pt(t.X, t.Y) }

// Grid covers a Width x Height pixel canvas with TileWidth x TileHeight tiles.
// Edge tiles are clipped when the canvas is not an exact multiple of the tile.
type Grid struct {
	Width, Height         int
	TileWidth, TileHeight int
}

// New returns the grid for a canvas of w x h pixels and a viewport of vw x vh.
func New(w, h, vw, vh int) Grid {
	return Grid{Width: w, Height: h, TileWidth: vw, TileHeight: vh}
}

func (g Grid) degenerate() bool {
	return g.Width <= 0 || g.Height <= 0 || g.TileWidth <= 0 || g.TileHeight <= 0
}

// Cols is ceil(Width/TileWidth).
func (g Grid) Cols() int {
	if g.degenerate() {
		return 0
	}
	return (g.Width + g.TileWidth - 1) / g.TileWidth
}

// Rows is ceil(Height/TileHeight).
func (g Grid) Rows() int {
	if g.degenerate() {
		return 0
	}
	return (g.Height + g.TileHeight - 1) / g.TileHeight
}

// Count is the number of tiles needed to cover the canvas.
func (g Grid) Count() int { return g.Cols() * g.Rows() }

// Tiles enumerates tile origins in row-major order: outer loop over y,
// inner loop over x.
func (g Grid) Tiles() []Tile {
	n := g.Count()
	if n == 0 {
		return nil
	}
	tiles := make([]Tile, 0, n)
	for y := 0; y < g.Height; y += g.TileHeight {
		for x := 0; x < g.Width; x += g.TileWidth {
			tiles = append(tiles, Tile{Index: len(tiles), X: x, Y: y})
		}
	}
	return tiles
}

// Bounds is the region of the canvas covered by t, clipped to the canvas.
func (g Grid) Bounds(t Tile) image.Rectangle {
	r := image.Rect(t.X, t.Y, t.X+g.TileWidth, t.Y+g.TileHeight)
	return r.Intersect(image.Rect(0, 0, g.Width, g.Height))
}
