// Package stitch composites captured viewport tiles into one output image.
package stitch

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
)

// ErrEmpty is returned when encoding a zero-sized output.
var ErrEmpty = errors.New("stitch: empty output")

// Stitcher owns the output buffer. It is not safe for concurrent use; tiles
// are drawn strictly one after another.
type Stitcher struct {
	buf        *image.RGBA
	tile       image.Point
	correction image.Point
	scaler     xdraw.Scaler
	encoder    png.Encoder
	drawn      int
}

// Option configures a Stitcher.
type Option func(*Stitcher)

// WithCorrection offsets every drawn tile by the fixed chrome offset between
// the logical origin and the visible drawing surface. The offset is rounded
// to whole pixels.
func WithCorrection(x, y float64) Option {
	return func(s *Stitcher) {
		s.correction = image.Pt(int(math.Round(x)), int(math.Round(y)))
	}
}

// WithScaler sets the interpolator used when a grabbed viewport does not
// match the nominal tile size. Default: ApproxBiLinear.
func WithScaler(sc xdraw.Scaler) Option {
	return func(s *Stitcher) { s.scaler = sc }
}

// WithCompression sets the PNG compression level. Default: png.DefaultCompression.
func WithCompression(level png.CompressionLevel) Option {
	return func(s *Stitcher) { s.encoder.CompressionLevel = level }
}

// New allocates a width x height output buffer for tiles of the given
// nominal size.
func New(width, height int, tile image.Point, opts ...Option) *Stitcher {
	s := &Stitcher{
		buf:    image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))),
		tile:   tile,
		scaler: xdraw.ApproxBiLinear,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DrawTile blits the viewport contents src with its top-left at (x, y) plus
// the correction offset and returns the region of the buffer it covered.
// Sources whose size differs from the nominal tile (e.g. a device pixel
// ratio other than 1) are rescaled to the tile size.
func (s *Stitcher) DrawTile(x, y int, src image.Image) image.Rectangle {
	sb := src.Bounds()
	size := s.tile
	if size.X <= 0 || size.Y <= 0 {
		size = sb.Size()
	}
	dp := image.Pt(x, y).Add(s.correction)
	dr := image.Rectangle{Min: dp, Max: dp.Add(size)}

	if sb.Size() == size {
		xdraw.Draw(s.buf, dr, src, sb.Min, xdraw.Src)
	} else {
		s.scaler.Scale(s.buf, dr, src, sb, xdraw.Src, nil)
	}
	s.drawn++
	return dr.Intersect(s.buf.Bounds())
}

// Correction returns the whole-pixel offset applied to every tile.
func (s *Stitcher) Correction() image.Point { return s.correction }

// Image returns the output buffer.
func (s *Stitcher) Image() *image.RGBA { return s.buf }

// Bounds returns the output buffer bounds.
func (s *Stitcher) Bounds() image.Rectangle { return s.buf.Bounds() }

// Drawn returns the number of DrawTile calls so far, retries included.
func (s *Stitcher) Drawn() int { return s.drawn }

// Encode writes the buffer as PNG.
func (s *Stitcher) Encode(w io.Writer) error {
	if s.buf.Bounds().Empty() {
		return ErrEmpty
	}
	if err := s.encoder.Encode(w, s.buf); err != nil {
		return fmt.Errorf("stitch: encode png: %w", err)
	}
	return nil
}

// PNG encodes the buffer and returns the bytes.
func (s *Stitcher) PNG() ([]byte, error) {
	var b bytes.Buffer
	if err := s.Encode(&b); err != nil {
		return nil, err
	}
	if b.Len() == 0 {
		return nil, ErrEmpty
	}
	return b.Bytes(), nil
}
