// Package oracle decides whether a captured tile reflects a settled render.
//
// Only the top and bottom rows of the tile are sampled. A fully rendered
// tile is assumed opaque at its vertical extremes, so any pixel with zero
// alpha in either row marks the tile as stale. Interior rows are not
// inspected: a tile whose only transparent pixels are interior is accepted,
// and legitimately transparent content on an edge row is rejected.
package oracle

import "image"

// Ready reports whether the tile region r of img passes the edge-row check.
// r is clipped to img's bounds; an empty region is never ready.
func Ready(img image.Image, r image.Rectangle) bool {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return false
	}
	if !RowOpaque(img, r.Min.Y, r.Min.X, r.Max.X) {
		return false
	}
	return RowOpaque(img, r.Max.Y-1, r.Min.X, r.Max.X)
}

// RowOpaque reports whether no pixel in row y, columns [x0, x1), has zero
// alpha.
func RowOpaque(img image.Image, y, x0, x1 int) bool {
	switch m := img.(type) {
	case *image.RGBA:
		return alphaRow(m.Pix, m.PixOffset(x0, y), x1-x0)
	case *image.NRGBA:
		return alphaRow(m.Pix, m.PixOffset(x0, y), x1-x0)
	}
	for x := x0; x < x1; x++ {
		if _, _, _, a := img.At(x, y).RGBA(); a == 0 {
			return false
		}
	}
	return true
}

// alphaRow scans n 4-byte pixels starting at off for a zero alpha byte.
func alphaRow(pix []uint8, off, n int) bool {
	for i := 0; i < n; i++ {
		if pix[off+i*4+3] == 0 {
			return false
		}
	}
	return true
}
