// Package output defines the finished capture handed to presentation sinks.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
)

// FormatPNG is the only encoding produced by the stitcher.
const FormatPNG = "png"

// Image is a stitched capture and its provenance.
type Image struct {
	ID         string `json:"id"`
	SourceURL  string `json:"source_url,omitempty"`
	Scale      int    `json:"scale"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Tiles      int    `json:"tiles"`
	Exhausted  int    `json:"exhausted"`
	Format     string `json:"format"`
	Data       []byte `json:"data,omitempty"`
	CapturedAt int64  `json:"captured_at"` // unix ms

	// Report lists the per-tile outcomes in row-major order.
	Report []TileOutcome `json:"report,omitempty"`
}

// TileOutcome records how one tile was captured.
type TileOutcome struct {
	Index   int    `json:"index"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Outcome string `json:"outcome"` // accepted | exhausted
	Retries int    `json:"retries"`
}

// Meta is Image without the pixel payload.
type Meta struct {
	ID         string `json:"id"`
	SourceURL  string `json:"source_url,omitempty"`
	Scale      int    `json:"scale"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Tiles      int    `json:"tiles"`
	Exhausted  int    `json:"exhausted"`
	Format     string `json:"format"`
	Bytes      int    `json:"bytes"`
	CapturedAt int64  `json:"captured_at"`
}

// Meta returns the metadata of img.
func (img Image) Meta() Meta {
	return Meta{
		ID:         img.ID,
		SourceURL:  img.SourceURL,
		Scale:      img.Scale,
		Width:      img.Width,
		Height:     img.Height,
		Tiles:      img.Tiles,
		Exhausted:  img.Exhausted,
		Format:     img.Format,
		Bytes:      len(img.Data),
		CapturedAt: img.CapturedAt,
	}
}

// Decode decodes the PNG payload.
func (img Image) Decode() (image.Image, error) {
	m, err := png.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("output: decode %s: %w", img.ID, err)
	}
	return m, nil
}

// Verify checks that the payload decodes to the advertised, non-empty size.
func (img Image) Verify() error {
	cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("output: decode config: %w", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("output: degenerate image %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width != img.Width || cfg.Height != img.Height {
		return fmt.Errorf("output: size mismatch: payload %dx%d, recorded %dx%d",
			cfg.Width, cfg.Height, img.Width, img.Height)
	}
	return nil
}

// MarshalMeta serialises the metadata as JSON.
func MarshalMeta(img Image) ([]byte, error) {
	return json.Marshal(img.Meta())
}
