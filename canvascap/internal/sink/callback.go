package sink

import (
	"context"

	"github.com/hazyhaar/tilecap/canvascap/output"
)

// PresentFunc is called for each finished capture.
type PresentFunc func(ctx context.Context, img output.Image) error

// Callback delivers captures to an in-process function with no
// serialisation, for embedding canvascap in another service.
type Callback struct {
	fn PresentFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn PresentFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Present(ctx context.Context, img output.Image) error {
	if c.fn != nil {
		return c.fn(ctx, img)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
