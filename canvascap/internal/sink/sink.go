// Package sink defines presentation backends for finished captures.
package sink

import (
	"context"

	"github.com/hazyhaar/tilecap/canvascap/output"
)

// Sink receives finished captures. Implementations deliver them to
// different backends (stdout, files, webhook, SQLite archive, in-process
// callback).
type Sink interface {
	Present(ctx context.Context, img output.Image) error
	Close() error
}
