package sink

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/tilecap/canvascap/output"
)

// Router fans out captures to all configured sinks. One sink error does not
// block the others; errors are logged and the first encountered is returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Add appends a sink.
func (r *Router) Add(s Sink) { r.sinks = append(r.sinks, s) }

// Len returns the number of sinks.
func (r *Router) Len() int { return len(r.sinks) }

func (r *Router) Present(ctx context.Context, img output.Image) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Present(ctx, img); err != nil {
			r.logger.Warn("sink: present failed", "id", img.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
