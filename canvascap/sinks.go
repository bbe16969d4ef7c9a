package canvascap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/tilecap/canvascap/internal/sink"
	"github.com/hazyhaar/tilecap/horosafe"
)

// Sink is the presentation interface for finished captures.
type Sink = sink.Sink

// PresentFunc is called for each finished capture.
type PresentFunc = sink.PresentFunc

// NewStdoutSink creates a JSON-lines sink. With metaOnly the PNG payload is
// left out.
func NewStdoutSink(w io.Writer, metaOnly bool) Sink {
	return sink.NewStdout(w, metaOnly)
}

// NewFileSink writes <id>.png and <id>.json into dir.
func NewFileSink(dir string) Sink {
	return sink.NewFile(dir)
}

// NewWebhookSink creates a webhook POST sink with retry.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewWebhook(url, sink.WithWebhookLogger(logger))
}

// NewCallbackSink creates an in-process sink.
func NewCallbackSink(fn PresentFunc) Sink {
	return sink.NewCallback(fn)
}

// OpenSinks builds the sinks listed in configuration. On error every sink
// already opened is closed.
func OpenSinks(cfgs []SinkConfig, logger *slog.Logger) ([]Sink, error) {
	var out []Sink
	for i, c := range cfgs {
		var s Sink
		switch c.Type {
		case "stdout":
			s = NewStdoutSink(nil, false)
		case "file":
			if c.Dir == "" {
				return nil, closeAll(out, fmt.Errorf("canvascap: sinks[%d]: file sink needs dir", i))
			}
			s = NewFileSink(c.Dir)
		case "webhook":
			if c.URL == "" {
				return nil, closeAll(out, fmt.Errorf("canvascap: sinks[%d]: webhook sink needs url", i))
			}
			if _, err := horosafe.CheckURL(c.URL); err != nil {
				return nil, closeAll(out, fmt.Errorf("canvascap: sinks[%d]: %w", i, err))
			}
			s = NewWebhookSink(c.URL, logger)
		case "sqlite":
			st, err := sink.OpenStore(c.Path)
			if err != nil {
				return nil, closeAll(out, fmt.Errorf("canvascap: sinks[%d]: %w", i, err))
			}
			s = st
		default:
			return nil, closeAll(out, fmt.Errorf("canvascap: sinks[%d]: unknown type %q", i, c.Type))
		}
		out = append(out, s)
	}
	return out, nil
}

func closeAll(sinks []Sink, err error) error {
	errs := []error{err}
	for _, s := range sinks {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
