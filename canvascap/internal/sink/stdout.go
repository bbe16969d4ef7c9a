// CLAUDE:SUMMARY Writes finished captures as JSON lines (metadata plus base64 PNG) to an io.Writer (defaults to stdout).
package sink

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/tilecap/canvascap/output"
)

// Stdout writes JSON lines to an io.Writer (default os.Stdout).
type Stdout struct {
	mu       sync.Mutex
	enc      *json.Encoder
	metaOnly bool
}

// NewStdout creates a Stdout sink. If w is nil, os.Stdout is used. With
// metaOnly the image payload is omitted.
func NewStdout(w io.Writer, metaOnly bool) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w), metaOnly: metaOnly}
}

func (s *Stdout) Present(_ context.Context, img output.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metaOnly {
		return s.enc.Encode(envelope{Type: "capture_meta", Data: img.Meta()})
	}
	return s.enc.Encode(envelope{Type: "capture", Data: img})
}

func (s *Stdout) Close() error { return nil }

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
