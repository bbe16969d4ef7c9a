// Package idgen generates capture identifiers.
//
// Captures are keyed "cap_<uuidv7>": time-sortable, so the archive lists
// newest last without an extra index, and prefixed so IDs are recognisable
// in logs and URLs.
package idgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CapturePrefix prefixes every capture ID.
const CapturePrefix = "cap_"

// ErrInvalid is returned by ParseCapture for malformed IDs.
var ErrInvalid = errors.New("idgen: invalid capture id")

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Capture is the default capture ID generator.
var Capture Generator = Prefixed(CapturePrefix, UUIDv7())

// New produces a capture ID.
func New() string {
	return Capture()
}

// ParseCapture validates a capture ID and returns it in canonical form.
func ParseCapture(id string) (string, error) {
	rest, ok := strings.CutPrefix(id, CapturePrefix)
	if !ok {
		return "", fmt.Errorf("%w %q: missing %q prefix", ErrInvalid, id, CapturePrefix)
	}
	u, err := uuid.Parse(rest)
	if err != nil {
		return "", fmt.Errorf("%w %q: %w", ErrInvalid, id, err)
	}
	return CapturePrefix + u.String(), nil
}
