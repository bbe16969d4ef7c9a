package scale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/tilecap/canvascap/internal/wait"
)

// ErrUnavailable is returned by a Control when the requested option is not
// offered by the selector.
var ErrUnavailable = errors.New("scale: option unavailable")

// Control is the scale selector widget.
type Control interface {
	// Current returns the scale the widget currently displays.
	Current(ctx context.Context) (int, error)
	// Open opens the selector so options can be chosen.
	Open(ctx context.Context) error
	// Choose selects option p. Returns ErrUnavailable if p is not offered.
	Choose(ctx context.Context, p int) error
}

// Switcher changes the scale through a Control and confirms the change by
// polling the control within a timeout.
type Switcher struct {
	ctl      Control
	timeout  time.Duration
	interval time.Duration
	fallback int
	logger   *slog.Logger
}

// SwitcherOption configures a Switcher.
type SwitcherOption func(*Switcher)

// WithTimeout sets how long Set waits for the control to confirm. Default: 3s.
func WithTimeout(d time.Duration) SwitcherOption {
	return func(s *Switcher) { s.timeout = d }
}

// WithPollInterval sets the confirmation polling interval. Default: 50ms.
func WithPollInterval(d time.Duration) SwitcherOption {
	return func(s *Switcher) { s.interval = d }
}

// WithFallback sets the scale SetOrFallback reverts to. Default: Default.
func WithFallback(p int) SwitcherOption {
	return func(s *Switcher) { s.fallback = p }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) SwitcherOption {
	return func(s *Switcher) { s.logger = l }
}

// NewSwitcher creates a Switcher over ctl.
func NewSwitcher(ctl Control, opts ...SwitcherOption) *Switcher {
	s := &Switcher{
		ctl:      ctl,
		timeout:  3 * time.Second,
		interval: 50 * time.Millisecond,
		fallback: Default,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Current returns the scale shown by the control.
func (s *Switcher) Current(ctx context.Context) (int, error) {
	return s.ctl.Current(ctx)
}

// Set switches to p and waits until the control reflects it.
func (s *Switcher) Set(ctx context.Context, p int) error {
	cur, err := s.ctl.Current(ctx)
	if err == nil && cur == p {
		return nil
	}

	if err := s.ctl.Open(ctx); err != nil {
		return fmt.Errorf("scale: open selector: %w", err)
	}
	if err := s.ctl.Choose(ctx, p); err != nil {
		return fmt.Errorf("scale: choose %d: %w", p, err)
	}

	err = wait.Until(ctx, s.timeout, s.interval, func(ctx context.Context) (bool, error) {
		cur, err := s.ctl.Current(ctx)
		if err != nil {
			return false, nil
		}
		return cur == p, nil
	})
	if err != nil {
		return fmt.Errorf("scale: confirm %d: %w", p, err)
	}
	return nil
}

// SetOrFallback switches to p. On failure it logs and switches to the
// fallback scale instead. When that fails too, the scale the control shows
// is the one in effect. It returns the scale in effect, or an error when
// that scale cannot be read.
func (s *Switcher) SetOrFallback(ctx context.Context, p int) (int, error) {
	err := s.Set(ctx, p)
	if err == nil {
		return p, nil
	}
	s.logger.Warn("scale: change failed, falling back",
		"requested", p, "fallback", s.fallback, "error", err)

	if p != s.fallback {
		ferr := s.Set(ctx, s.fallback)
		if ferr == nil {
			return s.fallback, nil
		}
		s.logger.Error("scale: fallback failed", "fallback", s.fallback, "error", ferr)
		err = errors.Join(err, ferr)
	}

	cur, cerr := s.ctl.Current(ctx)
	if cerr != nil {
		return 0, fmt.Errorf("scale: scale unknown after failed change to %d: %w", p, errors.Join(err, cerr))
	}
	s.logger.Warn("scale: staying at displayed scale", "requested", p, "current", cur)
	return cur, nil
}
