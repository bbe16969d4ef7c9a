package scale

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSnap(t *testing.T) {
	cases := []struct{ in, want int }{
		{120, 150},
		{100, 100},
		{1, 10},
		{10, 10},
		{76, 100},
		{250, 250},
		{400, 250},
		{0, 100},
		{-5, 100},
	}
	for _, c := range cases {
		if got := Levels.Snap(c.in); got != c.want {
			t.Errorf("Snap(%d): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestDetour(t *testing.T) {
	cases := []struct{ in, want int }{
		{250, 200},
		{100, 150},
		{10, 50},
		{200, 250},
	}
	for _, c := range cases {
		got := Levels.Detour(c.in)
		if got != c.want {
			t.Errorf("Detour(%d): got %d, want %d", c.in, got, c.want)
		}
		if got == c.in {
			t.Errorf("Detour(%d): must differ from target", c.in)
		}
	}
}

func TestDetour_SingleLevel(t *testing.T) {
	if got := (Ladder{100}).Detour(100); got != 100 {
		t.Errorf("Detour: got %d, want 100", got)
	}
}

func TestNormalize(t *testing.T) {
	got := Ladder{200, 0, 50, 200, -1, 100}.Normalize()
	want := Ladder{50, 100, 200}
	if len(got) != len(want) {
		t.Fatalf("Normalize: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Normalize: got %v, want %v", got, want)
		}
	}
	if len(Ladder(nil).Normalize()) != len(Levels) {
		t.Error("Normalize(nil): want default levels")
	}
}

func TestParsePercent(t *testing.T) {
	for in, want := range map[string]int{"150%": 150, " 75 % ": 75, "100": 100} {
		got, err := ParsePercent(in)
		if err != nil {
			t.Fatalf("ParsePercent(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParsePercent(%q): got %d, want %d", in, got, want)
		}
	}
	if _, err := ParsePercent("zoom"); err == nil {
		t.Error("ParsePercent(zoom): want error")
	}
}

// fakeControl applies a chosen option after lag Current calls.
type fakeControl struct {
	current     int
	pending     int
	lag         int
	unavailable map[int]bool
	opens       int
	chosen      []int
}

func (f *fakeControl) Current(context.Context) (int, error) {
	if f.pending != 0 {
		if f.lag == 0 {
			f.current, f.pending = f.pending, 0
		} else {
			f.lag--
		}
	}
	return f.current, nil
}

func (f *fakeControl) Open(context.Context) error { f.opens++; return nil }

func (f *fakeControl) Choose(_ context.Context, p int) error {
	if f.unavailable[p] {
		return ErrUnavailable
	}
	f.chosen = append(f.chosen, p)
	f.pending = p
	return nil
}

func TestSwitcherSet_AlreadyCurrent(t *testing.T) {
	ctl := &fakeControl{current: 100}
	if err := NewSwitcher(ctl).Set(context.Background(), 100); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ctl.opens != 0 {
		t.Errorf("opens: got %d, want 0", ctl.opens)
	}
}

func TestSwitcherSet_ConfirmsAfterLag(t *testing.T) {
	ctl := &fakeControl{current: 100, lag: 3}
	sw := NewSwitcher(ctl, WithPollInterval(time.Millisecond), WithTimeout(time.Second))
	if err := sw.Set(context.Background(), 150); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ctl.current != 150 {
		t.Errorf("current: got %d, want 150", ctl.current)
	}
}

func TestSwitcherSet_Timeout(t *testing.T) {
	ctl := &fakeControl{current: 100, lag: 1 << 30}
	sw := NewSwitcher(ctl, WithPollInterval(time.Millisecond), WithTimeout(10*time.Millisecond))
	err := sw.Set(context.Background(), 150)
	if err == nil {
		t.Fatal("Set: want timeout error")
	}
}

func TestSetOrFallback_Unavailable(t *testing.T) {
	ctl := &fakeControl{current: 50, unavailable: map[int]bool{250: true}}
	sw := NewSwitcher(ctl, WithPollInterval(time.Millisecond), WithTimeout(time.Second))
	got, err := sw.SetOrFallback(context.Background(), 250)
	if err != nil {
		t.Fatalf("SetOrFallback: %v", err)
	}
	if got != Default {
		t.Fatalf("SetOrFallback: got %d, want %d", got, Default)
	}
	if ctl.current != Default {
		t.Errorf("current: got %d, want %d", ctl.current, Default)
	}
}

func TestSetOrFallback_Success(t *testing.T) {
	ctl := &fakeControl{current: 100}
	sw := NewSwitcher(ctl, WithPollInterval(time.Millisecond))
	if got, err := sw.SetOrFallback(context.Background(), 200); err != nil || got != 200 {
		t.Fatalf("SetOrFallback: got %d, %v, want 200", got, err)
	}
	if len(ctl.chosen) != 1 {
		t.Errorf("chosen: got %v", ctl.chosen)
	}
}

func TestSetOrFallback_FallbackUnavailable(t *testing.T) {
	ctl := &fakeControl{current: 50, unavailable: map[int]bool{250: true, Default: true}}
	sw := NewSwitcher(ctl, WithPollInterval(time.Millisecond), WithTimeout(time.Second))

	got, err := sw.SetOrFallback(context.Background(), 250)
	if err != nil {
		t.Fatalf("SetOrFallback: %v", err)
	}
	if got != 50 || ctl.current != 50 {
		t.Fatalf("effective: got %d, control shows %d, want 50", got, ctl.current)
	}
}

// brokenLabel offers no options and cannot be read once a change was tried.
type brokenLabel struct{ tried bool }

func (b *brokenLabel) Current(context.Context) (int, error) {
	if b.tried {
		return 0, errors.New("label detached")
	}
	return 75, nil
}
func (b *brokenLabel) Open(context.Context) error { return nil }
func (b *brokenLabel) Choose(context.Context, int) error {
	b.tried = true
	return ErrUnavailable
}

func TestSetOrFallback_ScaleUnknown(t *testing.T) {
	sw := NewSwitcher(&brokenLabel{}, WithPollInterval(time.Millisecond), WithTimeout(10*time.Millisecond))
	if _, err := sw.SetOrFallback(context.Background(), 250); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("SetOrFallback: got %v, want ErrUnavailable in chain", err)
	}
}
