package idgen

import (
	"errors"
	"strings"
	"testing"
)

func TestUUIDv7_Format(t *testing.T) {
	id := UUIDv7()()
	if len(id) != 36 || len(strings.Split(id, "-")) != 5 {
		t.Fatalf("UUIDv7: bad format %q", id)
	}
}

func TestUUIDv7_Sortable(t *testing.T) {
	gen := UUIDv7()
	prev := gen()
	for i := 0; i < 100; i++ {
		id := gen()
		if id <= prev {
			t.Fatalf("UUIDv7: %q not after %q", id, prev)
		}
		prev = id
	}
}

func TestPrefixed(t *testing.T) {
	id := Prefixed("x_", func() string { return "1" })()
	if id != "x_1" {
		t.Fatalf("Prefixed: got %q, want x_1", id)
	}
}

func TestNew_IsCaptureID(t *testing.T) {
	id := New()
	if !strings.HasPrefix(id, CapturePrefix) {
		t.Fatalf("New: missing prefix in %q", id)
	}
	got, err := ParseCapture(id)
	if err != nil {
		t.Fatalf("ParseCapture(%q): %v", id, err)
	}
	if got != id {
		t.Fatalf("ParseCapture: got %q, want %q", got, id)
	}
}

func TestParseCapture_Invalid(t *testing.T) {
	for _, id := range []string{"", "cap_", "cap_not-a-uuid", "0190f1e2-7b1c-7c4e-9a3b-1d2e3f405162"} {
		if _, err := ParseCapture(id); err == nil {
			t.Errorf("ParseCapture(%q): want error", id)
		}
	}
}

func TestParseCapture_ErrInvalid(t *testing.T) {
	_, err := ParseCapture("cap_nope")
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("ParseCapture: got %v, want ErrInvalid", err)
	}
}
