package canvascap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tilecap/horosafe"
)

func TestCapturer_NoArchive(t *testing.T) {
	c, err := New(DefaultConfig(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	if _, err := c.List(context.Background(), 10); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("List: got %v, want ErrNoArchive", err)
	}
	if _, err := c.Get(context.Background(), "cap_x"); !errors.Is(err, ErrNoArchive) {
		t.Fatalf("Get: got %v, want ErrNoArchive", err)
	}
}

func TestCapturer_ArchiveWiredAsSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "archive", "captures.db")

	c, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	if c.sinkR.Len() != 1 {
		t.Fatalf("sinks: got %d, want the archive", c.sinkR.Len())
	}
	list, err := c.List(context.Background(), 10)
	if err != nil || len(list) != 0 {
		t.Fatalf("List: got %v, %v", list, err)
	}
}

func TestCapturer_NoURL(t *testing.T) {
	c, err := New(DefaultConfig(), quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	if _, err := c.Capture(context.Background(), Request{}); err == nil {
		t.Fatal("expected error without url")
	}
}

func TestCapturer_UnsafeURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Capture.BlockPrivate = true
	c, err := New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Stop()

	cases := map[string]error{
		"file:///etc/passwd":              horosafe.ErrUnsafeScheme,
		"http://127.0.0.1:8080/board":     horosafe.ErrPrivateAddress,
		"http://169.254.169.254/metadata": horosafe.ErrPrivateAddress,
	}
	for u, want := range cases {
		if _, err := c.Capture(context.Background(), Request{URL: u}); !errors.Is(err, want) {
			t.Errorf("Capture(%q): got %v, want %v", u, err, want)
		}
	}
}

func TestSurfaceConfig_Mapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Selectors.Container = "#board"
	cfg.Selectors.ZoomOption = "li[data-zoom='%d']"
	cfg.Engine.CameraJS = "window.app.camera"
	cfg.Capture.Format = "webp"

	sc := surfaceConfig(cfg, quietLogger())
	if sc.Selectors.Container != "#board" || sc.Selectors.ZoomOption != "li[data-zoom='%d']" {
		t.Fatalf("selectors: %+v", sc.Selectors)
	}
	if sc.Selectors.Canvas != "canvas" {
		t.Fatalf("canvas default: got %q", sc.Selectors.Canvas)
	}
	if sc.Engine.CameraJS != "window.app.camera" || sc.Engine.SizeJS == "" {
		t.Fatalf("engine: %+v", sc.Engine)
	}
	if sc.Format != "webp" {
		t.Fatalf("format: got %q", sc.Format)
	}
}

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()
	sinks, err := OpenSinks([]SinkConfig{
		{Type: "stdout"},
		{Type: "file", Dir: dir},
		{Type: "webhook", URL: "http://127.0.0.1:1/hook"},
		{Type: "sqlite", Path: filepath.Join(dir, "a.db")},
	}, quietLogger())
	if err != nil {
		t.Fatalf("OpenSinks: %v", err)
	}
	if len(sinks) != 4 {
		t.Fatalf("sinks: got %d, want 4", len(sinks))
	}
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestOpenSinks_Invalid(t *testing.T) {
	cases := [][]SinkConfig{
		{{Type: "file"}},
		{{Type: "webhook"}},
		{{Type: "webhook", URL: "ftp://example.test/drop"}},
		{{Type: "stdout"}, {Type: "carrier-pigeon"}},
	}
	for _, c := range cases {
		if _, err := OpenSinks(c, quietLogger()); err == nil {
			t.Errorf("OpenSinks(%+v): expected error", c)
		}
	}
}
