package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte("capture:\n  url: https://example.com/board\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Capture.Scale != 100 {
		t.Errorf("Scale: got %d, want 100", cfg.Capture.Scale)
	}
	if cfg.Capture.MaxRetries != 5 {
		t.Errorf("MaxRetries: got %d, want 5", cfg.Capture.MaxRetries)
	}
	if cfg.Capture.UITimeout != 3*time.Second {
		t.Errorf("UITimeout: got %v, want 3s", cfg.Capture.UITimeout)
	}
	if cfg.Capture.Mode != "auto" {
		t.Errorf("Mode: got %q, want auto", cfg.Capture.Mode)
	}
	if cfg.Browser.Stealth != "headless" {
		t.Errorf("Stealth: got %q, want headless", cfg.Browser.Stealth)
	}
	if cfg.Selectors.Canvas != "canvas" {
		t.Errorf("Canvas selector: got %q", cfg.Selectors.Canvas)
	}
}

func TestParse_Full(t *testing.T) {
	data := []byte(`
browser:
  stealth: headful
  window_width: 1920
capture:
  url: https://example.com/board
  scale: 120
  levels: [25, 100, 400]
  max_retries: 8
  ui_timeout: 1500ms
  mode: camera
selectors:
  zoom_label: "#zoom span"
  zoom_option: "#zoom li[data-value='%d']"
engine:
  camera_js: window.app.camera
sinks:
  - type: file
    dir: /tmp/captures
  - type: webhook
    url: http://localhost:9000/hook
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Browser.WindowWidth != 1920 || cfg.Browser.WindowHeight != 800 {
		t.Errorf("window: got %dx%d", cfg.Browser.WindowWidth, cfg.Browser.WindowHeight)
	}
	if cfg.Capture.UITimeout != 1500*time.Millisecond {
		t.Errorf("UITimeout: got %v", cfg.Capture.UITimeout)
	}
	if len(cfg.Capture.Levels) != 3 || cfg.Capture.Levels[2] != 400 {
		t.Errorf("Levels: got %v", cfg.Capture.Levels)
	}
	if cfg.Engine.CameraJS != "window.app.camera" {
		t.Errorf("CameraJS: got %q", cfg.Engine.CameraJS)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].URL != "http://localhost:9000/hook" {
		t.Errorf("Sinks: got %+v", cfg.Sinks)
	}
}

func TestParse_Serve(t *testing.T) {
	cfg, err := Parse([]byte("serve:\n  addr: \":8080\"\n  rate_limit: 6\ncapture:\n  block_private: true\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Serve.Addr != ":8080" || cfg.Serve.RateLimit != 6 {
		t.Errorf("serve: %+v", cfg.Serve)
	}
	if cfg.Serve.MaxBody != 64<<10 || cfg.Serve.RateWindow != time.Minute {
		t.Errorf("serve defaults: %+v", cfg.Serve)
	}
	if !cfg.Capture.BlockPrivate {
		t.Error("BlockPrivate: got false")
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, in := range []string{
		"capture:\n  mode: zoom\n",
		"capture:\n  format: gif\n",
		"browser:\n  stealth: invisible\n",
		"sinks:\n  - type: nats\n",
		"capture: [",
	} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Errorf("Parse(%q): want error", in)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "canvascap.yaml")
	if err := os.WriteFile(path, []byte("capture:\n  scale: 250\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Capture.Scale != 250 {
		t.Errorf("Scale: got %d, want 250", cfg.Capture.Scale)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFile(missing): want error")
	}
}
