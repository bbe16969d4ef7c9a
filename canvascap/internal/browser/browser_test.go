package browser

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestShouldBlock(t *testing.T) {
	set := map[string]bool{"images": true, "fonts": true}

	cases := []struct {
		resType string
		want    bool
	}{
		{"Image", true},
		{"Font", true},
		{"Stylesheet", false},
		{"Media", false},
		{"Script", false},
		{"XHR", false},
	}
	for _, c := range cases {
		if got := shouldBlock(set, c.resType); got != c.want {
			t.Errorf("shouldBlock(%q): got %v, want %v", c.resType, got, c.want)
		}
	}
}

func TestShouldBlock_NeverScripts(t *testing.T) {
	set := map[string]bool{"script": true, "document": true}
	if shouldBlock(set, "Script") {
		t.Fatal("scripts must never be blocked")
	}
	if shouldBlock(set, "Document") {
		t.Fatal("documents must never be blocked")
	}
}

func TestParseStealth(t *testing.T) {
	if ParseStealth("headful") != LevelHeadful {
		t.Fatal("headful")
	}
	if ParseStealth("headless") != LevelHeadless {
		t.Fatal("headless")
	}
	if ParseStealth("") != LevelHeadless {
		t.Fatal("empty should mean headless")
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.defaults()
	if c.Stealth != LevelHeadless || c.XvfbDisplay != ":99" {
		t.Fatalf("stealth/display: got %v %q", c.Stealth, c.XvfbDisplay)
	}
	if c.WindowWidth != 1280 || c.WindowHeight != 800 {
		t.Fatalf("window: got %dx%d, want 1280x800", c.WindowWidth, c.WindowHeight)
	}
	if c.NavigateTimeout == 0 || c.Logger == nil {
		t.Fatal("timeout and logger must be set")
	}
}

func TestXvfbScreen(t *testing.T) {
	if got := xvfbScreen(1280, 800); got != "1920x1080x24" {
		t.Fatalf("small window: got %q", got)
	}
	if got := xvfbScreen(2560, 1440); got != "2560x1640x24" {
		t.Fatalf("large window: got %q", got)
	}
}

func TestExprFunc(t *testing.T) {
	cases := []struct{ in, want string }{
		{"window.app.size()", "() => (window.app.size())"},
		{"window.app.render();", "() => (window.app.render())"},
		{"() => window.app.render()", "() => window.app.render()"},
		{"(a) => a", "(a) => a"},
		{"function () { return 1 }", "function () { return 1 }"},
		{"async () => 1", "async () => 1"},
		{"(() => ({width: 1, height: 2}))()", "() => ((() => ({width: 1, height: 2}))())"},
	}
	for _, c := range cases {
		if got := exprFunc(c.in); got != c.want {
			t.Errorf("exprFunc(%q): got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDecodeScreenshot_PNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := decodeScreenshot(buf.Bytes(), proto.PageCaptureScreenshotFormatPng)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 3 {
		t.Fatalf("bounds: got %v", img.Bounds())
	}
	if r, _, _, a := img.At(1, 1).RGBA(); r>>8 != 200 || a>>8 != 255 {
		t.Fatalf("pixel: got r=%d a=%d", r>>8, a>>8)
	}
}

func TestDecodeScreenshot_Garbage(t *testing.T) {
	if _, err := decodeScreenshot([]byte("nope"), proto.PageCaptureScreenshotFormatWebp); err == nil {
		t.Fatal("expected error for invalid webp")
	}
}

func TestNewSurface_Defaults(t *testing.T) {
	s := NewSurface(nil, SurfaceConfig{})
	if s.format != proto.PageCaptureScreenshotFormatPng {
		t.Fatalf("format: got %q", s.format)
	}
	if !s.ScaleFixed() {
		t.Fatal("no zoom label should mean fixed scale")
	}
	s = NewSurface(nil, SurfaceConfig{Format: "webp", Selectors: Selectors{ZoomLabel: "#zoom"}})
	if s.format != proto.PageCaptureScreenshotFormatWebp || s.ScaleFixed() {
		t.Fatal("webp surface with zoom label")
	}
}

func TestLaunchFlags(t *testing.T) {
	cfg := Config{Stealth: LevelHeadless}
	cfg.defaults()

	got := map[string][]string{}
	for _, f := range launchFlags(cfg) {
		got[string(f.name)] = f.values
	}
	if v := got["window-size"]; len(v) != 1 || v[0] != "1280,800" {
		t.Fatalf("window-size: got %v", v)
	}
	if v := got["force-device-scale-factor"]; len(v) != 1 || v[0] != "1" {
		t.Fatalf("force-device-scale-factor: got %v", v)
	}
	if _, ok := got["disable-renderer-backgrounding"]; !ok {
		t.Fatal("renderer backgrounding must be disabled")
	}
	if _, ok := got["use-angle"]; !ok {
		t.Fatal("headless needs software GL")
	}

	cfg.Stealth = LevelHeadful
	for _, f := range launchFlags(cfg) {
		if f.name == "use-angle" {
			t.Fatal("headful must use the display's GL")
		}
	}
}
