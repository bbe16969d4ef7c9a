package horosafe

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/board", false},
		{"http://localhost:3000/canvas", false},
		{"ftp://evil.com/data", true},
		{"javascript:alert(1)", true},
		{"file:///etc/passwd", true},
		{"https://", true},
		{"://broken", true},
	}
	for _, tt := range tests {
		_, err := CheckURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckURL(%q) error=%v, wantErr=%v", tt.url, err, tt.wantErr)
		}
	}
}

func TestValidateURL_Private(t *testing.T) {
	blocked := []string{
		"http://127.0.0.1/admin",
		"http://10.0.0.1/internal",
		"http://192.168.1.1/api",
		"http://172.16.0.1/secret",
		"http://[::1]/api",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0:8080/",
		"http://localhost:3000/board",
	}
	for _, u := range blocked {
		if err := ValidateURL(u, false); !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("ValidateURL(%q, false): got %v, want ErrPrivateAddress", u, err)
		}
		if err := ValidateURL(u, true); err != nil {
			t.Errorf("ValidateURL(%q, true): unexpected %v", u, err)
		}
	}

	if err := ValidateURL("http://93.184.216.34/", false); err != nil {
		t.Fatalf("public literal: %v", err)
	}
	if err := ValidateURL("gopher://example.com", true); !errors.Is(err, ErrUnsafeScheme) {
		t.Fatalf("scheme: got %v", err)
	}
}

func TestSafePath(t *testing.T) {
	base := filepath.Join("data", "shots")
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"cap_0190.png", false},
		{"cap_0190.json", false},
		{"../etc/passwd", true},
		{"a/b.png", true},
		{`a\b.png`, true},
		{"..", true},
		{"", true},
	}
	for _, tt := range tests {
		got, err := SafePath(base, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("SafePath(%q) error=%v, wantErr=%v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != filepath.Join(base, tt.name) {
			t.Errorf("SafePath(%q): got %q", tt.name, got)
		}
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet(strings.NewReader("  bad gateway\n"), MaxErrorBody); got != "bad gateway" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("x", 100)
	if got := Snippet(strings.NewReader(long), 10); got != strings.Repeat("x", 10) {
		t.Fatalf("truncation: got %q", got)
	}
}
