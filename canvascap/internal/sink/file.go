package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/horosafe"
)

// File writes <dir>/<id>.png and a <dir>/<id>.json metadata sidecar.
type File struct {
	dir string
}

// NewFile creates a File sink rooted at dir. The directory is created on
// first use.
func NewFile(dir string) *File {
	if dir == "" {
		dir = "."
	}
	return &File{dir: dir}
}

// Path returns where the image for id is written.
func (f *File) Path(id string) string {
	return filepath.Join(f.dir, id+"."+output.FormatPNG)
}

func (f *File) Present(_ context.Context, img output.Image) error {
	imgPath, err := horosafe.SafePath(f.dir, img.ID+"."+output.FormatPNG)
	if err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	metaPath, err := horosafe.SafePath(f.dir, img.ID+".json")
	if err != nil {
		return fmt.Errorf("file sink: %w", err)
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("file sink: mkdir: %w", err)
	}
	if err := writeAtomic(imgPath, img.Data); err != nil {
		return fmt.Errorf("file sink: write image: %w", err)
	}
	meta, err := output.MarshalMeta(img)
	if err != nil {
		return fmt.Errorf("file sink: marshal meta: %w", err)
	}
	if err := writeAtomic(metaPath, meta); err != nil {
		return fmt.Errorf("file sink: write meta: %w", err)
	}
	return nil
}

func (f *File) Close() error { return nil }

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
