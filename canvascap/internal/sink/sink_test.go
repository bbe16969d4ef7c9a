package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/tilecap/canvascap/internal/store"
	"github.com/hazyhaar/tilecap/canvascap/output"
	"github.com/hazyhaar/tilecap/dbopen"
)

func sample() output.Image {
	return output.Image{
		ID:        "cap_test",
		SourceURL: "https://example.com/board",
		Scale:     100,
		Width:     2,
		Height:    2,
		Tiles:     1,
		Format:    output.FormatPNG,
		Data:      []byte("png-bytes"),
	}
}

func TestStdout_Envelope(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf, false)
	if err := s.Present(context.Background(), sample()); err != nil {
		t.Fatalf("present: %v", err)
	}

	var env struct {
		Type string       `json:"type"`
		Data output.Image `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != "capture" {
		t.Errorf("Type: got %q, want capture", env.Type)
	}
	if string(env.Data.Data) != "png-bytes" {
		t.Errorf("Data: got %q", env.Data.Data)
	}
}

func TestStdout_MetaOnly(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdout(&buf, true)
	if err := s.Present(context.Background(), sample()); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"type":"capture_meta"`)) {
		t.Errorf("meta envelope: got %s", buf.String())
	}
	if bytes.Contains(buf.Bytes(), []byte("cG5nLWJ5dGVz")) {
		t.Error("meta-only output should not carry the payload")
	}
}

func TestFile_WritesImageAndMeta(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	f := NewFile(dir)
	if err := f.Present(context.Background(), sample()); err != nil {
		t.Fatalf("present: %v", err)
	}

	data, err := os.ReadFile(f.Path("cap_test"))
	if err != nil {
		t.Fatalf("read image: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("image: got %q", data)
	}

	meta, err := os.ReadFile(filepath.Join(dir, "cap_test.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var m output.Meta
	if err := json.Unmarshal(meta, &m); err != nil {
		t.Fatal(err)
	}
	if m.Bytes != len("png-bytes") {
		t.Errorf("meta bytes: got %d", m.Bytes)
	}
}

func TestWebhook_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	var gotID, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		gotID = r.Header.Get("X-Capture-Id")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookBackoff(time.Millisecond))
	if err := wh.Present(context.Background(), sample()); err != nil {
		t.Fatalf("present: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
	if gotID != "cap_test" || gotType != "image/png" || string(gotBody) != "png-bytes" {
		t.Errorf("request: id=%q type=%q body=%q", gotID, gotType, gotBody)
	}
}

func TestWebhook_Exhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, WithWebhookRetries(1), WithWebhookBackoff(time.Millisecond))
	if err := wh.Present(context.Background(), sample()); err == nil {
		t.Fatal("present: want error")
	}
}

func TestRouter_FanOutFirstError(t *testing.T) {
	first := errors.New("first")
	var delivered []string
	ok := NewCallback(func(_ context.Context, img output.Image) error {
		delivered = append(delivered, "ok")
		return nil
	})
	bad := NewCallback(func(context.Context, output.Image) error { return first })
	bad2 := NewCallback(func(context.Context, output.Image) error { return errors.New("second") })

	r := NewRouter(nil, bad, ok, bad2)
	err := r.Present(context.Background(), sample())
	if !errors.Is(err, first) {
		t.Fatalf("present: got %v, want first", err)
	}
	if len(delivered) != 1 {
		t.Errorf("healthy sink should still receive the capture")
	}
	if r.Len() != 3 {
		t.Errorf("Len: got %d", r.Len())
	}
}

func TestStore_Present(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema))
	st := &store.Store{DB: db}
	s := NewStore(st)
	if err := s.Present(context.Background(), sample()); err != nil {
		t.Fatalf("present: %v", err)
	}
	got, err := st.Get(context.Background(), "cap_test")
	if err != nil || got == nil {
		t.Fatalf("get: %v %v", got, err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Ping(); err != nil {
		t.Errorf("borrowed store should stay open: %v", err)
	}
}
