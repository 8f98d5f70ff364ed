package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T, maxBytes int64) *Storage {
	t.Helper()
	s, err := New(context.Background(), Config{
		Endpoint:       "http://localhost:9000",
		PublicEndpoint: "https://media.example.com",
		Bucket:         "testimonies",
		AccessKey:      "test",
		SecretKey:      "test",
		MaxUploadBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("expected no error creating storage client, got: %v", err)
	}
	return s
}

func TestKeys(t *testing.T) {
	if got := SourceKey("dQw4w9WgXcQ"); got != "sources/dQw4w9WgXcQ.mp4" {
		t.Errorf("SourceKey = %q", got)
	}
	if got := ClipKey("clip-1"); got != "clips/clip-1.mp4" {
		t.Errorf("ClipKey = %q", got)
	}
}

func TestDownloadURLUsesPublicEndpoint(t *testing.T) {
	s := newTestStorage(t, 0)

	url, err := s.DownloadURL(context.Background(), ClipKey("abc"), 15*time.Minute)
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if !strings.HasPrefix(url, "https://media.example.com/testimonies/clips/abc.mp4") {
		t.Errorf("unexpected presigned url %q", url)
	}
	if !strings.Contains(url, "X-Amz-Expires=900") {
		t.Errorf("expected 900s expiry in %q", url)
	}
}

func TestUploadURLRejectsOversizedObjects(t *testing.T) {
	s := newTestStorage(t, 1024)

	_, err := s.UploadURL(context.Background(), SourceKey("abc"), 4096, time.Hour)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestUploadURLWithinLimit(t *testing.T) {
	s := newTestStorage(t, 1024)

	url, err := s.UploadURL(context.Background(), SourceKey("abc"), 512, time.Hour)
	if err != nil {
		t.Fatalf("UploadURL: %v", err)
	}
	if !strings.Contains(url, "sources/abc.mp4") {
		t.Errorf("expected source key in %q", url)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.mp4")

	if err := writeFile(path, strings.NewReader("frames")); err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "frames" {
		t.Errorf("expected file contents %q, got %q", "frames", data)
	}
}

func TestWriteFileMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.mp4")
	if err := writeFile(path, strings.NewReader("x")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestObjectSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if strings.HasSuffix(r.URL.Path, "/sources/present.mp4") {
			w.Header().Set("Content-Length", "2048")
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	s, err := New(context.Background(), Config{
		Endpoint:  server.URL,
		Bucket:    "testimonies",
		AccessKey: "test",
		SecretKey: "test",
	})
	if err != nil {
		t.Fatal(err)
	}

	size, err := s.ObjectSize(context.Background(), SourceKey("present"))
	if err != nil {
		t.Fatalf("ObjectSize: %v", err)
	}
	if size != 2048 {
		t.Errorf("size = %d, want 2048", size)
	}

	_, err = s.ObjectSize(context.Background(), SourceKey("missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
