package qovsrc

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"qov/qoverr"
)

func TestMemorySourceReadAndAvailability(t *testing.T) {
	src := NewMemorySource([]byte("hello world"))
	if src.TotalSize() != 11 {
		t.Fatalf("TotalSize = %d, want 11", src.TotalSize())
	}
	if !src.IsAvailable(0, 5) {
		t.Fatalf("expected first 5 bytes available")
	}
	if src.IsAvailable(6, 100) {
		t.Fatalf("expected out-of-range read to be unavailable")
	}
	got, err := src.Read(6, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("Read = %q, want %q", got, "world")
	}
	if _, err := src.Read(6, 100); !errors.Is(err, qoverr.ErrNotYetAvailable) {
		t.Fatalf("expected ErrNotYetAvailable, got %v", err)
	}
}

func TestMmapSourceRoundTrip(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "qovsrc-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	want := bytes.Repeat([]byte{0xAB}, 1024)
	if _, err := f.Write(want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := f.Name()
	f.Close()

	src, err := OpenMmapSource(path)
	if err != nil {
		t.Fatalf("OpenMmapSource: %v", err)
	}
	defer src.Close()

	if src.TotalSize() != int64(len(want)) {
		t.Fatalf("TotalSize = %d, want %d", src.TotalSize(), len(want))
	}
	got, err := src.Read(100, 50)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, want[100:150]) {
		t.Fatalf("Read mismatch")
	}
	if src.IsAvailable(1000, 100) {
		t.Fatalf("expected out-of-range read to be unavailable")
	}
}

func TestMmapSourceEmptyFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "qovsrc-empty-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	path := f.Name()
	f.Close()

	src, err := OpenMmapSource(path)
	if err != nil {
		t.Fatalf("OpenMmapSource: %v", err)
	}
	defer src.Close()
	if src.TotalSize() != 0 {
		t.Fatalf("TotalSize = %d, want 0", src.TotalSize())
	}
}

func TestHTTPSourceStreamsBody(t *testing.T) {
	payload := bytes.Repeat([]byte{1, 2, 3, 4}, 4096)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer ts.Close()

	src, err := OpenHTTPSource(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("OpenHTTPSource: %v", err)
	}
	defer src.Close()

	got, err := src.Read(0, len(payload))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("downloaded payload mismatch")
	}
}

func TestHTTPSourceReadBeyondEOFReturnsNotYetAvailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("short"))
	}))
	defer ts.Close()

	src, err := OpenHTTPSource(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("OpenHTTPSource: %v", err)
	}
	defer src.Close()

	if _, err := src.Read(0, 1000); !errors.Is(err, qoverr.ErrNotYetAvailable) {
		t.Fatalf("expected ErrNotYetAvailable, got %v", err)
	}
}
