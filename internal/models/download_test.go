package models

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// serveModels points whisperBaseURL at a test server for the duration of t.
func serveModels(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	old := whisperBaseURL
	whisperBaseURL = srv.URL + "/ggml-%s.bin"
	t.Cleanup(func() { whisperBaseURL = old })
}

func TestDownloadWhisper(t *testing.T) {
	payload := bytes.Repeat([]byte("ggml"), 1024)
	var requested string
	serveModels(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_, _ = w.Write(payload)
	})

	dir := filepath.Join(t.TempDir(), "models")
	path, err := DownloadWhisper("tiny.en", dir, io.Discard)
	if err != nil {
		t.Fatalf("DownloadWhisper() error = %v", err)
	}

	if requested != "/ggml-tiny.en.bin" {
		t.Errorf("requested path = %q, want %q", requested, "/ggml-tiny.en.bin")
	}
	if want := filepath.Join(dir, "ggml-tiny.en.bin"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading model: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("model content length = %d, want %d", len(got), len(payload))
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file should be renamed away")
	}
}

func TestDownloadWhisperDefaultName(t *testing.T) {
	serveModels(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("model"))
	})

	path, err := DownloadWhisper("", t.TempDir(), io.Discard)
	if err != nil {
		t.Fatalf("DownloadWhisper() error = %v", err)
	}
	if filepath.Base(path) != "ggml-base.en.bin" {
		t.Errorf("path = %q, want ggml-base.en.bin", path)
	}
}

func TestDownloadWhisperSkipsExisting(t *testing.T) {
	serveModels(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("existing model should not be downloaded again")
	})

	dir := t.TempDir()
	existing := filepath.Join(dir, "ggml-base.en.bin")
	if err := os.WriteFile(existing, []byte("cached"), 0644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	path, err := DownloadWhisper("base.en", dir, &out)
	if err != nil {
		t.Fatalf("DownloadWhisper() error = %v", err)
	}
	if path != existing {
		t.Errorf("path = %q, want %q", path, existing)
	}
	if !strings.Contains(out.String(), "already exists") {
		t.Errorf("output = %q, want 'already exists' notice", out.String())
	}
}

func TestDownloadWhisperHTTPError(t *testing.T) {
	serveModels(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	dir := t.TempDir()
	if _, err := DownloadWhisper("nope", dir, io.Discard); err == nil {
		t.Fatal("DownloadWhisper() should fail on HTTP 404")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("failed download left %d files behind", len(entries))
	}
}

func TestDownloadWhisperRejectsPathName(t *testing.T) {
	if _, err := DownloadWhisper("../evil", t.TempDir(), io.Discard); err == nil {
		t.Error("DownloadWhisper() should reject names containing a path separator")
	}
}

func TestCommitDownloadCloseFailure(t *testing.T) {
	dir := t.TempDir()
	tmpPath := filepath.Join(dir, "ggml-base.en.bin.tmp")
	destPath := filepath.Join(dir, "ggml-base.en.bin")

	f, err := os.Create(tmpPath)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("partial")); err != nil {
		t.Fatal(err)
	}
	// Closing twice makes the commit's Close fail.
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	if err := commitDownload(f, destPath); err == nil {
		t.Fatal("commitDownload() should fail when the file cannot be closed")
	}
	if _, err := os.Stat(destPath); !os.IsNotExist(err) {
		t.Error("model file should not be installed after a failed close")
	}
	if _, err := os.Stat(tmpPath); !os.IsNotExist(err) {
		t.Error("temp file should be removed after a failed close")
	}
}

func TestCommitDownload(t *testing.T) {
	dir := t.TempDir()
	destPath := filepath.Join(dir, "ggml-base.en.bin")

	f, err := os.Create(destPath + ".tmp")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte("model")); err != nil {
		t.Fatal(err)
	}

	if err := commitDownload(f, destPath); err != nil {
		t.Fatalf("commitDownload() error = %v", err)
	}
	got, err := os.ReadFile(destPath)
	if err != nil || string(got) != "model" {
		t.Errorf("installed model = %q, %v; want %q", got, err, "model")
	}
}

func TestProgressWriter(t *testing.T) {
	tmpDir := t.TempDir()
	f, err := os.Create(filepath.Join(tmpDir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	var out bytes.Buffer
	pw := &progressWriter{
		writer: f,
		out:    &out,
		total:  100,
		label:  "test",
	}

	data := make([]byte, 50)
	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 50 {
		t.Errorf("Write() n = %d, want 50", n)
	}
	if pw.written != 50 {
		t.Errorf("written = %d, want 50", pw.written)
	}
	if !strings.Contains(out.String(), "(50%)") {
		t.Errorf("progress = %q, want 50%%", out.String())
	}
}
