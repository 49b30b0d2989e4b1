package models

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultWhisperModel is the model fetched when no name is given.
const DefaultWhisperModel = "base.en"

// whisperBaseURL is a format string taking the model name. Tests point it at
// an httptest server.
var whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-%s.bin"

// WhisperFileName returns the ggml file name for a model name such as "base.en".
func WhisperFileName(name string) string {
	return "ggml-" + name + ".bin"
}

// DownloadWhisper downloads the named whisper ggml model into destDir and
// returns its path. An existing non-empty file is reused.
// It shows download progress to out.
func DownloadWhisper(name, destDir string, out io.Writer) (string, error) {
	if name == "" {
		name = DefaultWhisperModel
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid model name %q", name)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("creating models dir: %w", err)
	}

	fileName := WhisperFileName(name)
	destPath := filepath.Join(destDir, fileName)

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		fmt.Fprintf(out, "  Whisper model already exists: %s (%.0f MB)\n", destPath, float64(info.Size())/(1024*1024))
		return destPath, nil
	}

	url := fmt.Sprintf(whisperBaseURL, name)
	fmt.Fprintf(out, "  Downloading whisper model from HuggingFace...\n")
	fmt.Fprintf(out, "  URL: %s\n", url)
	fmt.Fprintf(out, "  Destination: %s\n", destPath)

	resp, err := http.Get(url) //nolint:gosec // URL built from a fixed host
	if err != nil {
		return "", fmt.Errorf("downloading whisper model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	// Write to temp file first, then rename (atomic)
	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}

	pw := &progressWriter{
		writer: f,
		out:    out,
		total:  resp.ContentLength,
		label:  fileName,
	}

	written, err := io.Copy(pw, resp.Body)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("writing model file: %w", err)
	}
	if written == 0 {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("download failed: empty response")
	}

	if err := commitDownload(f, destPath); err != nil {
		return "", err
	}
	fmt.Fprintf(out, "\n  Downloaded %.1f MB\n", float64(written)/(1024*1024))

	return destPath, nil
}

// commitDownload closes the temp file f and renames it to destPath. On any
// failure the temp file is removed so a truncated model is never installed.
func commitDownload(f *os.File, destPath string) error {
	tmpPath := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing model file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}
	return nil
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
