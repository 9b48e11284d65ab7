package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

// writeZip creates a zip at path; names ending in "/" become directories.
func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if !strings.HasSuffix(name, "/") {
			if _, err := w.Write([]byte(content)); err != nil {
				t.Fatalf("zip write %s: %v", name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{Name: name, Mode: 0755, Size: int64(len(content)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("tar write %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}
	return string(data)
}

func TestExtractZip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "foo.zip")
	writeZip(t, archivePath, map[string]string{
		"bin/":         "",
		"bin/foo":      "#!/bin/sh\necho foo\n",
		"README.md":    "# foo\n",
		"lib/deep/x.c": "int x;\n",
	})

	dest := filepath.Join(dir, "foo")
	if err := (Extractor{}).Extract(archivePath, dest); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if got := readFile(t, filepath.Join(dest, "bin", "foo")); got != "#!/bin/sh\necho foo\n" {
		t.Errorf("bin/foo = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "README.md")); got != "# foo\n" {
		t.Errorf("README.md = %q", got)
	}
	if got := readFile(t, filepath.Join(dest, "lib", "deep", "x.c")); got != "int x;\n" {
		t.Errorf("lib/deep/x.c = %q", got)
	}
}

func TestExtractReplacesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "foo")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	stale := filepath.Join(dest, "stale.txt")
	if err := os.WriteFile(stale, []byte("old"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	archivePath := filepath.Join(dir, "foo.zip")
	writeZip(t, archivePath, map[string]string{"new.txt": "new"})

	if err := (Extractor{}).Extract(archivePath, dest); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale file should be removed by destructive replace")
	}
	if got := readFile(t, filepath.Join(dest, "new.txt")); got != "new" {
		t.Errorf("new.txt = %q", got)
	}
}

func TestExtractTarGz(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "foo.zip") // staging name is always .zip
	writeTarGz(t, archivePath, map[string]string{"bin/foo": "binary"})

	dest := filepath.Join(dir, "foo")
	if err := (Extractor{}).Extract(archivePath, dest); err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dest, "bin", "foo")); got != "binary" {
		t.Errorf("bin/foo = %q", got)
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "foo.zip")
	if err := os.WriteFile(archivePath, []byte("<html>not an archive</html>"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	err := (Extractor{}).Extract(archivePath, filepath.Join(dir, "foo"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractTruncatedZip(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "foo.zip")
	writeZip(t, archivePath, map[string]string{"a.txt": strings.Repeat("a", 4096)})

	data, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if err := os.WriteFile(archivePath, data[:len(data)/2], 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := (Extractor{}).Extract(archivePath, filepath.Join(dir, "foo")); err == nil {
		t.Error("Extract() should fail on a truncated zip")
	}
}

func TestExtractMissingArchive(t *testing.T) {
	dir := t.TempDir()
	if err := (Extractor{}).Extract(filepath.Join(dir, "nope.zip"), filepath.Join(dir, "foo")); err == nil {
		t.Error("Extract() should fail when the archive does not exist")
	}
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.zip")
	writeZip(t, archivePath, map[string]string{"../escaped.txt": "gotcha"})

	dest := filepath.Join(dir, "pkg", "evil")
	if err := (Extractor{}).Extract(archivePath, dest); err == nil {
		t.Fatal("Extract() should reject entries that escape the destination")
	}
	if _, err := os.Stat(filepath.Join(dir, "pkg", "escaped.txt")); !os.IsNotExist(err) {
		t.Error("escaping entry must not be written")
	}
}

func TestSafeJoin(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{"plain", "a.txt", false},
		{"nested", "a/b/c.txt", false},
		{"dot segments inside", "a/../b.txt", false},
		{"parent", "../a.txt", true},
		{"deep parent", "a/../../b.txt", true},
		{"absolute", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := safeJoin("/dest", tt.entry)
			if (err != nil) != tt.wantErr {
				t.Errorf("safeJoin(%q) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsafePath) {
				t.Errorf("safeJoin(%q) error = %v, want ErrUnsafePath", tt.entry, err)
			}
		})
	}
}

func TestDownloadWithContentLength(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 3*chunkSize+17)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "foo.zip")
	var calls int
	var lastWritten, lastTotal int64
	n, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, func(written, total int64) {
		calls++
		if written < lastWritten {
			t.Errorf("progress went backwards: %d after %d", written, lastWritten)
		}
		lastWritten, lastTotal = written, total
	})
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}

	if n != int64(len(payload)) {
		t.Errorf("Download() = %d bytes, want %d", n, len(payload))
	}
	if calls == 0 {
		t.Error("progress should be reported when content length is known")
	}
	if lastWritten != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Errorf("final progress = %d/%d, want %d/%d", lastWritten, lastTotal, len(payload), len(payload))
	}
	if got := readFile(t, dest); got != string(payload) {
		t.Error("downloaded content mismatch")
	}
}

func TestDownloadUnknownLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Flushing before writing forces chunked transfer encoding.
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		w.Write([]byte("chunk-one"))
		w.(http.Flusher).Flush()
		w.Write([]byte("chunk-two"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "foo.zip")
	var totals []int64
	n, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, func(written, total int64) {
		totals = append(totals, total)
	})
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	if n != int64(len("chunk-onechunk-two")) {
		t.Errorf("Download() = %d bytes", n)
	}
	for _, total := range totals {
		if total != -1 {
			t.Errorf("total = %d, want -1 for unknown length", total)
		}
	}
}

func TestDownloadOverwritesExisting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("new"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "foo.zip")
	if err := os.WriteFile(dest, []byte("old content that is longer"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, nil); err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	if got := readFile(t, dest); got != "new" {
		t.Errorf("dest = %q, want %q", got, "new")
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "foo.zip")
	if _, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, nil); err == nil {
		t.Fatal("Download() should fail on 404")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no staging file should be created on HTTP error")
	}
}

func TestDownloadTruncatedBodyRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("only a little"))
		// Returning early closes the connection before 1000 bytes arrive.
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "foo.zip")
	if _, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, nil); err == nil {
		t.Fatal("Download() should fail on a truncated body")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial staging file should be removed")
	}
}

func TestDownloadBadDestination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing-dir", "foo.zip")
	if _, err := NewDownloader(5*time.Second).Download(context.Background(), srv.URL, dest, nil); err == nil {
		t.Error("Download() should fail when the destination cannot be created")
	}
}
