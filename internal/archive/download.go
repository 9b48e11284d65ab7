// Package archive downloads package archives and unpacks them into place.
package archive

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

// chunkSize is the read/write unit while streaming a download.
const chunkSize = 8192

// ProgressFunc is called after each chunk is written to disk. total is -1
// when the server did not declare a content length.
type ProgressFunc func(written, total int64)

// Downloader streams remote archives to local files.
type Downloader struct {
	client *http.Client
}

// NewDownloader creates a Downloader whose requests are bounded by timeout.
// Zero means no timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Downloader{client: &http.Client{Transport: tr, Timeout: timeout}}
}

// Download writes the body at url to dest, overwriting any existing file,
// and returns the number of bytes written. On failure the partial dest
// file is removed.
func (d *Downloader) Download(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("invalid download url %q: %w", url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("status %d from %s", resp.StatusCode, url)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	written, err := copyWithProgress(f, resp.Body, resp.ContentLength, progress)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close %s: %w", dest, closeErr)
	}
	if err != nil {
		os.Remove(dest)
		return written, err
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		os.Remove(dest)
		return written, fmt.Errorf("short download from %s: got %d of %d bytes", url, written, resp.ContentLength)
	}

	return written, nil
}

// copyWithProgress copies src to dst chunk by chunk, reporting after each write.
func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write: %w", err)
			}
			written += int64(n)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read: %w", readErr)
		}
	}
}
