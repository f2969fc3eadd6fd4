// Package download saves resolved file URLs to a destination folder and
// filters spreadsheet members out of zip artifacts.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"statfetch/internal/metrics"
)

// copyBufSize is the chunk size for streaming bodies to disk.
const copyBufSize = 32 * 1024

// FileName derives the local filename for a download URL: final path
// segment, query string stripped, percent-escapes decoded.
//
// Errors:
//   - Empty result (URL with no path segment) or invalid percent escapes.
func FileName(rawURL string) (string, error) {
	s := rawURL
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	name, err := url.PathUnescape(s)
	if err != nil {
		return "", fmt.Errorf("decode filename from %q: %w", rawURL, err)
	}
	if name == "" {
		return "", fmt.Errorf("no filename in url %q", rawURL)
	}
	return name, nil
}

// Saver downloads resolved URLs. The zero value uses http.DefaultClient
// and discards status output.
type Saver struct {
	Client *http.Client

	// Status receives one line per download and failure.
	Status io.Writer

	// JobName tags the HTTP metrics for this run.
	JobName string
}

// NewSaver builds a Saver whose client has no overall timeout: spreadsheet
// archives can be tens of megabytes on slow government mirrors, so only the
// dial/TLS phases should be bounded.
func NewSaver(status io.Writer, jobName string) *Saver {
	return &Saver{
		Client:  &http.Client{Transport: http.DefaultTransport},
		Status:  status,
		JobName: jobName,
	}
}

// Save GETs fileURL and writes the body into destDir under the derived
// filename, overwriting any previous run's copy.
//
// Behavior:
//   - Streams in fixed-size chunks through a temp file in destDir, renamed
//     into place on success.
//   - No retries: a failed file download is reported and skipped.
//
// Errors:
//   - Non-2xx status, transport failures, or filesystem errors.
func (s *Saver) Save(ctx context.Context, fileURL, destDir string) (string, error) {
	name, err := FileName(fileURL)
	if err != nil {
		return "", err
	}
	destPath := filepath.Join(destDir, name)

	s.statusf("downloading %s", name)
	s.statusf("  from %s", fileURL)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "statfetch/1.0")

	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordHTTP(s.JobName, 0, err, time.Since(start), -1, -1)
		return "", fmt.Errorf("download %s: %w", fileURL, err)
	}
	defer resp.Body.Close()
	reqDur := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n, _ := io.Copy(io.Discard, resp.Body)
		metrics.RecordHTTP(s.JobName, resp.StatusCode, fmt.Errorf("http %d", resp.StatusCode), reqDur, time.Since(start), n)
		return "", fmt.Errorf("download %s: http status %d", fileURL, resp.StatusCode)
	}

	n, err := writeToFile(destPath, resp.Body)
	metrics.RecordHTTP(s.JobName, resp.StatusCode, err, reqDur, time.Since(start), n)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", destPath, err)
	}

	s.statusf("  saved to %s", destPath)
	return destPath, nil
}

func (s *Saver) statusf(format string, args ...any) {
	if s.Status == nil {
		return
	}
	fmt.Fprintf(s.Status, format+"\n", args...)
}

// writeToFile streams r to destPath atomically: temp file in the same
// directory, renamed into place on success. Returns bytes written.
func writeToFile(destPath string, r io.Reader) (int64, error) {
	dir := filepath.Dir(destPath)
	tmp, err := os.CreateTemp(dir, ".statfetch-*")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	buf := make([]byte, copyBufSize)
	n, copyErr := io.CopyBuffer(tmp, r, buf)
	closeErr := tmp.Close()

	if copyErr != nil {
		_ = os.Remove(tmpName)
		return n, copyErr
	}
	if closeErr != nil {
		_ = os.Remove(tmpName)
		return n, closeErr
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		_ = os.Remove(tmpName)
		return n, err
	}
	return n, nil
}
