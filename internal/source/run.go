package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"statfetch/internal/download"
	"statfetch/internal/linkresolve"
	"statfetch/internal/metrics"
)

// Runner executes sources one at a time. Its function fields are seams so
// tests can run the full control flow without network or filesystem side
// effects (inject a fake fetcher/saver).
type Runner struct {
	// Fetch retrieves a page with retry/backoff (internal/fetch).
	Fetch func(ctx context.Context, url string) (string, error)

	// Save downloads one resolved URL into a folder (internal/download).
	Save func(ctx context.Context, fileURL, destDir string) (string, error)

	// Extract filters spreadsheet members out of a zip artifact.
	Extract func(zipPath, destDir string) ([]string, error)

	// MkdirAll creates the destination folder. Defaults to os.MkdirAll.
	MkdirAll func(path string) error

	// Status receives the human-readable progress lines.
	Status io.Writer

	// JobName tags the per-source outcome metrics.
	JobName string
}

// RunSource processes one source to completion: fetch the page, resolve
// its links, download each, extract spreadsheet members from zips.
//
// Errors:
//   - Page unreachable (fetch retries exhausted) or folder creation
//     failure. Everything past resolution is non-fatal: failed downloads
//     and invalid archives are reported on Status and skipped so sibling
//     files still run.
//
// Edge cases:
//   - Zero resolved links is not an error; a notice is emitted and the
//     download step is skipped.
func (r *Runner) RunSource(ctx context.Context, src Source, root string) error {
	destDir := filepath.Join(root, src.Folder)
	if err := r.mkdirAll(destDir); err != nil {
		return fmt.Errorf("create folder %s: %w", destDir, err)
	}

	r.statusf("[%s] fetching %s", src.Name, src.PageURL)
	html, err := r.Fetch(ctx, src.PageURL)
	if err != nil {
		metrics.RecordSource(r.JobName, src.Name, "unreachable")
		r.statusf("[%s] source page unreachable: %v", src.Name, err)
		return err
	}

	links, err := linkresolve.Resolve(html, src.Origin, src.Rule)
	if err != nil {
		metrics.RecordSource(r.JobName, src.Name, "resolve_failed")
		return fmt.Errorf("resolve %s: %w", src.Name, err)
	}
	if len(links) == 0 {
		metrics.RecordSource(r.JobName, src.Name, "no_match")
		r.statusf("[%s] no matching file found", src.Name)
		return nil
	}
	metrics.RecordSource(r.JobName, src.Name, "fetched")

	for _, link := range links {
		path, err := r.Save(ctx, link.URL, destDir)
		if err != nil {
			metrics.RecordSource(r.JobName, src.Name, "save_failed")
			r.statusf("[%s] failed to download %s: %v", src.Name, link.URL, err)
			continue
		}
		metrics.RecordSource(r.JobName, src.Name, "saved")

		if !src.ExtractZips || !download.IsZip(path) {
			continue
		}

		extracted, err := r.extract(path, destDir)
		if err != nil {
			metrics.RecordSource(r.JobName, src.Name, "extract_failed")
			r.statusf("[%s] invalid zip %s: %v", src.Name, path, err)
			continue
		}
		for _, p := range extracted {
			r.statusf("[%s] extracted %s", src.Name, filepath.Base(p))
		}
	}

	return nil
}

// RunAll processes every source in order. A failed source is reported and
// the run moves on; RunAll itself never fails.
func (r *Runner) RunAll(ctx context.Context, sources []Source, root string) {
	for _, src := range sources {
		if err := r.RunSource(ctx, src, root); err != nil {
			r.statusf("[%s] source failed: %v", src.Name, err)
		}
	}
	r.statusf("all downloads completed")
}

func (r *Runner) mkdirAll(path string) error {
	if r.MkdirAll != nil {
		return r.MkdirAll(path)
	}
	return os.MkdirAll(path, 0o755)
}

func (r *Runner) extract(zipPath, destDir string) ([]string, error) {
	if r.Extract != nil {
		return r.Extract(zipPath, destDir)
	}
	return download.ExtractSpreadsheets(zipPath, destDir)
}

func (r *Runner) statusf(format string, args ...any) {
	if r.Status == nil {
		return
	}
	fmt.Fprintf(r.Status, format+"\n", args...)
}
