// Command resolve-links applies a catalog source's link rule to a page and
// prints the resolved download links as JSON lines, without downloading
// anything. Useful when an agency redesigns a release page and the rule
// needs checking.
//
// Usage (fetch the source's own page):
//
//	resolve-links -source rba-payments
//
// Usage (apply a rule to a different page):
//
//	resolve-links -source rba-payments -url "https://www.rba.gov.au/payments-and-infrastructure/resources/payments-data.html"
//
// Usage (stdin):
//
//	cat page.html | resolve-links -source abs-cpi-monthly
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"statfetch/internal/linkresolve"
	"statfetch/internal/source"
)

func main() {
	os.Exit(run(
		context.Background(),
		os.Args[1:],
		os.Stdin,
		os.Stdout,
		os.Stderr,
	))
}

// run is split out from main so we can unit test the command without
// spawning an OS process.
//
// It returns a Unix-style exit code:
//   - 0 for success (including zero matches)
//   - 2 for usage/config errors
//   - 1 for operational/runtime errors
func run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
) int {
	fs := flag.NewFlagSet("resolve-links", flag.ContinueOnError)
	fs.SetOutput(stderr)

	sourceName := fs.String("source", "", "Catalog source whose rule to apply (required)")
	urlFlag := fs.String("url", "", "Optional: fetch this URL instead of the source's page; empty with piped stdin reads HTML from stdin")
	timeout := fs.Duration("timeout", 20*time.Second, "Timeout for the page fetch")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *sourceName == "" {
		fmt.Fprintln(stderr, "missing -source")
		return 2
	}
	src, ok := source.ByName(source.Catalog(), *sourceName)
	if !ok {
		fmt.Fprintf(stderr, "unknown source %q\n", *sourceName)
		return 2
	}

	html, err := loadHTML(ctx, stdin, *urlFlag, src.PageURL, *timeout)
	if err != nil {
		fmt.Fprintf(stderr, "load html: %v\n", err)
		return 1
	}

	links, err := linkresolve.Resolve(html, src.Origin, src.Rule)
	if err != nil {
		fmt.Fprintf(stderr, "resolve: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	for _, l := range links {
		if err := enc.Encode(l); err != nil {
			fmt.Fprintf(stderr, "encode json: %v\n", err)
			return 1
		}
	}
	if len(links) == 0 {
		fmt.Fprintln(stderr, "no matching links")
	}
	return 0
}

// loadHTML reads page HTML from stdin when it is piped, otherwise fetches
// urlOverride (or the source's own page URL) over HTTP.
func loadHTML(ctx context.Context, stdin io.Reader, urlOverride, pageURL string, timeout time.Duration) (string, error) {
	if urlOverride == "" && stdinIsPiped(stdin) {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}

	u := urlOverride
	if u == "" {
		u = pageURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "statfetch/1.0")

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("http status %d fetching %s", resp.StatusCode, u)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// stdinIsPiped reports whether the reader carries piped data. For the real
// os.Stdin this checks the character-device bit; any other reader (tests
// inject bytes.Buffer) is treated as piped input.
func stdinIsPiped(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return r != nil
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice == 0
}
