// Package fetch implements the blocked-aware page fetcher.
//
// Government statistics portals occasionally answer with 403/429/503 or a
// captcha interstitial instead of the real page. Fetch treats those the same
// as transport errors: wait, double the wait, try again, up to a fixed
// attempt budget.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"statfetch/internal/metrics"

	"golang.org/x/text/cases"
)

// ErrExhausted is returned (wrapped) when every attempt failed or was blocked.
var ErrExhausted = errors.New("fetch attempts exhausted")

// Default knobs; the CLI exposes flags for all of them.
const (
	DefaultRetries     = 3
	DefaultInitialWait = 5 * time.Second
	DefaultTimeout     = 10 * time.Second
)

// blockedStatuses are the response codes the portals use when rate limiting
// or refusing automated clients.
var blockedStatuses = map[int]bool{
	http.StatusForbidden:          true,
	http.StatusTooManyRequests:    true,
	http.StatusServiceUnavailable: true,
}

// Fetcher retrieves one page with retry/backoff.
//
// When to use:
//   - Page fetches only. File downloads go through internal/download and are
//     not retried (a failed file is skipped, not re-attempted).
//
// Zero values: NewFetcher fills in the defaults; a hand-built Fetcher with a
// nil Client or Sleep still works (http.DefaultClient, time.Sleep).
type Fetcher struct {
	Client      *http.Client
	Retries     int
	InitialWait time.Duration

	// Sleep is a seam so tests can assert backoff without waiting.
	Sleep func(time.Duration)

	// Status receives one human-readable line per retry/failure.
	Status io.Writer

	// JobName tags the HTTP metrics for this run.
	JobName string
}

// NewFetcher builds a Fetcher with the default retry budget and a client
// with the standard page timeout.
func NewFetcher(timeout time.Duration, status io.Writer, jobName string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		Client:      &http.Client{Timeout: timeout},
		Retries:     DefaultRetries,
		InitialWait: DefaultInitialWait,
		Sleep:       time.Sleep,
		Status:      status,
		JobName:     jobName,
	}
}

// Fetch GETs url and returns the page body.
//
// Behavior:
//   - Up to Retries total attempts (including the first).
//   - A blocked response (IsBlocked) or transport error triggers a wait of
//     Wait(InitialWait, attempt) before the next attempt.
//   - The first non-blocked response wins regardless of status code; link
//     resolution on an error page simply finds no anchors.
//
// Errors:
//   - Wraps ErrExhausted when the attempt budget runs out.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	sleep := f.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	retries := f.Retries
	if retries <= 0 {
		retries = DefaultRetries
	}
	initial := f.InitialWait
	if initial <= 0 {
		initial = DefaultInitialWait
	}

	for attempt := 1; attempt <= retries; attempt++ {
		body, status, err := f.attempt(ctx, client, url)
		if err != nil {
			f.statusf("error fetching %s: %v", url, err)
			if attempt < retries {
				sleep(Wait(initial, attempt))
			}
			continue
		}

		if IsBlocked(status, body) {
			wait := Wait(initial, attempt)
			f.statusf("blocked on attempt %d/%d (HTTP %d), retrying in %s", attempt, retries, status, wait)
			if attempt < retries {
				sleep(wait)
			}
			continue
		}

		return body, nil
	}

	f.statusf("failed to fetch %s after %d attempts", url, retries)
	return "", fmt.Errorf("fetch %s: %w", url, ErrExhausted)
}

// attempt performs a single GET and records its metrics.
func (f *Fetcher) attempt(ctx context.Context, client *http.Client, url string) (body string, status int, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		metrics.RecordHTTP(f.JobName, 0, err, -1, -1, -1)
		return "", 0, err
	}
	req.Header.Set("User-Agent", "statfetch/1.0")

	resp, err := client.Do(req)
	if err != nil {
		metrics.RecordHTTP(f.JobName, 0, err, time.Since(start), -1, -1)
		return "", 0, err
	}
	defer resp.Body.Close()
	reqDur := time.Since(start)

	b, err := io.ReadAll(resp.Body)
	respDur := time.Since(start)
	metrics.RecordHTTP(f.JobName, resp.StatusCode, err, reqDur, respDur, int64(len(b)))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return string(b), resp.StatusCode, nil
}

func (f *Fetcher) statusf(format string, args ...any) {
	if f.Status == nil {
		return
	}
	fmt.Fprintf(f.Status, format+"\n", args...)
}

// IsBlocked reports whether a response looks like a bot-block rather than
// the real page: a blocking status code, or a captcha marker anywhere in
// the body (case-insensitive).
func IsBlocked(status int, body string) bool {
	if blockedStatuses[status] {
		return true
	}
	// A fresh Caser per call: Casers are stateful and not goroutine-safe.
	return strings.Contains(cases.Fold().String(body), "captcha")
}

// Wait returns the backoff before the attempt following attempt N:
// initial * 2^(attempt-1).
//
// Edge cases:
//   - attempt < 1 is treated as 1.
func Wait(initial time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return initial << uint(attempt-1)
}
