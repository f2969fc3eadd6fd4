package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestRun_StdinResolvesLinks verifies the stdin path: HTML piped in, the
// named source's rule applied, JSON lines out.
func TestRun_StdinResolvesLinks(t *testing.T) {
	t.Parallel()

	stdin := strings.NewReader(`
		<a href="/statistics/tables/xls/f01d.xlsx">F1 daily</a>
		<a href="/statistics/tables/xls/other.xlsx">Other</a>
	`)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-source", "rba-interest-rates"}, stdin, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run()=%d, want 0; stderr=%q", code, stderr.String())
	}

	var link struct {
		URL      string `json:"url"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &link); err != nil {
		t.Fatalf("output not JSON: %v; out=%q", err, stdout.String())
	}
	if link.FileName != "f01d.xlsx" {
		t.Fatalf("FileName=%q, want f01d.xlsx", link.FileName)
	}
	if link.URL != "https://www.rba.gov.au/statistics/tables/xls/f01d.xlsx" {
		t.Fatalf("URL=%q, want absolutized against the RBA origin", link.URL)
	}
}

// TestRun_URLOverrideFetchesPage verifies -url fetches a page and still
// applies the catalog source's rule.
func TestRun_URLOverrideFetchesPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="https://example.com/files/data.xls">Data</a>`)
	}))
	t.Cleanup(srv.Close)

	var stdout, stderr bytes.Buffer
	args := []string{"-source", "rba-payments", "-url", srv.URL + "/page"}

	code := run(context.Background(), args, nil, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run()=%d, want 0; stderr=%q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "data.xls") {
		t.Fatalf("stdout=%q, want resolved link", stdout.String())
	}
}

// TestRun_NoMatchesExitsZero verifies zero matches is reported but not an error.
func TestRun_NoMatchesExitsZero(t *testing.T) {
	t.Parallel()

	stdin := strings.NewReader(`<p>nothing here</p>`)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-source", "nsw-transfer-duty"}, stdin, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run()=%d, want 0", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("stdout=%q, want empty", stdout.String())
	}
	if !strings.Contains(stderr.String(), "no matching links") {
		t.Fatalf("stderr=%q, want no-match notice", stderr.String())
	}
}

// TestRun_UsageErrors verifies exit code 2 for bad invocations.
func TestRun_UsageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing_source", args: nil, want: "missing -source"},
		{name: "unknown_source", args: []string{"-source", "nope"}, want: `unknown source "nope"`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), tc.args, strings.NewReader(""), &stdout, &stderr)
			if code != 2 {
				t.Fatalf("run()=%d, want 2", code)
			}
			if !strings.Contains(stderr.String(), tc.want) {
				t.Fatalf("stderr=%q, want contains %q", stderr.String(), tc.want)
			}
		})
	}
}

// TestRun_FetchFailureExitsOne verifies HTTP failures report an operational error.
func TestRun_FetchFailureExitsOne(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	var stdout, stderr bytes.Buffer
	args := []string{"-source", "apra-monthly-adi", "-url", srv.URL + "/page"}

	code := run(context.Background(), args, nil, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("run()=%d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "http status 403") {
		t.Fatalf("stderr=%q, want status error", stderr.String())
	}
}
