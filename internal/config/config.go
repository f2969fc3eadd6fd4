// Package config loads an optional JSON file that overrides the built-in
// source catalog and run parameters.
//
// Most runs need no config file at all; the file exists so a source can be
// repointed (the agencies reshuffle release URLs every few years) without
// rebuilding the binary.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"statfetch/internal/linkresolve"
	"statfetch/internal/source"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Issue is one validation finding, addressed by a config path like
// "sources[2].rule".
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

// Config mirrors the JSON override file.
type Config struct {
	// RootDir overrides the destination root folder.
	RootDir string `json:"root_dir,omitempty"`

	// Retries is the total page-fetch attempt budget.
	Retries int `json:"retries,omitempty"`

	// InitialWaitSeconds is the first backoff interval.
	InitialWaitSeconds int `json:"initial_wait_seconds,omitempty"`

	// TimeoutSeconds bounds each page request.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// Sources replaces the built-in catalog when non-empty.
	Sources []SourceConfig `json:"sources,omitempty"`
}

// SourceConfig is one catalog entry in the override file.
type SourceConfig struct {
	Name        string           `json:"name"`
	Folder      string           `json:"folder,omitempty"`
	PageURL     string           `json:"page_url"`
	Origin      string           `json:"origin"`
	ExtractZips bool             `json:"extract_zips,omitempty"`
	Rule        linkresolve.Rule `json:"rule"`
}

// Load reads and decodes a config file.
//
// Errors:
//   - Unreadable file or malformed JSON. Validation is separate; callers
//     run Validate and decide how to report its issues.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config json: %w", err)
	}
	return cfg, nil
}

// Validate reports configuration problems. Errors make the config
// unusable; warnings are advisory.
func Validate(cfg Config) []Issue {
	var issues []Issue

	addErr := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)})
	}
	addWarn := func(path, format string, args ...any) {
		issues = append(issues, Issue{Severity: SeverityWarn, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.Retries < 0 {
		addErr("retries", "must be >= 0")
	}
	if cfg.InitialWaitSeconds < 0 {
		addErr("initial_wait_seconds", "must be >= 0")
	}
	if cfg.TimeoutSeconds < 0 {
		addErr("timeout_seconds", "must be >= 0")
	}

	names := map[string]bool{}
	for i, sc := range cfg.Sources {
		path := fmt.Sprintf("sources[%d]", i)

		if sc.Name == "" {
			addErr(path+".name", "is required")
		} else if names[sc.Name] {
			addErr(path+".name", "duplicate source name %q", sc.Name)
		}
		names[sc.Name] = true

		if sc.PageURL == "" {
			addErr(path+".page_url", "is required")
		}
		if sc.Origin == "" {
			addErr(path+".origin", "is required")
		}
		if sc.Folder == "" {
			addWarn(path+".folder", "empty; defaulting to the source name")
		}
		if err := sc.Rule.Validate(); err != nil {
			addErr(path+".rule", "%v", err)
		}
	}

	return issues
}

// HasErrors reports whether any issue is error-severity.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// SourceList converts the config's sources into catalog entries, or
// returns the built-in catalog when the config defines none.
func (c Config) SourceList() []source.Source {
	if len(c.Sources) == 0 {
		return source.Catalog()
	}

	out := make([]source.Source, 0, len(c.Sources))
	for _, sc := range c.Sources {
		folder := sc.Folder
		if folder == "" {
			folder = sc.Name
		}
		out = append(out, source.Source{
			Name:        sc.Name,
			Folder:      folder,
			PageURL:     sc.PageURL,
			Origin:      sc.Origin,
			Rule:        sc.Rule,
			ExtractZips: sc.ExtractZips,
		})
	}
	return out
}

// InitialWait returns the configured backoff or def when unset.
func (c Config) InitialWait(def time.Duration) time.Duration {
	if c.InitialWaitSeconds <= 0 {
		return def
	}
	return time.Duration(c.InitialWaitSeconds) * time.Second
}

// Timeout returns the configured request timeout or def when unset.
func (c Config) Timeout(def time.Duration) time.Duration {
	if c.TimeoutSeconds <= 0 {
		return def
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
