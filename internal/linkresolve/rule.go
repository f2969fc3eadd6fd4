package linkresolve

import (
	"fmt"
	"net/url"
	"strings"
)

// RuleKind selects one of the per-source matching strategies.
type RuleKind string

const (
	// KindExactSet accepts anchors whose href's final path segment (query
	// stripped) equals one of a fixed set of filenames.
	KindExactSet RuleKind = "exact-set"

	// KindSubstring accepts the first anchor whose href contains any of the
	// configured substrings.
	KindSubstring RuleKind = "substring"

	// KindPrefixExt accepts the first anchor whose href contains a prefix
	// token and ends with an extension.
	KindPrefixExt RuleKind = "prefix-ext"

	// KindTextExt accepts the first anchor whose href ends with an extension
	// and whose visible text contains a marker phrase (case-insensitive).
	KindTextExt RuleKind = "text-ext"

	// KindExtAllowlist accepts every anchor ending with an allowed extension,
	// excluding a path marker and everything at or after a stop heading.
	KindExtAllowlist RuleKind = "ext-allowlist"
)

// Rule is the tagged matching configuration for one source page.
//
// Only the fields relevant to Kind are consulted; Validate reports which
// fields a given kind requires.
type Rule struct {
	Kind RuleKind `json:"kind"`

	// Targets maps filename -> human label (exact-set).
	Targets map[string]string `json:"targets,omitempty"`

	// Substrings are alternative href fragments (substring).
	Substrings []string `json:"substrings,omitempty"`

	// Prefix and Ext drive the prefix-ext match; Ext is shared by text-ext.
	Prefix string `json:"prefix,omitempty"`
	Ext    string `json:"ext,omitempty"`

	// TextMarker is the phrase required in the anchor text (text-ext).
	TextMarker string `json:"text_marker,omitempty"`

	// Exts is the accepted extension list (ext-allowlist).
	Exts []string `json:"exts,omitempty"`

	// ExcludePath marks discontinued files by href fragment (ext-allowlist).
	ExcludePath string `json:"exclude_path,omitempty"`

	// StopText marks the heading at which resolution stops (ext-allowlist).
	StopText string `json:"stop_text,omitempty"`
}

// Link is one resolved download target.
type Link struct {
	// URL is always absolute.
	URL string `json:"url"`

	// FileName is the artifact name derived from the href.
	FileName string `json:"file_name"`
}

// Validate reports configuration mistakes for the rule.
//
// Errors:
//   - Unknown kind.
//   - Missing parameters required by the kind.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindExactSet:
		if len(r.Targets) == 0 {
			return fmt.Errorf("exact-set rule: targets is empty")
		}
	case KindSubstring:
		if len(r.Substrings) == 0 {
			return fmt.Errorf("substring rule: substrings is empty")
		}
	case KindPrefixExt:
		if r.Prefix == "" || r.Ext == "" {
			return fmt.Errorf("prefix-ext rule: prefix and ext are required")
		}
	case KindTextExt:
		if r.TextMarker == "" || r.Ext == "" {
			return fmt.Errorf("text-ext rule: text_marker and ext are required")
		}
	case KindExtAllowlist:
		if len(r.Exts) == 0 {
			return fmt.Errorf("ext-allowlist rule: exts is empty")
		}
	case "":
		return fmt.Errorf("rule kind is empty")
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
	return nil
}

// hrefFileName returns the final path segment of href with any query string
// stripped and percent-escapes decoded.
func hrefFileName(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		return decoded
	}
	return href
}

// absURL prefixes relative hrefs with the source's site origin. The target
// sites serve same-origin rooted paths, so a single prefix pass suffices.
func absURL(origin, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(origin, "/") + "/" + strings.TrimLeft(href, "/")
}
