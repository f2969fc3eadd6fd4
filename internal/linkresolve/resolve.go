// Package linkresolve locates the "latest release" download links on an
// agency's statistics page.
//
// Each source carries a Rule describing how its page links the current
// files; Resolve parses the fetched HTML once and dispatches on the rule
// kind. An empty result is not an error: it means nothing to download this
// run.
package linkresolve

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
)

// Resolve extracts the download links for one source page.
//
// Inputs:
//   - html:   the fetched page content.
//   - origin: the site origin (scheme://host) used to absolutize relative
//     hrefs.
//
// Output:
//   - Links in document order. Every URL is absolute.
//
// Errors:
//   - Invalid rule configuration or unparseable HTML. A rule that matches
//     nothing returns (nil, nil).
func Resolve(html, origin string, r Rule) ([]Link, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	switch r.Kind {
	case KindExactSet:
		return resolveExactSet(doc, origin, r), nil
	case KindSubstring:
		return resolveSubstring(doc, origin, r), nil
	case KindPrefixExt:
		return resolvePrefixExt(doc, origin, r), nil
	case KindTextExt:
		return resolveTextExt(doc, origin, r), nil
	case KindExtAllowlist:
		return resolveExtAllowlist(doc, origin, r), nil
	}

	// Unreachable after Validate.
	return nil, fmt.Errorf("unknown rule kind %q", r.Kind)
}

// resolveExactSet emits one link per target filename. The first anchor in
// document order wins for each filename; later duplicates are ignored.
func resolveExactSet(doc *goquery.Document, origin string, r Rule) []Link {
	var links []Link
	seen := make(map[string]bool, len(r.Targets))

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		name := hrefFileName(href)
		if _, ok := r.Targets[name]; !ok || seen[name] {
			return
		}
		seen[name] = true
		links = append(links, Link{URL: absURL(origin, href), FileName: name})
	})

	return links
}

// resolveSubstring returns the first anchor whose href contains any of the
// configured substrings. Scanning stops on the first hit.
func resolveSubstring(doc *goquery.Document, origin string, r Rule) []Link {
	return firstAnchor(doc, origin, func(href, _ string) bool {
		for _, sub := range r.Substrings {
			if strings.Contains(href, sub) {
				return true
			}
		}
		return false
	})
}

// resolvePrefixExt returns the first anchor whose href contains the prefix
// token and ends with the extension.
func resolvePrefixExt(doc *goquery.Document, origin string, r Rule) []Link {
	return firstAnchor(doc, origin, func(href, _ string) bool {
		return strings.Contains(href, r.Prefix) && strings.HasSuffix(href, r.Ext)
	})
}

// resolveTextExt returns the first anchor whose href ends with the
// extension and whose trimmed link text contains the marker phrase,
// case-insensitively.
func resolveTextExt(doc *goquery.Document, origin string, r Rule) []Link {
	marker := cases.Fold().String(r.TextMarker)
	return firstAnchor(doc, origin, func(href, text string) bool {
		if !strings.HasSuffix(href, r.Ext) {
			return false
		}
		folded := cases.Fold().String(strings.TrimSpace(text))
		return strings.Contains(folded, marker)
	})
}

// resolveExtAllowlist walks the document in pre-order and collects every
// anchor with an accepted extension, subject to two exclusions:
//
//   - hrefs containing ExcludePath are skipped individually;
//   - once an element whose text carries StopText is reached, the walk
//     stops entirely. Anchors inside or after that section never qualify,
//     whatever their extension.
func resolveExtAllowlist(doc *goquery.Document, origin string, r Rule) []Link {
	var links []Link
	stopMarker := cases.Fold().String(r.StopText)

	doc.Find("body *").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if r.StopText != "" && isStopHeading(sel, stopMarker) {
			return false
		}

		href, ok := sel.Attr("href")
		if !ok || !sel.Is("a") {
			return true
		}
		if r.ExcludePath != "" && strings.Contains(href, r.ExcludePath) {
			return true
		}
		for _, ext := range r.Exts {
			if strings.HasSuffix(href, ext) {
				links = append(links, Link{URL: absURL(origin, href), FileName: hrefFileName(href)})
				return true
			}
		}
		return true
	})

	return links
}

// isStopHeading reports whether sel is the section boundary: a heading or
// paragraph whose text contains the (case-folded) marker. Restricting the
// check to these tags keeps wrapper divs, which also contain the marker
// text, from stopping the walk early.
func isStopHeading(sel *goquery.Selection, foldedMarker string) bool {
	if !sel.Is("p, h1, h2, h3, h4, h5, h6") {
		return false
	}
	return strings.Contains(cases.Fold().String(sel.Text()), foldedMarker)
}

// firstAnchor scans anchors in document order and returns at most one link,
// the first for which match(href, text) holds.
func firstAnchor(doc *goquery.Document, origin string, match func(href, text string) bool) []Link {
	var links []Link

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if !match(href, sel.Text()) {
			return true
		}
		links = append(links, Link{URL: absURL(origin, href), FileName: hrefFileName(href)})
		return false
	})

	return links
}
