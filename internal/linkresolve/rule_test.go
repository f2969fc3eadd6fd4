package linkresolve

import (
	"strings"
	"testing"
)

// TestRuleValidate covers the required-parameter checks per kind.
func TestRuleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    Rule
		wantErr string
	}{
		{name: "empty_kind", rule: Rule{}, wantErr: "rule kind is empty"},
		{name: "unknown_kind", rule: Rule{Kind: "fuzzy"}, wantErr: "unknown rule kind"},
		{name: "exact_set_no_targets", rule: Rule{Kind: KindExactSet}, wantErr: "targets is empty"},
		{name: "substring_no_substrings", rule: Rule{Kind: KindSubstring}, wantErr: "substrings is empty"},
		{name: "prefix_ext_missing_ext", rule: Rule{Kind: KindPrefixExt, Prefix: "6202001"}, wantErr: "prefix and ext"},
		{name: "text_ext_missing_marker", rule: Rule{Kind: KindTextExt, Ext: ".xlsx"}, wantErr: "text_marker and ext"},
		{name: "allowlist_no_exts", rule: Rule{Kind: KindExtAllowlist}, wantErr: "exts is empty"},
		{
			name: "valid_exact_set",
			rule: Rule{Kind: KindExactSet, Targets: map[string]string{"a.xlsx": "A"}},
		},
		{
			name: "valid_allowlist",
			rule: Rule{Kind: KindExtAllowlist, Exts: []string{".xls"}},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.rule.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() err=%v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Validate() err=%v, want contains %q", err, tc.wantErr)
			}
		})
	}
}

// TestHrefFileName verifies query stripping and percent decoding.
func TestHrefFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		href string
		want string
	}{
		{href: "/files/Time-Series-Spreadsheets.zip?abc=1", want: "Time-Series-Spreadsheets.zip"},
		{href: "https://www.abs.gov.au/files/Business-Finance.zip", want: "Business-Finance.zip"},
		{href: "/files/lending%20indicators.xlsx", want: "lending indicators.xlsx"},
		{href: "plain.xlsx", want: "plain.xlsx"},
		{href: "/files/report.xlsx#sheet2", want: "report.xlsx"},
	}
	for _, tc := range tests {
		if got := hrefFileName(tc.href); got != tc.want {
			t.Fatalf("hrefFileName(%q)=%q, want %q", tc.href, got, tc.want)
		}
	}
}

// TestAbsURL verifies origin prefixing happens exactly once.
func TestAbsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		origin string
		href   string
		want   string
	}{
		{origin: "https://www.rba.gov.au", href: "/statistics/f01d.xlsx", want: "https://www.rba.gov.au/statistics/f01d.xlsx"},
		{origin: "https://www.rba.gov.au/", href: "/statistics/f01d.xlsx", want: "https://www.rba.gov.au/statistics/f01d.xlsx"},
		{origin: "https://www.rba.gov.au", href: "https://www.rba.gov.au/statistics/f01d.xlsx", want: "https://www.rba.gov.au/statistics/f01d.xlsx"},
		{origin: "https://www.abs.gov.au", href: "files/data.zip", want: "https://www.abs.gov.au/files/data.zip"},
	}
	for _, tc := range tests {
		if got := absURL(tc.origin, tc.href); got != tc.want {
			t.Fatalf("absURL(%q, %q)=%q, want %q", tc.origin, tc.href, got, tc.want)
		}
	}
}
