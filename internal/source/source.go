// Package source defines the scrape-job descriptors and the sequential
// runner that drives fetch → resolve → download → extract for each one.
package source

import (
	"statfetch/internal/linkresolve"
)

// Source describes one page-scrape job: where the page lives, how to find
// the download links on it, and where artifacts go.
//
// Sources are static configuration; nothing mutates them after startup.
type Source struct {
	// Name identifies the job in status lines, metrics and -only.
	Name string

	// Folder is the subfolder under the destination root.
	Folder string

	// PageURL is the "latest release" page to scrape.
	PageURL string

	// Origin absolutizes relative hrefs found on the page.
	Origin string

	// Rule locates the download links on the fetched page.
	Rule linkresolve.Rule

	// ExtractZips enables spreadsheet extraction for zip artifacts.
	ExtractZips bool
}

// Agency folder names; shared by every job of the same agency so their
// artifacts land together.
const (
	FolderABS  = "ABS Data"
	FolderAPRA = "APRA Data"
	FolderNSW  = "NSW Revenue Data"
	FolderRBA  = "RBA Data"
)

const (
	originABS  = "https://www.abs.gov.au"
	originAPRA = "https://www.apra.gov.au"
	originNSW  = "https://www.revenue.nsw.gov.au"
	originRBA  = "https://www.rba.gov.au"
)

// Catalog returns the built-in scrape jobs, in run order.
//
// The four agencies break down into nine jobs because ABS publishes each
// dataset on its own release page and RBA splits payments data from the
// interest-rate tables.
func Catalog() []Source {
	return []Source{
		{
			Name:    "abs-lending-indicators",
			Folder:  FolderABS,
			PageURL: originABS + "/statistics/economy/finance/lending-indicators/latest-release#data-downloads",
			Origin:  originABS,
			Rule: linkresolve.Rule{
				Kind: linkresolve.KindExactSet,
				Targets: map[string]string{
					"Housing-Finance-Total.zip":             "Housing Finance Total",
					"Housing-Finance-Owner-occupiers.zip":   "Housing Finance Owner-occupiers",
					"Housing-Finance-Investors.zip":         "Housing Finance Investors",
					"Business-Finance.zip":                  "Business Finance",
					"Housing-Finance-First-home-buyers.zip": "Housing Finance First-home buyers",
				},
			},
			ExtractZips: true,
		},
		{
			Name:    "abs-cpi-monthly",
			Folder:  FolderABS,
			PageURL: originABS + "/statistics/economy/price-indexes-and-inflation/monthly-consumer-price-index-indicator/latest-release",
			Origin:  originABS,
			Rule: linkresolve.Rule{
				Kind:       linkresolve.KindSubstring,
				Substrings: []string{"Time-Series-Spreadsheets.zip"},
			},
			ExtractZips: true,
		},
		{
			Name:    "abs-cpi-quarterly",
			Folder:  FolderABS,
			PageURL: originABS + "/statistics/economy/price-indexes-and-inflation/consumer-price-index-australia/latest-release",
			Origin:  originABS,
			Rule: linkresolve.Rule{
				Kind: linkresolve.KindSubstring,
				Substrings: []string{
					"All-Time-Series-Spreadsheets.zip",
					"Time-series-spreadsheets-all.zip",
				},
			},
			ExtractZips: true,
		},
		{
			Name:    "abs-labour-force",
			Folder:  FolderABS,
			PageURL: originABS + "/statistics/labour/employment-and-unemployment/labour-force-australia/latest-release#data-downloads",
			Origin:  originABS,
			Rule: linkresolve.Rule{
				Kind:   linkresolve.KindPrefixExt,
				Prefix: "6202001",
				Ext:    ".xlsx",
			},
		},
		{
			Name:    "abs-retail-trade",
			Folder:  FolderABS,
			PageURL: originABS + "/statistics/industry/retail-and-wholesale-trade/retail-trade-australia/latest-release#data-downloads",
			Origin:  originABS,
			Rule: linkresolve.Rule{
				Kind:       linkresolve.KindSubstring,
				Substrings: []string{"All-Time-Series-Spreadsheets.zip"},
			},
			ExtractZips: true,
		},
		{
			Name:    "apra-monthly-adi",
			Folder:  FolderAPRA,
			PageURL: originAPRA + "/monthly-authorised-deposit-taking-institution-statistics",
			Origin:  originAPRA,
			Rule: linkresolve.Rule{
				Kind:       linkresolve.KindTextExt,
				Ext:        ".xlsx",
				TextMarker: "back-series",
			},
		},
		{
			Name:    "nsw-transfer-duty",
			Folder:  FolderNSW,
			PageURL: originNSW + "/help-centre/resources-library/statistics",
			Origin:  originNSW,
			Rule: linkresolve.Rule{
				Kind:       linkresolve.KindSubstring,
				Substrings: []string{"transfer-duty-land-related-dsd-001.xlsx"},
			},
		},
		{
			Name:    "rba-payments",
			Folder:  FolderRBA,
			PageURL: originRBA + "/payments-and-infrastructure/resources/payments-data.html",
			Origin:  originRBA,
			Rule: linkresolve.Rule{
				Kind:        linkresolve.KindExtAllowlist,
				Exts:        []string{".xls", ".xlsx"},
				ExcludePath: "/xls-disc/",
				StopText:    "Discontinued payments statistical tables",
			},
		},
		{
			Name:    "rba-interest-rates",
			Folder:  FolderRBA,
			PageURL: originRBA + "/statistics/tables/",
			Origin:  originRBA,
			Rule: linkresolve.Rule{
				Kind: linkresolve.KindExactSet,
				Targets: map[string]string{
					"f01d.xlsx":    "Interest Rates and Yields – Money Market – Daily – F1",
					"f01hist.xlsx": "Interest Rates and Yields – Money Market – Monthly – F1.1",
					"f06hist.xlsx": "Housing Lending Rates – F6",
				},
			},
		},
	}
}

// ByName returns the catalog entry with the given name.
func ByName(sources []Source, name string) (Source, bool) {
	for _, s := range sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}
