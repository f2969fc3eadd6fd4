package download

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// IsZip reports whether name carries a .zip extension (case-insensitive).
func IsZip(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".zip")
}

// IsSpreadsheet reports whether name ends in a spreadsheet extension.
func IsSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xls"
}

// ExtractSpreadsheets opens the archive at zipPath and extracts only its
// spreadsheet members into destDir, flattened to their base names. All
// other members (readmes, metadata, directories) are discarded without
// extraction.
//
// Output:
//   - The paths of the extracted files, in archive order.
//
// Errors:
//   - zipPath is not a valid zip archive, or a member fails to extract.
//     The raw archive is left on disk either way; the caller decides how
//     to report.
func ExtractSpreadsheets(zipPath, destDir string) ([]string, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer zr.Close()

	var extracted []string
	for _, member := range zr.File {
		if member.FileInfo().IsDir() || !IsSpreadsheet(member.Name) {
			continue
		}

		// Base() flattens archive-internal directories and neutralizes any
		// path traversal in member names.
		outPath := filepath.Join(destDir, filepath.Base(member.Name))
		if err := extractMember(member, outPath); err != nil {
			return extracted, fmt.Errorf("extract %s: %w", member.Name, err)
		}
		extracted = append(extracted, outPath)
	}

	return extracted, nil
}

func extractMember(member *zip.File, outPath string) error {
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, rc)
	closeErr := out.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
