package download

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

// writeTestZip builds a zip at path with the given member name -> content.
func writeTestZip(t *testing.T, path string, members map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}
}

// TestExtractSpreadsheets_FiltersMembers verifies only .xlsx/.xls members
// land on disk and everything else is discarded.
func TestExtractSpreadsheets_FiltersMembers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "Time-Series-Spreadsheets.zip")
	writeTestZip(t, zipPath, map[string]string{
		"data.xlsx":    "xlsx bytes",
		"readme.txt":   "ignore me",
		"data_old.xls": "xls bytes",
		"notes.pdf":    "ignore me too",
	})

	extracted, err := ExtractSpreadsheets(zipPath, dir)
	if err != nil {
		t.Fatalf("ExtractSpreadsheets() err=%v", err)
	}
	if len(extracted) != 2 {
		t.Fatalf("extracted %d members, want 2: %v", len(extracted), extracted)
	}

	for _, name := range []string{"data.xlsx", "data_old.xls"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing extracted member %s: %v", name, err)
		}
		if len(b) == 0 {
			t.Fatalf("extracted member %s is empty", name)
		}
	}
	for _, name := range []string{"readme.txt", "notes.pdf"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Fatalf("non-spreadsheet member %s was extracted", name)
		}
	}
}

// TestExtractSpreadsheets_FlattensNestedPaths verifies archive-internal
// directories collapse to base names in the destination folder.
func TestExtractSpreadsheets_FlattensNestedPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zipPath := filepath.Join(dir, "nested.zip")
	writeTestZip(t, zipPath, map[string]string{
		"tables/2024/6202001.xlsx": "nested xlsx",
	})

	extracted, err := ExtractSpreadsheets(zipPath, dir)
	if err != nil {
		t.Fatalf("ExtractSpreadsheets() err=%v", err)
	}
	want := filepath.Join(dir, "6202001.xlsx")
	if len(extracted) != 1 || extracted[0] != want {
		t.Fatalf("extracted=%v, want [%s]", extracted, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("flattened member missing: %v", err)
	}
}

// TestExtractSpreadsheets_InvalidZip verifies a non-zip payload reports an
// error and leaves the raw file untouched.
func TestExtractSpreadsheets_InvalidZip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fake := filepath.Join(dir, "not-really.zip")
	if err := os.WriteFile(fake, []byte("<html>error page</html>"), 0o644); err != nil {
		t.Fatalf("seed fake zip: %v", err)
	}

	if _, err := ExtractSpreadsheets(fake, dir); err == nil {
		t.Fatalf("ExtractSpreadsheets() err=nil, want invalid zip error")
	}
	if _, err := os.Stat(fake); err != nil {
		t.Fatalf("raw file should be retained: %v", err)
	}
}

// TestIsZipAndIsSpreadsheet covers extension classification.
func TestIsZipAndIsSpreadsheet(t *testing.T) {
	t.Parallel()

	if !IsZip("Business-Finance.zip") || !IsZip("UPPER.ZIP") {
		t.Fatalf("IsZip should accept .zip case-insensitively")
	}
	if IsZip("f01d.xlsx") {
		t.Fatalf("IsZip(.xlsx)=true, want false")
	}
	if !IsSpreadsheet("a.xlsx") || !IsSpreadsheet("b.XLS") {
		t.Fatalf("IsSpreadsheet should accept .xlsx/.xls case-insensitively")
	}
	if IsSpreadsheet("readme.txt") {
		t.Fatalf("IsSpreadsheet(.txt)=true, want false")
	}
}
