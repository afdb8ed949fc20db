// Package spreadsheet loads and writes the tabular files the importer
// consumes: a header row followed by data rows, addressed positionally.
package spreadsheet

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatError marks input that could not be read as a spreadsheet. It is
// fatal for the run: no remote calls are made after it.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("spreadsheet %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatErr(path string, format string, args ...any) error {
	return &FormatError{Path: path, Err: fmt.Errorf(format, args...)}
}

// Load reads the header row and all data rows from path. The format is
// chosen by extension: .csv or .xlsx.
func Load(path string) ([]string, [][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return loadCSV(path)
	case ".xlsx":
		return loadXLSX(path)
	case ".xls":
		return nil, nil, formatErr(path, "legacy .xls is not supported, convert to .xlsx")
	default:
		return nil, nil, formatErr(path, "unsupported extension %q", ext)
	}
}

// Save writes headers and rows to the path derived from inputPath by
// OutputPath, in the same format as the input. The input file is never
// touched.
func Save(inputPath, suffix string, headers []string, rows [][]string) (string, error) {
	outPath := OutputPath(inputPath, suffix)
	rows = padRows(len(headers), rows)

	var err error
	switch strings.ToLower(filepath.Ext(outPath)) {
	case ".csv":
		err = saveCSV(outPath, headers, rows)
	case ".xlsx":
		err = saveXLSX(outPath, headers, rows)
	default:
		err = formatErr(outPath, "unsupported extension")
	}
	if err != nil {
		return "", err
	}
	return outPath, nil
}

// OutputPath derives the annotated-copy path by inserting suffix before
// the extension: /tmp/contacts.xlsx -> /tmp/contacts_bitrix_imported.xlsx.
func OutputPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

// padRows right-pads ragged rows so the written file is rectangular.
// Callers appending a result cell must pad to the original header width
// first, so the result always sits in the trailing column.
func padRows(width int, rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) >= width {
			out[i] = row
			continue
		}
		padded := make([]string, width)
		copy(padded, row)
		out[i] = padded
	}
	return out
}
