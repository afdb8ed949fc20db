package spreadsheet

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

func loadCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &FormatError{Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	br := stripUTF8BOM(bufio.NewReader(f))

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = false

	headers, err := readHeader(path, r)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, nil, &FormatError{Path: path, Err: err}
		}
		if len(rec) == 0 {
			continue
		}
		rows = append(rows, rec)
	}
	return headers, rows, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func readHeader(path string, r *csv.Reader) ([]string, error) {
	h, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, formatErr(path, "missing header row")
		}
		return nil, &FormatError{Path: path, Err: err}
	}
	for i := range h {
		h[i] = strings.TrimSpace(h[i])
		if !utf8.ValidString(h[i]) {
			return nil, formatErr(path, "invalid header encoding")
		}
	}
	return h, nil
}

func saveCSV(path string, headers []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return &FormatError{Path: path, Err: err}
	}

	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		_ = f.Close()
		return &FormatError{Path: path, Err: err}
	}
	if err := w.WriteAll(rows); err != nil {
		_ = f.Close()
		return &FormatError{Path: path, Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return &FormatError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	return nil
}
