// Package importer holds the column mapping contract and the sequential
// row-import pipeline that feeds spreadsheet rows into the CRM.
package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
)

var validate = validator.New()

// MappingEntry binds one spreadsheet column to a remote field identifier.
// An empty Field means the column is not imported.
type MappingEntry struct {
	Column int    `json:"column" validate:"gte=0"`
	Header string `json:"header,omitempty"`
	Field  string `json:"field,omitempty"`
}

// Mapping is the user-supplied column layout, immutable during a run.
// Several columns may target the same field; during payload build the
// last mapped column wins.
type Mapping struct {
	Entries []MappingEntry `json:"entries" validate:"required,min=1,dive"`
}

// Mapped returns the entries that actually target a field.
func (m Mapping) Mapped() []MappingEntry {
	out := make([]MappingEntry, 0, len(m.Entries))
	for _, e := range m.Entries {
		if e.Field != "" {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks the mapping against the loaded header row and the
// fetched remote schema: indices must address existing columns exactly
// once, and every target must be a known field identifier.
func (m Mapping) Validate(headers []string, fields []bitrix.Field) error {
	if err := validate.Struct(m); err != nil {
		return err
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.ID] = struct{}{}
	}

	seen := make(map[int]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		if e.Column >= len(headers) {
			return fmt.Errorf("mapping column %d out of range (header has %d columns)", e.Column, len(headers))
		}
		if _, dup := seen[e.Column]; dup {
			return fmt.Errorf("mapping column %d listed twice", e.Column)
		}
		seen[e.Column] = struct{}{}
		if e.Field == "" {
			continue
		}
		if _, ok := known[e.Field]; !ok {
			return fmt.Errorf("mapping column %d targets unknown field %q", e.Column, e.Field)
		}
	}
	if len(m.Mapped()) == 0 {
		return fmt.Errorf("mapping does not import any column")
	}
	return nil
}

// LoadMapping reads a mapping file written by SaveMapping (or by hand).
func LoadMapping(path string) (Mapping, error) {
	var m Mapping
	b, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read %s: %w", path, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return m, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}

func SaveMapping(path string, m Mapping) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
