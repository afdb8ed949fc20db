package bitrix

import (
	"context"
	"net/http"
	"sort"
	"strings"
)

// Field is one importable contact attribute of the remote schema.
type Field struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	ReadOnly bool   `json:"read_only"`
}

// importableTypes are the field types worth offering in a mapping; the
// rest (files, bindings, user references) cannot be filled from a cell.
var importableTypes = map[string]struct{}{
	"string":         {},
	"integer":        {},
	"double":         {},
	"boolean":        {},
	"enumeration":    {},
	"date":           {},
	"datetime":       {},
	"crm_multifield": {},
}

type fieldMeta struct {
	Type        string `json:"type"`
	IsReadOnly  bool   `json:"isReadOnly"`
	Title       string `json:"title"`
	ListLabel   string `json:"listLabel"`
	FormLabel   string `json:"formLabel"`
	FilterLabel string `json:"filterLabel"`
}

func (m fieldMeta) label(id string) string {
	for _, l := range []string{m.ListLabel, m.FormLabel, m.FilterLabel, m.Title} {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return id
}

// FetchContactFields returns the importable contact fields, sorted by ID.
// EMAIL and PHONE are always included regardless of their reported type.
// A failure here is fatal for an import run: no mapping can be built.
func (c *Client) FetchContactFields(ctx context.Context) ([]Field, error) {
	var out struct {
		Result map[string]fieldMeta `json:"result"`
	}
	if err := c.call(ctx, http.MethodGet, "crm.contact.fields", nil, &out); err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(out.Result))
	for id, meta := range out.Result {
		if id != FieldEmail && id != FieldPhone {
			if _, ok := importableTypes[meta.Type]; !ok || meta.IsReadOnly {
				continue
			}
		}
		fields = append(fields, Field{
			ID:       id,
			Label:    meta.label(id),
			Type:     meta.Type,
			ReadOnly: meta.IsReadOnly,
		})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].ID < fields[j].ID })
	return fields, nil
}
