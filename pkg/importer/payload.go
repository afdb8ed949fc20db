package importer

import (
	"strings"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
)

// BuildPayload assembles the crm.contact.add field set for one row.
// Unmapped columns and empty cells are omitted. EMAIL and PHONE become
// multifield lists; every other field carries the cell value verbatim.
// When two columns target the same plain field the later column wins.
func BuildPayload(m Mapping, row []string) map[string]any {
	payload := make(map[string]any)
	var emails, phones []bitrix.Multifield

	for _, e := range m.Mapped() {
		if e.Column >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[e.Column])
		if value == "" {
			continue
		}
		switch e.Field {
		case bitrix.FieldEmail:
			emails = append(emails, bitrix.Multifield{Value: value, ValueType: "WORK"})
		case bitrix.FieldPhone:
			phones = append(phones, bitrix.Multifield{Value: value, ValueType: "WORK"})
		default:
			payload[e.Field] = value
		}
	}

	if cleaned := bitrix.NormalizeMultifields(emails); len(cleaned) > 0 {
		payload[bitrix.FieldEmail] = cleaned
	}
	if cleaned := bitrix.NormalizeMultifields(phones); len(cleaned) > 0 {
		payload[bitrix.FieldPhone] = cleaned
	}
	return payload
}

// primaryValue extracts the first multifield value for field from a built
// payload; it is what the duplicate lookup matches on.
func primaryValue(payload map[string]any, field string) string {
	items, ok := payload[field].([]bitrix.Multifield)
	if !ok || len(items) == 0 {
		return ""
	}
	return items[0].Value
}
