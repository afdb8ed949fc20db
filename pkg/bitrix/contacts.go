package bitrix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Well-known contact field identifiers with multifield values.
const (
	FieldEmail = "EMAIL"
	FieldPhone = "PHONE"
)

// Multifield is the wire shape Bitrix expects for EMAIL and PHONE values.
type Multifield struct {
	Value     string `json:"VALUE"`
	ValueType string `json:"VALUE_TYPE"`
}

// NormalizeMultifields drops empty values and de-duplicates by
// (value type, value), preserving the first occurrence order.
func NormalizeMultifields(items []Multifield) []Multifield {
	type key struct{ valueType, value string }
	seen := make(map[key]struct{}, len(items))
	cleaned := make([]Multifield, 0, len(items))
	for _, item := range items {
		if item.Value == "" {
			continue
		}
		if item.ValueType == "" {
			item.ValueType = "WORK"
		}
		k := key{item.ValueType, item.Value}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		cleaned = append(cleaned, item)
	}
	return cleaned
}

type listRequest struct {
	Filter map[string]string `json:"filter"`
	Select []string          `json:"select"`
}

// FindContact looks up an existing contact by email, then by phone, and
// returns the first matching ID the server reports. Empty criteria are
// not queried; "" means no match.
func (c *Client) FindContact(ctx context.Context, email, phone string) (string, error) {
	if email != "" {
		id, err := c.listFirstID(ctx, map[string]string{FieldEmail: email})
		if err != nil || id != "" {
			return id, err
		}
	}
	if phone != "" {
		return c.listFirstID(ctx, map[string]string{FieldPhone: phone})
	}
	return "", nil
}

func (c *Client) listFirstID(ctx context.Context, filter map[string]string) (string, error) {
	var out struct {
		Result []struct {
			ID string `json:"ID"`
		} `json:"result"`
	}
	req := listRequest{Filter: filter, Select: []string{"ID"}}
	if err := c.call(ctx, http.MethodPost, "crm.contact.list", req, &out); err != nil {
		return "", err
	}
	if len(out.Result) == 0 {
		return "", nil
	}
	// Remote ordering is opaque; the first candidate wins.
	return out.Result[0].ID, nil
}

// AddContact creates a contact and returns its new ID. The sonet event
// is suppressed so bulk imports do not flood the activity stream.
func (c *Client) AddContact(ctx context.Context, fields map[string]any) (string, error) {
	req := struct {
		Fields map[string]any    `json:"fields"`
		Params map[string]string `json:"params"`
	}{
		Fields: fields,
		Params: map[string]string{"REGISTER_SONET_EVENT": "N"},
	}

	var out struct {
		Result json.Number `json:"result"`
	}
	if err := c.call(ctx, http.MethodPost, "crm.contact.add", req, &out); err != nil {
		return "", err
	}
	id := out.Result.String()
	if id == "" || id == "0" {
		return "", fmt.Errorf("crm.contact.add: no contact id in response")
	}
	return id, nil
}
