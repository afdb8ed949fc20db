package bitrix

import (
	"fmt"
	"strings"
)

// APIError is a rejected REST call: either a Bitrix error envelope or a
// non-success HTTP status with no envelope.
type APIError struct {
	Method      string
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bitrix %s: status=%d", e.Method, e.Status)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, ": %s", e.Description)
	}
	return b.String()
}
