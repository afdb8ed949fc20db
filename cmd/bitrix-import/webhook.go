package main

import (
	"fmt"
	"strings"

	"github.com/iota-uz/bitrix-import/pkg/configuration"
)

// resolveWebhook prefers the --webhook flag over BITRIX_WEBHOOK_URL.
func resolveWebhook(flagValue string) (string, error) {
	raw := strings.TrimSpace(flagValue)
	if raw == "" {
		raw = configuration.Use().WebhookURL
	}
	if raw == "" {
		return "", withCode(exitUsage, fmt.Errorf("webhook is required: pass --webhook or set BITRIX_WEBHOOK_URL"))
	}
	normalized, err := configuration.NormalizeWebhook(raw)
	if err != nil {
		return "", withCode(exitUsage, fmt.Errorf("invalid webhook: %w", err))
	}
	return normalized, nil
}
