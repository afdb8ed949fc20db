// Package bitrix is a minimal client for the Bitrix24 REST API as exposed
// through an inbound webhook URL. The webhook embeds the credential token,
// so no separate auth header is required.
package bitrix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bitrix-import/pkg/configuration"
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) { c.log = l }
}

type Client struct {
	webhookURL      string
	httpClient      *http.Client
	requestIDHeader string
	log             *logrus.Logger
}

// NewClient validates and normalizes the webhook URL. The timeout default
// comes from configuration; override per client with WithTimeout.
func NewClient(webhookURL string, opts ...Option) (*Client, error) {
	normalized, err := configuration.NormalizeWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}
	c := &Client{
		webhookURL:      normalized,
		httpClient:      &http.Client{Timeout: configuration.Use().HTTPTimeout},
		requestIDHeader: configuration.Use().RequestIDHeader,
		log:             configuration.Use().Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// call issues one REST method call ({webhook}/{method}.json) and decodes
// the result envelope into out. Error envelopes and non-2xx statuses are
// returned as *APIError.
func (c *Client) call(ctx context.Context, httpMethod, method string, reqBody any, out any) error {
	u := c.webhookURL + method + ".json"

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("%s: json marshal request: %w", method, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, u, body)
	if err != nil {
		return fmt.Errorf("%s: http request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: http do: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: http read: %w", method, err)
	}

	var envelope struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(respBody, &envelope); err == nil && strings.TrimSpace(envelope.Error) != "" {
		return &APIError{
			Method:      method,
			Status:      resp.StatusCode,
			Code:        envelope.Error,
			Description: envelope.ErrorDescription,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Method:      method,
			Status:      resp.StatusCode,
			Description: strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: json unmarshal response: %w", method, err)
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"status": resp.StatusCode,
	}).Debug("bitrix call")
	return nil
}
