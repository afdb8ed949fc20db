package configuration

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fs.FileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

type Configuration struct {
	// Full Bitrix24 inbound webhook URL, credential token included,
	// e.g. https://example.bitrix24.com/rest/241/rct2v0wt7wair6ie/
	WebhookURL string `env:"BITRIX_WEBHOOK_URL"`

	HTTPTimeout     time.Duration `env:"BITRIX_HTTP_TIMEOUT" envDefault:"30s"`
	DuplicateCheck  bool          `env:"DUPLICATE_CHECK" envDefault:"true"`
	OutputSuffix    string        `env:"OUTPUT_SUFFIX" envDefault:"_bitrix_imported"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"error"`
	RequestIDHeader string        `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`

	logger *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	if _, err := LoadEnv(envFiles); err != nil {
		return err
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetLevel(c.LogrusLogLevel())
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})
	c.logger = logger

	return nil
}

func (c *Configuration) validateWebhook() error {
	raw := strings.TrimSpace(c.WebhookURL)
	if raw == "" {
		return nil // supplied per-run via --webhook
	}
	normalized, err := NormalizeWebhook(raw)
	if err != nil {
		return fmt.Errorf("invalid BITRIX_WEBHOOK_URL: %w", err)
	}
	c.WebhookURL = normalized
	return nil
}

// NormalizeWebhook trims the URL and guarantees a trailing slash so that
// REST method names can be appended directly. The user must paste the full
// webhook including the credential token segment.
func NormalizeWebhook(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("webhook must be an absolute URL, got %q", raw)
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}

// RedactWebhook hides the credential token segment of a webhook URL so it
// can appear in logs and reports. Bitrix inbound webhooks have the shape
// /rest/<user_id>/<token>/.
func RedactWebhook(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "<invalid webhook>"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if i > 0 && parts[i-1] != "rest" && p != "rest" {
			parts[i] = "***"
		}
	}
	u.Path = "/" + strings.Join(parts, "/") + "/"
	return u.String()
}
