package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// WebhookConfig holds an incoming webhook URL.
type WebhookConfig struct {
	WebhookURL string
}

// Validate validates the webhook configuration.
func (c *WebhookConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

func newWebhookClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// postJSON posts payload to url and treats any non-200 reply as an error.
func postJSON(ctx context.Context, client *http.Client, service, url string, payload any) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s API error: status %d, body: %s", service, resp.StatusCode, string(body))
	}
	return nil
}

// impactEmoji returns an emoji for the impact level.
func impactEmoji(level models.ImpactLevel) string {
	switch level {
	case models.ImpactHigh:
		return "\U0001F534" // red circle
	case models.ImpactMedium:
		return "\U0001F7E1" // yellow circle
	case models.ImpactLow:
		return "\U0001F7E2" // green circle
	default:
		return "\u26AA" // white circle
	}
}

// truncate truncates a string to max length with ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
