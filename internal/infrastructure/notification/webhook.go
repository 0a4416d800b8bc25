package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/payhole/payments/internal/application/payment/notifier"
	"github.com/payhole/payments/internal/shared/logger"
)

const (
	defaultWebhookTimeout = 5 * time.Second
	webhookUserAgent      = "payhole-payments"
	// Response bodies are only read for logging
	maxWebhookResponseSize = 4 << 10
)

// WebhookNotifier POSTs each unlock event as JSON to a fixed URL.
type WebhookNotifier struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	logger     logger.Interface
}

var _ notifier.UnlockNotifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier creates a notifier for url. A nil httpClient uses a
// default client; a non-positive timeout falls back to five seconds.
func NewWebhookNotifier(url string, timeout time.Duration, httpClient *http.Client, logger logger.Interface) *WebhookNotifier {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookNotifier{
		url:        url,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyUnlock sends a single attempt; non-2xx responses are errors.
func (n *WebhookNotifier) NotifyUnlock(ctx context.Context, event notifier.UnlockEvent) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal unlock event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxWebhookResponseSize))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxWebhookResponseSize))

	n.logger.Debugw("unlock webhook delivered",
		"wallet", event.Wallet,
		"status", resp.StatusCode,
	)
	return nil
}
