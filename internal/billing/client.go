package billing

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UsageRecorder reports metered usage to the billing provider. The provider
// deduplicates on the idempotency key, which is what makes the daily
// aggregation safe to re-run after a crash.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, subscriptionItemID string, quantity int, idempotencyKey string) error
}

// HTTPClient records usage against the billing provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a billing client for the given API base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// RecordUsage posts one usage record for a subscription item.
func (c *HTTPClient) RecordUsage(ctx context.Context, subscriptionItemID string, quantity int, idempotencyKey string) error {
	form := url.Values{}
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("action", "increment")

	endpoint := fmt.Sprintf("%s/v1/subscription_items/%s/usage_records", c.baseURL, subscriptionItemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build usage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("usage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("billing provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logrus.WithFields(logrus.Fields{
		"subscription_item": subscriptionItemID,
		"quantity":          quantity,
		"idempotency_key":   idempotencyKey,
	}).Info("Recorded usage with billing provider")
	return nil
}
