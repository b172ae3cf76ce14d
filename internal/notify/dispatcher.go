package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/warefront/fieldsync/internal/models"
)

// Dispatcher delivers one notification to the downstream messaging surface.
type Dispatcher interface {
	Dispatch(ctx context.Context, category models.NotificationCategory, body []byte) error
}

// HTTPDispatcher posts notifications to the messaging endpoint, one route
// per category.
type HTTPDispatcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPDispatcher creates a dispatcher bound to baseURL.
func NewHTTPDispatcher(baseURL, apiKey string) *HTTPDispatcher {
	return &HTTPDispatcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Dispatch posts the notification body to its category route.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, category models.NotificationCategory, body []byte) error {
	url := fmt.Sprintf("%s/notifications/%s", d.baseURL, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.apiKey != "" {
		req.Header.Set("X-Api-Key", d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification dispatch failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification dispatch returned status %d", resp.StatusCode)
	}
	return nil
}
