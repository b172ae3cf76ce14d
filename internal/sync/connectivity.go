package sync

import (
	"context"
	"io"
	"log"
	"net/http"
	"time"
)

// ConnectionChecker probes whether the gateway is reachable before a cycle
// spends effort on it. The probe is bounded: an answer slower than the
// timeout counts as offline.
type ConnectionChecker struct {
	probeURL string
	timeout  time.Duration
	client   *http.Client
}

// NewConnectionChecker creates a checker against probeURL.
func NewConnectionChecker(probeURL string, timeout time.Duration) *ConnectionChecker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConnectionChecker{
		probeURL: probeURL,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

// IsConnected reports whether the gateway answered the probe in time. Any
// HTTP response counts; only transport failures mean offline.
func (c *ConnectionChecker) IsConnected(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, c.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("📡 Connectivity probe failed: %v", err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return true
}
