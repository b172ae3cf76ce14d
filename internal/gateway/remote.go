package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Remote is the wire surface of the table gateway. One method per REST verb;
// payloads stay raw JSON so the queue can replay them without knowing the
// record type.
type Remote interface {
	// Create posts a new record and returns the server's authoritative copy.
	Create(ctx context.Context, table string, payload []byte) ([]byte, error)
	// Update replaces a record; version is the optimistic concurrency token.
	Update(ctx context.Context, table, id, version string, payload []byte) ([]byte, error)
	// Delete removes a record.
	Delete(ctx context.Context, table, id, version string) error
	// List fetches all records matching the filter as a JSON array.
	List(ctx context.Context, table string, filter map[string]string) ([]byte, error)
}

// RemoteError is a non-2xx gateway response. Conflict responses carry the
// server's current copy of the record so the caller can resolve server-wins
// without a second round trip.
type RemoteError struct {
	StatusCode   int
	Table        string
	RecordID     string
	Body         []byte
	ServerRecord json.RawMessage
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("gateway %s/%s: status %d", e.Table, e.RecordID, e.StatusCode)
}

// IsConflict reports whether the gateway rejected the write because the
// server holds a newer version of the record.
func (e *RemoteError) IsConflict() bool {
	return e.StatusCode == http.StatusConflict || e.StatusCode == http.StatusPreconditionFailed
}

// IsBadRequest reports whether the gateway judged the payload malformed.
// Such operations can never succeed and must be discarded, not retried.
func (e *RemoteError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// IsNotFound reports a delete or update aimed at a record the server no
// longer has.
func (e *RemoteError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// HTTPRemote talks to the table gateway over HTTPS.
type HTTPRemote struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPRemote creates a remote bound to baseURL.
func NewHTTPRemote(baseURL, apiKey string, timeout time.Duration) *HTTPRemote {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPRemote{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRemote) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := r.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("X-Api-Key", r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := &RemoteError{StatusCode: resp.StatusCode, Body: respBody}
		// Conflict responses embed the server's record under "record".
		if rerr.IsConflict() {
			var envelope struct {
				Record json.RawMessage `json:"record"`
			}
			if err := json.Unmarshal(respBody, &envelope); err == nil && len(envelope.Record) > 0 {
				rerr.ServerRecord = envelope.Record
			} else if len(respBody) > 0 && respBody[0] == '{' {
				rerr.ServerRecord = respBody
			}
		}
		return nil, rerr
	}

	return respBody, nil
}

// Create posts a new record.
func (r *HTTPRemote) Create(ctx context.Context, table string, payload []byte) ([]byte, error) {
	body, err := r.do(ctx, http.MethodPost, "/tables/"+table, nil, payload)
	if err != nil {
		if rerr, ok := err.(*RemoteError); ok {
			rerr.Table = table
		}
		return nil, err
	}
	return body, nil
}

// Update replaces a record, guarded by its version token.
func (r *HTTPRemote) Update(ctx context.Context, table, id, version string, payload []byte) ([]byte, error) {
	q := url.Values{}
	if version != "" {
		q.Set("version", version)
	}
	body, err := r.do(ctx, http.MethodPut, "/tables/"+table+"/"+id, q, payload)
	if err != nil {
		if rerr, ok := err.(*RemoteError); ok {
			rerr.Table = table
			rerr.RecordID = id
		}
		return nil, err
	}
	return body, nil
}

// Delete removes a record.
func (r *HTTPRemote) Delete(ctx context.Context, table, id, version string) error {
	q := url.Values{}
	if version != "" {
		q.Set("version", version)
	}
	_, err := r.do(ctx, http.MethodDelete, "/tables/"+table+"/"+id, q, nil)
	if err != nil {
		if rerr, ok := err.(*RemoteError); ok {
			rerr.Table = table
			rerr.RecordID = id
			// Deleting a record the server already dropped is success.
			if rerr.IsNotFound() {
				log.Printf("🗑️ %s/%s already gone on server", table, id)
				return nil
			}
		}
		return err
	}
	return nil
}

// List fetches every record matching the filter.
func (r *HTTPRemote) List(ctx context.Context, table string, filter map[string]string) ([]byte, error) {
	q := url.Values{}
	for k, v := range filter {
		q.Set(k, v)
	}
	body, err := r.do(ctx, http.MethodGet, "/tables/"+table, q, nil)
	if err != nil {
		if rerr, ok := err.(*RemoteError); ok {
			rerr.Table = table
		}
		return nil, err
	}
	return body, nil
}
