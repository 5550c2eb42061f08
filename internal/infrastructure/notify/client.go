package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// InternalAPIKeyHeader carries the shared secret between API and hub.
const InternalAPIKeyHeader = "X-Internal-Api-Key"

const defaultRequestTimeout = 10 * time.Second

// StatusError is a non-2xx response from the hub.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hub responded %d: %s", e.Code, e.Body)
}

// HubClient posts change events to the hub's broadcast endpoint. It performs a
// single attempt per call.
type HubClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// NewHubClient targets {baseURL}/api/broadcast. apiKey may be empty.
func NewHubClient(baseURL, apiKey string, httpClient *http.Client) *HubClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &HubClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/api/broadcast",
		apiKey:   apiKey,
		http:     httpClient,
	}
}

func (c *HubClient) Post(ctx context.Context, event domain.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(InternalAPIKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post broadcast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
