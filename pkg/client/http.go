package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single request when the caller does not override it.
const DefaultTimeout = 12 * time.Second

// HTTPClient issues bounded-time JSON GET requests. It never retries; retry
// and fallback policy belongs to the caller.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient creates a client with the default per-request timeout.
func NewHTTPClient() *HTTPClient {
	return NewHTTPClientWithTimeout(DefaultTimeout)
}

// NewHTTPClientWithTimeout creates a client with a custom per-request timeout.
func NewHTTPClientWithTimeout(timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
	}
}

// GetJSON performs one GET with an Accept: application/json header and decodes
// the body into response. The request is cancelled once the timeout elapses.
// Non-2xx statuses and transport failures are returned as errors.
func (c *HTTPClient) GetJSON(ctx context.Context, url string, response interface{}) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("Non-2xx response")
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, response); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}

	return nil
}
