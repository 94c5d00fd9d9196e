// Package fetch talks to the external extraction backend that serves the raw
// device artifacts (SMS, call log, contacts). Network calls here are the
// engine's only suspension points: every request honors its context so a
// dismissed view cancels in-flight work, and timeouts surface as a
// recoverable FetchError instead of hanging a load forever.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tracelens/trace-console/internal/artifact"
)

// FetchError wraps a backend failure. Retryable distinguishes transient
// network trouble from a response the backend actively refused.
type FetchError struct {
	Endpoint  string
	Status    int
	Err       error
	retryable bool
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: backend returned %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may usefully retry the request.
func (e *FetchError) Retryable() bool { return e.retryable }

// Options controls the backend client behavior.
type Options struct {
	// BaseURL of the extraction backend, e.g. "http://localhost:3000"
	BaseURL string
	// Timeout per request. Defaults to 15 seconds.
	Timeout time.Duration
	// RPS is max requests per second. 0 disables rate limiting.
	RPS int
	// Burst is the token bucket size. If 0 and RPS>0, defaults to RPS.
	Burst int
	// Logger for minimal logs (optional)
	Logger *log.Logger
}

// Client fetches raw artifact collections from the extraction backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rateLimiter
	logger     *log.Logger
}

// NewClient constructs a backend client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", opts.BaseURL, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	var lim *rateLimiter
	if opts.RPS > 0 {
		if opts.Burst <= 0 {
			opts.Burst = opts.RPS
		}
		lim = newRateLimiter(opts.RPS, opts.Burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    lim,
		logger:     logger,
	}, nil
}

// Close releases the client's rate limiter.
func (c *Client) Close() {
	c.limiter.Close()
}

// Messages fetches the raw SMS collection.
func (c *Client) Messages(ctx context.Context) ([]artifact.RawMessage, error) {
	var out []artifact.RawMessage
	if err := c.getJSON(ctx, "/sms", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Calls fetches the raw call-log collection.
func (c *Client) Calls(ctx context.Context) ([]artifact.RawCall, error) {
	var out []artifact.RawCall
	if err := c.getJSON(ctx, "/call-log", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Contacts fetches the raw contact collection.
func (c *Client) Contacts(ctx context.Context) ([]artifact.RawContact, error) {
	var out []artifact.RawContact
	if err := c.getJSON(ctx, "/contacts", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceName fetches the extracted device's display name. A backend without
// the endpoint yields an empty name rather than a failed load.
func (c *Client) DeviceName(ctx context.Context) (string, error) {
	var out struct {
		DeviceName string `json:"deviceName"`
	}
	err := c.getJSON(ctx, "/device", &out)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Status == http.StatusNotFound {
			return "", nil
		}
		return "", err
	}
	return out.DeviceName, nil
}

// Artifacts fetches all three collections plus the device name as one bundle.
// The first failure aborts the load; partial bundles are never returned.
func (c *Client) Artifacts(ctx context.Context) (*artifact.Bundle, error) {
	msgs, err := c.Messages(ctx)
	if err != nil {
		return nil, err
	}
	calls, err := c.Calls(ctx)
	if err != nil {
		return nil, err
	}
	contacts, err := c.Contacts(ctx)
	if err != nil {
		return nil, err
	}
	device, err := c.DeviceName(ctx)
	if err != nil {
		return nil, err
	}
	return &artifact.Bundle{
		Messages:   msgs,
		Calls:      calls,
		Contacts:   contacts,
		DeviceName: device,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &FetchError{Endpoint: endpoint, Err: err, retryable: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err, retryable: false}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Context cancellation is the caller's doing; everything else
		// (timeouts, refused connections) is worth retrying.
		retry := !errors.Is(err, context.Canceled)
		return &FetchError{Endpoint: endpoint, Err: err, retryable: retry}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &FetchError{
			Endpoint:  endpoint,
			Status:    resp.StatusCode,
			Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
			retryable: resp.StatusCode >= 500,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FetchError{Endpoint: endpoint, Err: err, retryable: true}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err), retryable: false}
	}

	c.logger.Printf("Fetched %s (%d bytes)", endpoint, len(body))
	return nil
}
