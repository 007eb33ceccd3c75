package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Object is a fetched image reference before it is sniffed and validated.
type Object struct {
	Data        []byte
	ContentType string
}

// Fetcher retrieves the raw bytes behind an image reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*Object, error)
}

const (
	maxAttempts     = 3
	defaultMaxBytes = 10 * 1024 * 1024
)

// HTTPOptions tunes the HTTP fetcher; zero values use defaults.
type HTTPOptions struct {
	Timeout  time.Duration
	MaxBytes int64
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// HTTPFetcher downloads images over http(s), retrying transient failures.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	backoff  time.Duration
}

// NewHTTPFetcher creates an HTTP image fetcher
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}

	transport := &http.Transport{
		// Screenshots are fetched one or two at a time per request
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: opts.MaxBytes,
		backoff:  opts.Backoff,
	}
}

// Fetch downloads ref. Network errors and 5xx responses are retried up to
// three attempts in total; 4xx responses fail immediately.
func (h *HTTPFetcher) Fetch(ctx context.Context, ref string) (*Object, error) {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		obj, retry, err := h.fetchOnce(ctx, ref)
		if err == nil {
			return obj, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", maxAttempts, lastErr)
}

func (h *HTTPFetcher) fetchOnce(ctx context.Context, ref string) (*Object, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/png, image/jpeg, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Attack-Planner/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		// Context errors are final; anything else may be a dropped connection.
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, fmt.Errorf("image exceeds %d bytes", h.maxBytes)
	}

	return &Object{Data: data, ContentType: resp.Header.Get("Content-Type")}, false, nil
}
