package opsgenie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"oncall-roster-audit/internal/config"
	apperrors "oncall-roster-audit/internal/errors"
	"oncall-roster-audit/internal/logger"
)

// Client is the sole point of contact with the on-call platform. It attaches
// authentication to every request and retries rate-limited GET calls with a
// strictly increasing delay.
type Client struct {
	baseURL     string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	baseDelay   time.Duration
	pageLimit   int
	maxOffset   int
	log         *logger.Logger
}

// NewClient creates a platform client from the immutable configuration
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		apiKey:      cfg.APIKey,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout()},
		maxAttempts: cfg.RetryMaxAttempts,
		baseDelay:   cfg.RetryBaseDelay(),
		pageLimit:   cfg.PageLimit,
		maxOffset:   cfg.MaxOffset,
		log:         logger.New(),
	}
}

// backoffDelay returns the wait before retry attempt (1-based). The delay
// grows linearly with the attempt number so successive waits strictly
// increase.
func (c *Client) backoffDelay(attempt int) time.Duration {
	return c.baseDelay * time.Duration(attempt)
}

// do issues one platform call and returns the raw response body. Non-2xx,
// non-429 responses become RequestFailedError; a GET that stays rate limited
// through the whole retry budget becomes RateLimitExhaustedError. Only GET
// requests are retried, mutations are never replayed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	log := c.log.WithFields(map[string]interface{}{
		"method": method,
		"url":    fullURL,
	})

	for attempt := 1; ; attempt++ {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP request: %w", err)
		}
		req.Header.Set("Authorization", "GenieKey "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			log.Errorf("Platform request failed: %v", err)
			return nil, fmt.Errorf("platform request failed: %w", err)
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			log.Errorf("Failed to read platform response: %v", readErr)
			return nil, fmt.Errorf("failed to read platform response: %w", readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			log.Debugf("Platform response: status=%d", resp.StatusCode)
			return respBody, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && method == http.MethodGet {
			if attempt >= c.maxAttempts {
				log.Errorf("Rate limited after %d attempts, giving up", attempt)
				return nil, &apperrors.RateLimitExhaustedError{Attempts: attempt}
			}
			wait := c.backoffDelay(attempt)
			log.Warnf("Rate limited, retrying in %s (attempt %d/%d)", wait, attempt, c.maxAttempts)
			if err := sleepContext(ctx, wait); err != nil {
				return nil, err
			}
			continue
		}

		log.Errorf("Platform request failed: status=%d body=%s", resp.StatusCode, string(respBody))
		return nil, &apperrors.RequestFailedError{Status: resp.StatusCode, Body: string(respBody)}
	}
}

// get issues an authenticated GET and decodes the JSON response into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	respBody, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode platform response: %w", err)
	}
	return nil
}

// sleepContext waits for d or until ctx is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
