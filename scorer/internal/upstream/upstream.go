// Package upstream holds the HTTP plumbing shared by the network scorer backends.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"health-report-service/apperr"
)

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 4 << 20

// KeySuffix returns the last four characters of a credential, for error messages.
// Credentials that short are masked entirely.
func KeySuffix(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[len(key)-4:]
}

// NewHTTPClient returns a client bounded by timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// PostJSON marshals body, sends it to url with headers and returns the raw 2xx response body.
// Transport failures become network errors, non-2xx responses upstream errors.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body any, keySuffix string) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, networkError(err, keySuffix)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, networkError(err, keySuffix)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream(resp.StatusCode, "AI API error (status %d): %s. Key suffix: %s",
			resp.StatusCode, truncate(string(respBody), 512), keySuffix)
	}
	return respBody, nil
}

func networkError(err error, keySuffix string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.Wrap(apperr.KindNetwork, err, "AI request timed out. Key suffix: %s", keySuffix)
	}
	return apperr.Wrap(apperr.KindNetwork, err, "AI request failed. Key suffix: %s", keySuffix)
}

// Annotate attaches the key suffix to a structured error returned after the response was read.
func Annotate(err error, keySuffix string) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		e.Message = fmt.Sprintf("%s. Key suffix: %s", e.Message, keySuffix)
		return e
	}
	return fmt.Errorf("%w. Key suffix: %s", err, keySuffix)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
