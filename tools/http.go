// Shared HTTP plumbing for the tools that query public services.

package tools

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	userAgent      = "swasth/1.0 (+health assistant)"
	maxBodyBytes   = 2 << 20
	errorBodyBytes = 512
)

// StatusError is returned when an upstream service answers with a non-2xx status.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.URL, e.Code)
}

// webClient wraps an http.Client with a bounded timeout and a fixed user agent.
type webClient struct {
	client *http.Client
}

func newWebClient(timeout time.Duration) *webClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &webClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &userAgentTransport{
				base: http.DefaultTransport,
				ua:   userAgent,
			},
		},
	}
}

// get fetches url and returns the body of a 2xx response, capped at maxBodyBytes.
func (c *webClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyBytes))
		return nil, &StatusError{URL: req.URL.Host + req.URL.Path, Code: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// getJSON fetches url and decodes the JSON body into v.
func (c *webClient) getJSON(ctx context.Context, url string, v any) error {
	body, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "unexpected response format: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

type userAgentTransport struct {
	base http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}
	return t.base.RoundTrip(req)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// FailureClass names the kind of failure in a few words suitable for
// showing to a user.
func FailureClass(err error) string {
	var (
		se *StatusError
		de *decodeError
		ne net.Error
	)
	switch {
	case err == nil:
		return "unknown error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	case errors.As(err, &se):
		if se.Code == http.StatusTooManyRequests {
			return "rate limited"
		}
		return fmt.Sprintf("HTTP %d", se.Code)
	case errors.As(err, &de):
		return "unexpected response"
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.As(err, &ne):
		return "network error"
	default:
		return "service error"
	}
}
