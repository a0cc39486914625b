// Package httpx is a thin outbound HTTP client with per-call timeouts.
// It is the single egress path for webhook posts, the manual test action,
// exchange-rate fetches and WebDAV backup traffic.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/fx"
)

// Result carries the status and (truncated) body of an outbound call.
type Result struct {
	Status int
	Body   []byte
}

// OK reports whether the response status is 2xx.
func (r *Result) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// maxBodyBytes bounds how much of a response body is retained.
const maxBodyBytes = 1 << 20

// Client is the outbound HTTP abstraction injected into services so tests
// can substitute a fake transport.
type Client interface {
	// PostJSON sends body as application/json and returns the response.
	PostJSON(ctx context.Context, url string, body []byte, timeout time.Duration) (*Result, error)
	// Do issues an arbitrary request (WebDAV uses MKCOL/PROPFIND/PUT/DELETE).
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration) (*Result, error)
}

type client struct {
	userAgent string
	inner     *http.Client
}

// New returns a Client stamping every request with the given User-Agent.
func New(userAgent string) Client {
	return &client{userAgent: userAgent, inner: &http.Client{}}
}

func (c *client) PostJSON(ctx context.Context, url string, body []byte, timeout time.Duration) (*Result, error) {
	return c.Do(ctx, http.MethodPost, url, map[string]string{"Content-Type": "application/json"}, body, timeout)
}

func (c *client) Do(ctx context.Context, method, url string, headers map[string]string, body []byte, timeout time.Duration) (*Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return &Result{Status: res.StatusCode}, fmt.Errorf("read response body: %w", err)
	}
	return &Result{Status: res.StatusCode, Body: data}, nil
}

var Module = fx.Options(
	fx.Provide(func() Client { return New("Nebula/0.2") }),
)
