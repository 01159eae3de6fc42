package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single probe attempt.
const DefaultTimeout = time.Second

// HTTPConfig configures the HTTP strategy.
type HTTPConfig struct {
	// Timeout bounds one request. Default: 1s
	Timeout time.Duration `mapstructure:"timeout"`

	// Header is added to every request.
	Header map[string]string `mapstructure:"header"`

	// Client defaults to a dedicated client.
	Client *http.Client `mapstructure:"-"`
}

// HTTPResult is returned by a successful HTTP probe.
type HTTPResult struct {
	StatusCode int
}

// HTTP checks a service by GETting its health URL.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
	header  map[string]string
}

// NewHTTP creates an HTTP strategy.
func NewHTTP(cfg HTTPConfig) *HTTP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}
	}
	return &HTTP{client: client, timeout: cfg.Timeout, header: cfg.Header}
}

// Check performs one GET against target. Transport errors and statuses
// >= 400 fail the check.
func (h *HTTP) Check(ctx context.Context, target string) (any, error) {
	resp, err := h.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned %d", ErrStatus, redacted(target), resp.StatusCode)
	}
	return HTTPResult{StatusCode: resp.StatusCode}, nil
}

func (h *HTTP) get(ctx context.Context, target string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		// url.Error repeats the raw target.
		if uerr := (*url.Error)(nil); errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("probe: build request: %w", err)
	}
	for k, v := range h.header {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("probe: GET %s: %w", redacted(target), err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Cleanup closes idle connections.
func (h *HTTP) Cleanup(context.Context) error {
	h.client.CloseIdleConnections()
	return nil
}

// redacted masks the password of target for error messages.
func redacted(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return target
	}
	return u.Redacted()
}

// cancelBody releases the request context when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
