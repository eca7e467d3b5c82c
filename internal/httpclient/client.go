// Package httpclient builds the HTTP client used for page fetches and link probes.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// UserAgent identifies sitecheck requests in the site's access logs.
const UserAgent = "sitecheck"

type options struct {
	verbose bool
	// logger receives per-request debug lines; it writes to stderr so structured
	// output on stdout (e.g. NDJSON) stays clean.
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*options)

// WithVerbose logs one line per request and response (including latency).
func WithVerbose(enabled bool, logger *slog.Logger) Option {
	return func(o *options) {
		o.verbose = enabled
		o.logger = logger
	}
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("http request", "method", req.Method, "url", req.URL.String())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		t.logger.Debug("http error", "method", req.Method, "url", req.URL.String(), "duration", dur, "error", err)
	} else {
		t.logger.Debug("http response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode, "duration", dur)
	}
	return resp, err
}

type userAgentRoundTripper struct {
	base http.RoundTripper
}

func (t *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", UserAgent)
	return t.base.RoundTrip(clone)
}

// NewClient returns an HTTP client for talking to the site under test.
// A non-empty token is sent as a bearer token on every request, for preview
// deployments behind authentication.
func NewClient(ctx context.Context, token string, opts ...Option) (*http.Client, error) {
	if ctx == nil {
		return nil, fmt.Errorf("http client: ctx is nil")
	}

	o := &options{}
	for _, apply := range opts {
		if apply != nil {
			apply(o)
		}
	}
	if o.verbose && o.logger == nil {
		o.logger = slog.Default()
	}

	var transport http.RoundTripper = &userAgentRoundTripper{base: http.DefaultTransport}
	if o.verbose {
		transport = &loggingRoundTripper{base: transport, logger: o.logger}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &http.Client{Transport: transport, Timeout: o.timeout}, nil
}
