package page

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxPageBytes bounds how much of a response body is parsed.
const maxPageBytes = 8 << 20

// HTTPRenderer fetches routes with a plain GET and parses the markup.
// It never executes scripts or computes layout, so its snapshots have
// Layout == false and visual rules skip.
type HTTPRenderer struct {
	client *http.Client
}

// NewHTTPRenderer returns a renderer backed by client (http.DefaultClient when nil).
func NewHTTPRenderer(client *http.Client) *HTTPRenderer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRenderer{client: client}
}

func (r *HTTPRenderer) Render(ctx context.Context, route, pageURL string) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", pageURL, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}
	return NewSnapshot(route, pageURL, resp.StatusCode, string(body))
}

func (r *HTTPRenderer) Close() error { return nil }
