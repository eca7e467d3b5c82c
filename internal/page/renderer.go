package page

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Renderer turns a URL into a Snapshot. Implementations must be safe for
// concurrent use; each Render call works in its own page context.
type Renderer interface {
	Render(ctx context.Context, route, pageURL string) (*Snapshot, error)
	Close() error
}

// Renderer kinds accepted by --renderer.
const (
	KindBrowser = "browser"
	KindHTTP    = "http"
)

// Viewport is the fixed emulated window size.
type Viewport struct {
	Width  int
	Height int
}

// DefaultViewport is the desktop size the layout thresholds assume.
var DefaultViewport = Viewport{Width: 1280, Height: 720}

// ParseViewport parses "WIDTHxHEIGHT".
func ParseViewport(s string) (Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return Viewport{}, fmt.Errorf("invalid viewport %q (expected WIDTHxHEIGHT)", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return Viewport{}, fmt.Errorf("invalid viewport height %q", h)
	}
	return Viewport{Width: width, Height: height}, nil
}

func (v Viewport) String() string {
	return strconv.Itoa(v.Width) + "x" + strconv.Itoa(v.Height)
}

// ResolveURL joins a base URL and a route path or root-relative href.
func ResolveURL(baseURL, ref string) (string, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("base URL %q must be absolute", baseURL)
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return base.ResolveReference(rel).String(), nil
}
