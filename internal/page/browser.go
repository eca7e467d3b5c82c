package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// annotateLayout writes box, padding, background and visibility annotations
// onto every element and returns the serialized document.
const annotateLayout = `() => {
	const r = (v) => Math.round(v * 100) / 100;
	const sx = window.scrollX, sy = window.scrollY;
	for (const el of document.querySelectorAll('*')) {
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		el.setAttribute('data-sc-box', [r(rect.left + sx), r(rect.top + sy), r(rect.width), r(rect.height)].join(' '));
		el.setAttribute('data-sc-pt', String(r(parseFloat(style.paddingTop) || 0)));
		el.setAttribute('data-sc-bg', style.backgroundColor);
		const visible = rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden';
		el.setAttribute('data-sc-vis', visible ? '1' : '0');
	}
	document.documentElement.setAttribute('data-sc-layout', '1');
	return document.documentElement.outerHTML;
}`

// BrowserConfig configures the Chrome-backed renderer.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string

	// Bin overrides the Chrome binary used when launching.
	Bin string

	Viewport Viewport

	// Headers are sent with every request the page makes.
	Headers map[string]string

	Logger *slog.Logger
}

// BrowserRenderer renders routes in headless Chrome via the DevTools protocol.
type BrowserRenderer struct {
	cfg     BrowserConfig
	browser *rod.Browser
	lnch    *launcher.Launcher

	closeOnce sync.Once
}

// NewBrowserRenderer launches (or connects to) Chrome.
func NewBrowserRenderer(cfg BrowserConfig) (*BrowserRenderer, error) {
	if cfg.Viewport.Width <= 0 || cfg.Viewport.Height <= 0 {
		cfg.Viewport = DefaultViewport
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := &BrowserRenderer{cfg: cfg}

	wsURL := cfg.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		r.lnch = l
		cfg.Logger.Debug("browser: launched local chrome", "url", wsURL)
	} else {
		cfg.Logger.Debug("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if r.lnch != nil {
			r.lnch.Cleanup()
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	r.browser = b
	return r, nil
}

// Render navigates a fresh incognito page to pageURL, waits for load, and
// captures status, DOM and layout.
func (r *BrowserRenderer) Render(ctx context.Context, route, pageURL string) (*Snapshot, error) {
	if r == nil || r.browser == nil {
		return nil, errors.New("browser: renderer is closed")
	}

	incognito, err := r.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: incognito context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	p, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer func() { _ = p.Close() }()
	p = p.Context(ctx)

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.Viewport.Width,
		Height:            r.cfg.Viewport.Height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(p); err != nil {
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	if len(r.cfg.Headers) > 0 {
		kv := make([]string, 0, len(r.cfg.Headers)*2)
		for k, v := range r.cfg.Headers {
			kv = append(kv, k, v)
		}
		if _, err := p.SetExtraHeaders(kv); err != nil {
			return nil, fmt.Errorf("browser: set headers: %w", err)
		}
	}

	// The main document response carries the route's HTTP status.
	var (
		mu     sync.Mutex
		status int
	)
	statusCtx, stopStatus := context.WithCancel(ctx)
	defer stopStatus()
	waitStatus := p.Context(statusCtx).EachEvent(func(e *proto.NetworkResponseReceived) {
		code, ok := documentStatus(e, p.FrameID)
		if !ok {
			return
		}
		mu.Lock()
		if status == 0 {
			status = code
		}
		mu.Unlock()
	})
	go waitStatus()

	if err := p.Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}

	res, err := p.Eval(annotateLayout)
	if err != nil {
		return nil, fmt.Errorf("browser: capture %s: %w", pageURL, err)
	}

	mu.Lock()
	captured := status
	mu.Unlock()
	if captured == 0 {
		return nil, fmt.Errorf("browser: no document response for %s", pageURL)
	}

	snap, err := NewSnapshot(route, pageURL, captured, res.Value.Str())
	if err != nil {
		return nil, err
	}
	r.cfg.Logger.Debug("browser: captured", "route", route, "status", captured, "title", snap.Title)
	return snap, nil
}

// documentStatus returns the HTTP status of e when it is the document
// response of the main frame. Iframe documents are ignored.
func documentStatus(e *proto.NetworkResponseReceived, mainFrame proto.PageFrameID) (int, bool) {
	if e == nil || e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
		return 0, false
	}
	if e.FrameID != mainFrame {
		return 0, false
	}
	return e.Response.Status, true
}

// Close disconnects from Chrome and removes a launched browser.
func (r *BrowserRenderer) Close() error {
	if r == nil {
		return nil
	}
	var err error
	r.closeOnce.Do(func() {
		if r.browser != nil {
			err = r.browser.Close()
		}
		if r.lnch != nil {
			r.lnch.Cleanup()
		}
	})
	return err
}
