// Package page captures rendered routes as read-only snapshots.
//
// A snapshot is the serialized DOM of a page plus, when the renderer can
// compute layout, per-element annotations written into data attributes before
// serialization. Rules query snapshots with CSS selectors and never talk to a
// browser themselves.
package page

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Layout annotation attributes written by the browser renderer.
const (
	AttrLayout     = "data-sc-layout"
	AttrBox        = "data-sc-box"
	AttrPaddingTop = "data-sc-pt"
	AttrBackground = "data-sc-bg"
	AttrVisible    = "data-sc-vis"
)

// Box is an element's border box in document coordinates (CSS pixels).
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Snapshot is the rendered state of one route at one point in time.
type Snapshot struct {
	Route  string
	URL    string
	Status int
	Title  string
	Doc    *goquery.Document

	// Layout reports whether elements carry box, style and visibility
	// annotations. Without it, visual rules cannot be evaluated.
	Layout bool

	CapturedAt time.Time
}

// NewSnapshot parses serialized HTML into a snapshot.
func NewSnapshot(route, url string, status int, markup string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return &Snapshot{
		Route:      route,
		URL:        url,
		Status:     status,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Doc:        doc,
		Layout:     doc.Find("html").AttrOr(AttrLayout, "") == "1",
		CapturedAt: time.Now().UTC(),
	}, nil
}

// Find runs a CSS selector against the whole document.
func (s *Snapshot) Find(selector string) *goquery.Selection {
	return s.Doc.Find(selector)
}

// Visible reports whether the first element of sel is rendered.
//
// With layout data this is the browser's verdict (non-empty box, not
// visibility:hidden). Without it, an element counts as visible unless it or
// an ancestor is marked hidden in the markup.
func (s *Snapshot) Visible(sel *goquery.Selection) bool {
	if sel == nil || sel.Length() == 0 {
		return false
	}
	if s.Layout {
		v, ok := sel.First().Attr(AttrVisible)
		return ok && v == "1"
	}
	for n := sel.Get(0); n != nil; n = n.Parent {
		if n.Type == html.ElementNode && hiddenInMarkup(n) {
			return false
		}
	}
	return true
}

func hiddenInMarkup(n *html.Node) bool {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

// BoxOf returns the annotated box of the first element of sel.
func BoxOf(sel *goquery.Selection) (Box, bool) {
	raw, ok := sel.First().Attr(AttrBox)
	if !ok {
		return Box{}, false
	}
	parts := strings.Fields(raw)
	if len(parts) != 4 {
		return Box{}, false
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return Box{}, false
		}
		vals[i] = v
	}
	return Box{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, true
}

// PaddingTop returns the computed padding-top in pixels of the first element of sel.
func PaddingTop(sel *goquery.Selection) (float64, bool) {
	raw, ok := sel.First().Attr(AttrPaddingTop)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "px"), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Background returns the computed background-color of the first element of sel.
func Background(sel *goquery.Selection) (string, bool) {
	raw, ok := sel.First().Attr(AttrBackground)
	if !ok {
		return "", false
	}
	return NormalizeColor(raw), true
}

// NormalizeColor canonicalizes rgb()/rgba() notation so "rgb(10,153,137)" and
// "rgb(10, 153, 137)" compare equal. Other values are lowercased and trimmed.
func NormalizeColor(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	open := strings.IndexByte(c, '(')
	if open < 0 || !strings.HasSuffix(c, ")") {
		return c
	}
	fn := strings.TrimSpace(c[:open])
	if fn != "rgb" && fn != "rgba" {
		return c
	}
	args := strings.Split(c[open+1:len(c)-1], ",")
	for i := range args {
		args[i] = strings.TrimSpace(args[i])
	}
	return fn + "(" + strings.Join(args, ", ") + ")"
}

// blockElements end a word when their content is adjacent to other text.
// Minified markup such as "<li>a</li><li>b</li>" has no whitespace between
// items, so the boundary comes from the element, not the source.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "header": true, "hr": true, "li": true, "main": true,
	"nav": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// Text returns the text of sel with whitespace runs collapsed. Block-level
// elements separate words even when the markup has no whitespace between them.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
