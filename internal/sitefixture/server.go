// Package sitefixture serves a small marketing site that satisfies the
// reference profile. Tests use it as the site under check and break it
// selectively through Options.
package sitefixture

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sitecheck/internal/page"
)

// CalendarURL is the booking link the mid-market hero points to.
const CalendarURL = "https://calendly.com/threadmark/intro"

// AccentColor is the computed background reported for primary buttons when
// layout annotation is enabled.
const AccentColor = "rgb(10, 153, 137)"

type Options struct {
	// Layout annotates every page the way the browser renderer does, so
	// visual rules can be evaluated over plain HTTP.
	Layout bool

	// Mutate edits a page's DOM before it is served.
	Mutate func(path string, doc *goquery.Document)

	// Delay is slept before each response (or until the request is cancelled).
	Delay time.Duration
}

type pageFunc func() string

// NewRouter returns the fixture site's handler.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if opts.Delay > 0 {
		r.Use(delay(opts.Delay))
	}

	pages := map[string]pageFunc{
		"/":            homePage,
		"/eu-merchant": euMerchantPage,
		"/mid-market":  func() string { return midMarketPage(CalendarURL) },
		"/thanks":      thanksPage,
		"/privacy":     privacyPage,
	}
	for path, render := range pages {
		r.Get(path, servePage(opts, path, http.StatusOK, render))
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		servePage(opts, req.URL.Path, http.StatusNotFound, notFoundPage)(w, req)
	})
	return r
}

func delay(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			select {
			case <-time.After(d):
			case <-req.Context().Done():
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func servePage(opts Options, path string, status int, render pageFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		markup := render()
		if opts.Mutate != nil || opts.Layout {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if opts.Mutate != nil {
				opts.Mutate(path, doc)
			}
			if opts.Layout {
				annotate(doc)
			}
			out, err := doc.Html()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			markup = out
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, markup)
	}
}

// annotate writes a deterministic desktop layout: sections stacked 520px
// apart, 600px wide, 64px top padding, every element visible. An element
// that already carries an annotation keeps it, so Mutate can plant
// violations.
func annotate(doc *goquery.Document) {
	setDefault := func(s *goquery.Selection, attr, val string) {
		if _, ok := s.Attr(attr); !ok {
			s.SetAttr(attr, val)
		}
	}

	doc.Find("html").SetAttr(page.AttrLayout, "1")
	doc.Find("main > section").Each(func(i int, s *goquery.Selection) {
		setDefault(s, page.AttrBox, fmt.Sprintf("0 %d 600 480", 80+i*520))
		setDefault(s, page.AttrPaddingTop, "64")
	})
	doc.Find(".btn-primary").Each(func(_ int, s *goquery.Selection) {
		setDefault(s, page.AttrBackground, AccentColor)
	})
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		setDefault(s, page.AttrBox, "0 0 600 24")
		setDefault(s, page.AttrPaddingTop, "0")
		setDefault(s, page.AttrBackground, "rgba(0, 0, 0, 0)")
		setDefault(s, page.AttrVisible, "1")
	})
}
