package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"sitecheck/internal/data"
)

type depErrorDisposition int

const (
	depErrDispositionError depErrorDisposition = iota
	depErrDispositionSkip
)

type depErrorPresentation struct {
	disposition depErrorDisposition
	message     string
}

func dependencyLabel(key data.DependencyKey) string {
	switch key {
	case data.DepPageSnapshot:
		return "page capture"
	case data.DepPageLinkStatus:
		return "link probe"
	case data.DepSiteProfile:
		return "site profile"
	default:
		return string(key)
	}
}

// presentDependencyError turns a fetch failure into a result message.
// Without verbose, request URLs are reduced to their path so reports stay
// stable across base URLs.
func presentDependencyError(key data.DependencyKey, err error, verbose bool) depErrorPresentation {
	if err == nil {
		return depErrorPresentation{disposition: depErrDispositionError, message: "unknown error"}
	}
	label := dependencyLabel(key)

	if errors.Is(err, context.Canceled) {
		return depErrorPresentation{disposition: depErrDispositionSkip, message: label + " cancelled"}
	}
	if verbose {
		return depErrorPresentation{disposition: depErrDispositionError, message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return depErrorPresentation{disposition: depErrDispositionError, message: label + " timed out"}
	}

	var ue *url.Error
	if errors.As(err, &ue) {
		target := ue.URL
		if u, perr := url.Parse(ue.URL); perr == nil && u.Path != "" {
			target = u.Path
		}
		return depErrorPresentation{
			disposition: depErrDispositionError,
			message:     fmt.Sprintf("%s failed: %s %s: %v", label, ue.Op, target, ue.Err),
		}
	}

	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return depErrorPresentation{disposition: depErrDispositionError, message: fmt.Sprintf("%s failed: %s", label, msg)}
}
