package rules

import "sitecheck/internal/site"

func NewResult(route site.Route, ruleID string, status Status, message string) Result {
	return Result{
		RuleID:  ruleID,
		Route:   route.Path,
		Status:  status,
		Message: message,
	}
}

func PassResult(route site.Route, ruleID string) Result {
	return NewResult(route, ruleID, StatusPass, "")
}

func PassResultWithMessage(route site.Route, ruleID string, message string) Result {
	return NewResult(route, ruleID, StatusPass, message)
}

func PassResultWithMetadata(route site.Route, ruleID string, message string, metadata map[string]any) Result {
	res := NewResult(route, ruleID, StatusPass, message)
	res.Metadata = metadata
	return res
}

func FailResult(route site.Route, ruleID string, message string) Result {
	return NewResult(route, ruleID, StatusFail, message)
}

// FailAt reports a failure located at selector.
func FailAt(route site.Route, ruleID, selector, message string) Result {
	res := NewResult(route, ruleID, StatusFail, message)
	res.Selector = selector
	return res
}

func ErrorResult(route site.Route, ruleID string, message string) Result {
	return NewResult(route, ruleID, StatusError, message)
}

func SkippedResult(route site.Route, ruleID string, message string) Result {
	return NewResult(route, ruleID, StatusSkipped, message)
}

// WithEvidence returns a copy of r with the key/value pairs added to its
// evidence. A trailing key without a value is ignored.
func (r Result) WithEvidence(kv ...string) Result {
	ev := make(map[string]string, len(r.Evidence)+len(kv)/2)
	for k, v := range r.Evidence {
		ev[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		ev[kv[i]] = kv[i+1]
	}
	r.Evidence = ev
	return r
}

// Counts tallies results by status.
type Counts struct {
	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Skipped int `json:"skipped"`
	Error   int `json:"error"`
}

// Add records one status.
func (c *Counts) Add(s Status) {
	switch s {
	case StatusPass:
		c.Pass++
	case StatusFail:
		c.Fail++
	case StatusSkipped:
		c.Skipped++
	case StatusError:
		c.Error++
	}
}

func (c Counts) Total() int {
	return c.Pass + c.Fail + c.Skipped + c.Error
}
