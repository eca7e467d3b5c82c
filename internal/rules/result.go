package rules

type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusSkipped Status = "SKIPPED"
	StatusError   Status = "ERROR"
)

// Category groups rules by the kind of failure they report.
type Category string

const (
	CategoryAvailability  Category = "availability"
	CategoryStructural    Category = "structural"
	CategoryContentPolicy Category = "content-policy"
	CategoryVisualPolicy  Category = "visual-policy"
	CategoryLinkIntegrity Category = "link-integrity"
)

// Categories lists every category in report order.
func Categories() []Category {
	return []Category{
		CategoryAvailability,
		CategoryStructural,
		CategoryContentPolicy,
		CategoryVisualPolicy,
		CategoryLinkIntegrity,
	}
}

type Result struct {
	RuleID   string   `json:"rule_id"`
	Route    string   `json:"route"`
	Category Category `json:"category,omitempty"`
	Status   Status   `json:"status"`
	Message  string   `json:"message,omitempty"`
	// Selector is the CSS selector of the offending element, when there is one.
	Selector string `json:"selector,omitempty"`
	// Evidence contains simple key-value string pairs supporting the result.
	Evidence map[string]string `json:"evidence,omitempty"`
	// Metadata contains structured data supporting the result (e.g. lists, counts).
	Metadata map[string]any `json:"metadata,omitempty"`
}
