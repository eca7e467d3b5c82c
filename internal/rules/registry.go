package rules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Rule)
	mu       sync.RWMutex
)

func Register(r Rule) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[r.ID()]; exists {
		panic(fmt.Sprintf("rule %s already registered", r.ID()))
	}
	// Wrap the rule with AllowListWrapper to provide automatic allowlist support
	registry[r.ID()] = &AllowListWrapper{Rule: r}
}

func List() []Rule {
	mu.RLock()
	defer mu.RUnlock()
	return listLocked()
}

func listLocked() []Rule {
	var rules []Rule
	for _, r := range registry {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].ID() < rules[j].ID()
	})
	return rules
}

func Resolve(selector string) ([]Rule, error) {
	mu.RLock()
	defer mu.RUnlock()

	if strings.TrimSpace(selector) == "" {
		return listLocked(), nil
	}

	// Comma-separated IDs, or a category name selecting every rule in it.
	var selected []Rule
	seen := make(map[string]bool)
	for _, id := range strings.Split(selector, ",") {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if byCat := byCategory(Category(id)); len(byCat) > 0 {
			selected = append(selected, byCat...)
			continue
		}
		if r, ok := registry[id]; ok {
			selected = append(selected, r)
		} else {
			return nil, fmt.Errorf("rule not found: %s", id)
		}
	}
	return dedupe(selected), nil
}

// Lookup returns the registered rule with the given ID.
func Lookup(id string) (Rule, bool) {
	mu.RLock()
	defer mu.RUnlock()
	r, ok := registry[id]
	return r, ok
}

func byCategory(c Category) []Rule {
	var out []Rule
	for _, r := range listLocked() {
		if r.Category() == c {
			out = append(out, r)
		}
	}
	return out
}

func dedupe(in []Rule) []Rule {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, r := range in {
		if seen[r.ID()] {
			continue
		}
		seen[r.ID()] = true
		out = append(out, r)
	}
	return out
}
