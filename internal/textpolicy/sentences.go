// Package textpolicy holds the copy heuristics used by content rules.
package textpolicy

import (
	"regexp"
	"strings"
)

var sentenceTerminators = regexp.MustCompile(`[.!?]+`)

// Sentences splits text on runs of '.', '!' and '?' and returns the
// non-empty fragments. Trailing terminators therefore never add a sentence.
func Sentences(text string) []string {
	var out []string
	for _, frag := range sentenceTerminators.Split(strings.TrimSpace(text), -1) {
		if strings.TrimSpace(frag) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(frag))
	}
	return out
}

// CountSentences returns len(Sentences(text)).
func CountSentences(text string) int {
	return len(Sentences(text))
}
