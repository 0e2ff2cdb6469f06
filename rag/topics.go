package rag

import "strings"

// defaultVariants are the known orthographic forms of the two watched
// product names: fused, space-separated, and dotted. Matching happens on
// case-folded, whitespace-collapsed text, so the list stays small.
var defaultVariants = []string{
	"platformai",
	"platform ai",
	"platform.ai",
	"tokenai",
	"token ai",
	"token.ai",
}

// Matcher reports whether a question mentions PlatformAI or TokenAI. It is a
// plain substring test: a variant embedded in a longer word still matches,
// which keeps parity with the routing behavior the gateway replaces.
type Matcher struct {
	variants []string
}

// NewMatcher builds a Matcher over the built-in variants plus any extras
// from configuration. Extras are normalized the same way as input text.
func NewMatcher(extra ...string) *Matcher {
	variants := make([]string, 0, len(defaultVariants)+len(extra))
	variants = append(variants, defaultVariants...)
	for _, v := range extra {
		if normalized := normalize(v); normalized != "" {
			variants = append(variants, normalized)
		}
	}
	return &Matcher{variants: variants}
}

// Matches is pure: it depends only on the given text.
func (m *Matcher) Matches(text string) bool {
	normalized := normalize(text)
	if normalized == "" {
		return false
	}
	for _, variant := range m.variants {
		if strings.Contains(normalized, variant) {
			return true
		}
	}
	return false
}

// normalize case-folds and collapses runs of whitespace to single spaces, so
// "Platform   AI" and "platform\nai" both read as "platform ai".
func normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
