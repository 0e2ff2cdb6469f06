package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherVariants(t *testing.T) {
	m := NewMatcher()

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"fused lowercase", "how do I get started with platformai?", true},
		{"fused mixed case", "How do I get started with PlatformAI?", true},
		{"space separated", "is platform ai free?", true},
		{"uppercase spaced", "PLATFORM AI pricing", true},
		{"dotted", "Tell me about platform.ai pricing", true},
		{"token fused", "TokenAI quickstart", true},
		{"token spaced", "token ai limits", true},
		{"token dotted", "token.ai docs", true},
		{"extra whitespace", "platform   ai", true},
		{"newline between words", "platform\nai", true},
		{"unrelated", "What is the capital of France?", false},
		{"empty", "", false},
		{"blank", "   \n\t ", false},
		{"dot then space does not match", "platform. ai", false},
		{"hyphenated does not match", "platform-ai", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, m.Matches(tc.text), "text: %q", tc.text)
		})
	}
}

// Variants embedded in longer words still match: the matcher is a plain
// substring test with no word-boundary checks.
func TestMatcherAcceptsEmbeddedVariant(t *testing.T) {
	m := NewMatcher()

	assert.True(t, m.Matches("the tokenaiser broke"))
	assert.True(t, m.Matches("multiplatformai tooling"))
}

func TestMatcherExtraKeywords(t *testing.T) {
	m := NewMatcher("Acme  Cloud")

	assert.True(t, m.Matches("does ACME cloud support SSO?"))
	assert.False(t, m.Matches("does acme support SSO?"))
}

func TestMatcherIsPure(t *testing.T) {
	m := NewMatcher()

	for i := 0; i < 3; i++ {
		assert.True(t, m.Matches("platformai"))
		assert.False(t, m.Matches("something else"))
	}
}
