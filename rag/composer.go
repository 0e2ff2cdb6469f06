package rag

import (
	"strings"

	"github.com/platformai/qa-agent/vector"
)

const (
	defaultContextBudget = 6000

	// chunkSeparator delimits chunk boundaries in the composed context so
	// the model can tell retrieved passages apart.
	chunkSeparator = "\n\n---\n\n"
)

// Composer concatenates retrieved chunks into one bounded context string.
// Chunks arrive best-first and are kept in that order; when the budget runs
// out the remaining (lower-relevance) chunks are dropped whole, never cut
// mid-chunk.
type Composer struct {
	budget int
}

func NewComposer(budget int) *Composer {
	if budget <= 0 {
		budget = defaultContextBudget
	}
	return &Composer{budget: budget}
}

// Compose returns the delimited concatenation of chunk texts, or the empty
// string when no chunk fits. Chunk text is included verbatim aside from
// trimming surrounding whitespace.
func (c *Composer) Compose(chunks []vector.Result) string {
	if len(chunks) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, chunk := range chunks {
		text := strings.TrimSpace(chunk.Document)
		if text == "" {
			continue
		}

		needed := len(text)
		if sb.Len() > 0 {
			needed += len(chunkSeparator)
		}
		if sb.Len()+needed > c.budget {
			break
		}

		if sb.Len() > 0 {
			sb.WriteString(chunkSeparator)
		}
		sb.WriteString(text)
	}

	return sb.String()
}
