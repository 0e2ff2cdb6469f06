// Package vector provides the persistent similarity-search store backing the
// retrieval-augmented path of the gateway.
package vector

import "context"

// Result is a single similarity-search hit. Lower distance means more
// relevant; stores return hits best-first.
type Result struct {
	ID       string
	Document string
	Metadata map[string]any
	Distance float64
}

// Store is the capability the gateway needs from a vector database: write
// text with metadata, and fetch the k nearest chunks for a query. Embedding
// happens inside the store so callers only deal in text.
type Store interface {
	Add(ctx context.Context, ids []string, texts []string, metadatas []map[string]any) error
	Search(ctx context.Context, query string, k int) ([]Result, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}
