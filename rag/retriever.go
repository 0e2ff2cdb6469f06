package rag

import (
	"context"
	"fmt"

	"github.com/platformai/qa-agent/vector"
)

const defaultTopK = 5

// Retriever returns the k most relevant stored chunks for a question,
// best-first. An unreachable store or a failed embedding surfaces as
// ErrRetrievalFailed; a reachable store with nothing relevant returns an
// empty slice and no error.
type Retriever interface {
	Retrieve(ctx context.Context, question string, k int) ([]vector.Result, error)
}

// Searcher is the slice of the vector store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vector.Result, error)
}

// StoreRetriever adapts a vector store into a Retriever, folding every
// external failure into ErrRetrievalFailed so the service can fall back.
type StoreRetriever struct {
	store Searcher
}

func NewStoreRetriever(store Searcher) *StoreRetriever {
	return &StoreRetriever{store: store}
}

func (r *StoreRetriever) Retrieve(ctx context.Context, question string, k int) ([]vector.Result, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: vector store is not configured", ErrRetrievalFailed)
	}
	if k <= 0 {
		k = defaultTopK
	}

	results, err := r.store.Search(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	return results, nil
}

var _ Retriever = (*StoreRetriever)(nil)
