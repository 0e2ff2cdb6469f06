package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformai/qa-agent/vector"
)

type stubSearcher struct {
	results []vector.Result
	err     error
	lastK   int
	calls   int
}

func (s *stubSearcher) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	s.calls++
	s.lastK = k
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestStoreRetrieverWrapsFailures(t *testing.T) {
	r := NewStoreRetriever(&stubSearcher{err: errors.New("connection refused")})

	_, err := r.Retrieve(context.Background(), "question", 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStoreRetrieverEmptyResultIsNotAnError(t *testing.T) {
	r := NewStoreRetriever(&stubSearcher{results: []vector.Result{}})

	results, err := r.Retrieve(context.Background(), "question", 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreRetrieverDefaultsK(t *testing.T) {
	store := &stubSearcher{}
	r := NewStoreRetriever(store)

	_, err := r.Retrieve(context.Background(), "question", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultTopK, store.lastK)
}

func TestStoreRetrieverWithoutStore(t *testing.T) {
	r := NewStoreRetriever(nil)

	_, err := r.Retrieve(context.Background(), "question", 3)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}
