package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformai/qa-agent/config"
	"github.com/platformai/qa-agent/rag"
	"github.com/platformai/qa-agent/vector"
)

type stubAskService struct {
	answer rag.Answer
	err    error
	asked  []rag.Question
	deltas []string
}

func (s *stubAskService) Ask(ctx context.Context, q rag.Question) (rag.Answer, error) {
	s.asked = append(s.asked, q)
	if s.err != nil {
		return rag.Answer{}, s.err
	}
	return s.answer, nil
}

func (s *stubAskService) AskStream(ctx context.Context, q rag.Question, fn func(string) error) (rag.Answer, error) {
	s.asked = append(s.asked, q)
	if s.err != nil {
		return rag.Answer{}, s.err
	}
	for _, delta := range s.deltas {
		if err := fn(delta); err != nil {
			return rag.Answer{}, err
		}
	}
	return s.answer, nil
}

type stubVectorStore struct {
	results   []vector.Result
	searchErr error
	addErr    error

	addedIDs   []string
	addedTexts []string
	lastK      int
}

func (s *stubVectorStore) Add(ctx context.Context, ids []string, texts []string, metadatas []map[string]any) error {
	if s.addErr != nil {
		return s.addErr
	}
	s.addedIDs = append(s.addedIDs, ids...)
	s.addedTexts = append(s.addedTexts, texts...)
	return nil
}

func (s *stubVectorStore) Search(ctx context.Context, query string, k int) ([]vector.Result, error) {
	s.lastK = k
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results, nil
}

func (s *stubVectorStore) Count(ctx context.Context) (int64, error) { return int64(len(s.results)), nil }
func (s *stubVectorStore) Clear(ctx context.Context) error          { return nil }

var _ vector.Store = (*stubVectorStore)(nil)

func newTestServer(qa *stubAskService, store *stubVectorStore) *Server {
	cfg := config.Config{
		Provider: config.ProviderDashScope,
		Model:    "qwen2.5-7b-instruct",
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173"},
		},
	}
	return New(cfg, qa, store, log.New(io.Discard, "", 0))
}

func postJSON(t *testing.T, srv *Server, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestAskEndpoint(t *testing.T) {
	qa := &stubAskService{answer: rag.Answer{Text: "An answer.", SessionID: "s1"}}
	srv := newTestServer(qa, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/qa/ask", map[string]any{
		"question":   "How do I get started with TokenAI?",
		"session_id": "s1",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "An answer.", resp.Answer)
	assert.Equal(t, "s1", resp.SessionID)

	require.Len(t, qa.asked, 1)
	assert.Equal(t, "How do I get started with TokenAI?", qa.asked[0].Text)
	assert.Equal(t, "s1", qa.asked[0].SessionID)
}

func TestAskEndpointRejectsEmptyQuestion(t *testing.T) {
	qa := &stubAskService{err: fmt.Errorf("%w: question is required", rag.ErrInvalidInput)}
	srv := newTestServer(qa, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/qa/ask", map[string]any{"question": "   "})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAskEndpointMapsGenerationFailure(t *testing.T) {
	qa := &stubAskService{err: fmt.Errorf("%w: provider timeout", rag.ErrGenerationFailed)}
	srv := newTestServer(qa, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/qa/ask", map[string]any{"question": "hello"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAskEndpointStreams(t *testing.T) {
	qa := &stubAskService{answer: rag.Answer{Text: "Hello"}, deltas: []string{"Hel", "lo"}}
	srv := newTestServer(qa, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/qa/ask", map[string]any{"question": "hi", "stream": true})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `data: "Hel"`)
	assert.Contains(t, body, `data: "lo"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]"))
}

func TestVectorAddEndpoint(t *testing.T) {
	store := &stubVectorStore{}
	srv := newTestServer(&stubAskService{}, store)

	rec := postJSON(t, srv, "/api/vector/add", map[string]any{
		"ids":       []string{"a", "b"},
		"texts":     []string{"first", "second"},
		"metadatas": []map[string]any{{"chunk": 0}, {"chunk": 1}},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"a", "b"}, store.addedIDs)
	assert.Equal(t, []string{"first", "second"}, store.addedTexts)
}

func TestVectorAddValidation(t *testing.T) {
	srv := newTestServer(&stubAskService{}, &stubVectorStore{})

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing ids", map[string]any{"texts": []string{"x"}}},
		{"length mismatch", map[string]any{"ids": []string{"a"}, "texts": []string{"x", "y"}}},
		{"metadata mismatch", map[string]any{"ids": []string{"a"}, "texts": []string{"x"}, "metadatas": []map[string]any{{}, {}}}},
		{"duplicate ids", map[string]any{"ids": []string{"a", "a"}, "texts": []string{"x", "y"}}},
		{"blank id", map[string]any{"ids": []string{"a", " "}, "texts": []string{"x", "y"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, srv, "/api/vector/add", tc.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestVectorSearchEndpoint(t *testing.T) {
	store := &stubVectorStore{results: []vector.Result{
		{ID: "a", Document: "doc a", Metadata: map[string]any{"source": "url"}, Distance: 0.12},
		{ID: "b", Document: "doc b", Distance: 0.48},
	}}
	srv := newTestServer(&stubAskService{}, store)

	rec := postJSON(t, srv, "/api/vector/search", map[string]any{"query": "platformai", "k": 2})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp vectorSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a", resp.Results[0].ID)
	assert.Equal(t, "doc a", resp.Results[0].Document)
	assert.Equal(t, 0.12, resp.Results[0].Distance)
	assert.Equal(t, 2, store.lastK)
}

func TestVectorSearchValidation(t *testing.T) {
	srv := newTestServer(&stubAskService{}, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/vector/search", map[string]any{"query": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, "/api/vector/search", map[string]any{"query": "x", "k": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVectorSearchStoreError(t *testing.T) {
	store := &stubVectorStore{searchErr: errors.New("boom")}
	srv := newTestServer(&stubAskService{}, store)

	rec := postJSON(t, srv, "/api/vector/search", map[string]any{"query": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubAskService{}, &stubVectorStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, config.ProviderDashScope, resp.Provider)
	assert.Equal(t, "qwen2.5-7b-instruct", resp.Model)
}

func TestUnknownFieldRejected(t *testing.T) {
	srv := newTestServer(&stubAskService{}, &stubVectorStore{})

	rec := postJSON(t, srv, "/api/qa/ask", map[string]any{"question": "x", "bogus": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
