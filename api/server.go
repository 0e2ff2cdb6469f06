// Package api exposes the HTTP boundary of the gateway: question answering,
// vector-store maintenance, and health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/platformai/qa-agent/config"
	"github.com/platformai/qa-agent/rag"
	"github.com/platformai/qa-agent/vector"
)

// AskService is the slice of the rag service the API needs.
type AskService interface {
	Ask(ctx context.Context, q rag.Question) (rag.Answer, error)
	AskStream(ctx context.Context, q rag.Question, fn func(string) error) (rag.Answer, error)
}

// Server wires HTTP requests to the rag service and the vector store. The
// collaborators are constructed once at startup and shared by all requests.
type Server struct {
	cfg     config.Config
	qa      AskService
	store   vector.Store
	logger  *log.Logger
	handler http.Handler
}

type askRequest struct {
	Question  string `json:"question"`
	Context   string `json:"context,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream,omitempty"`
}

type askResponse struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id,omitempty"`
}

type vectorAddRequest struct {
	IDs       []string         `json:"ids"`
	Texts     []string         `json:"texts"`
	Metadatas []map[string]any `json:"metadatas,omitempty"`
}

type vectorSearchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

type vectorSearchResult struct {
	ID       string         `json:"id"`
	Document string         `json:"document"`
	Metadata map[string]any `json:"metadata"`
	Distance float64        `json:"distance"`
}

type vectorSearchResponse struct {
	Results []vectorSearchResult `json:"results"`
}

type messageResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(cfg config.Config, qa AskService, store vector.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{cfg: cfg, qa: qa, store: store, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/api/qa/ask", s.handleAsk).Methods(http.MethodPost)
	router.HandleFunc("/api/vector/add", s.handleVectorAdd).Methods(http.MethodPost)
	router.HandleFunc("/api/vector/search", s.handleVectorSearch).Methods(http.MethodPost)
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: s.cfg.CORS.AllowCredentials,
	})

	return c.Handler(router)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	question := rag.Question{
		Text:      strings.TrimSpace(req.Question),
		Context:   req.Context,
		SessionID: req.SessionID,
	}

	if req.Stream {
		s.streamAsk(w, r, question)
		return
	}

	answer, err := s.qa.Ask(r.Context(), question)
	if err != nil {
		s.writeAskError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, askResponse{Answer: answer.Text, SessionID: answer.SessionID})
}

// streamAsk delivers the answer as server-sent events, one data line per
// model delta, closing with a [DONE] marker.
func (s *Server) streamAsk(w http.ResponseWriter, r *http.Request, question rag.Question) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming is not supported by this connection"))
		return
	}

	// Validate before committing to the event-stream content type so input
	// errors still produce a JSON 400.
	if question.Text == "" {
		s.writeAskError(w, fmt.Errorf("%w: question is required", rag.ErrInvalidInput))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	_, err := s.qa.AskStream(r.Context(), question, func(chunk string) error {
		payload, marshalErr := json.Marshal(chunk)
		if marshalErr != nil {
			return marshalErr
		}
		if _, writeErr := fmt.Fprintf(w, "data: %s\n\n", payload); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; report the failure in-stream.
		s.logger.Printf("stream ask failed: %v", err)
		fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
		flusher.Flush()
		return
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func (s *Server) handleVectorAdd(w http.ResponseWriter, r *http.Request) {
	var req vectorAddRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if len(req.IDs) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("ids are required"))
		return
	}
	if len(req.IDs) != len(req.Texts) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("ids and texts must have the same length"))
		return
	}
	if req.Metadatas != nil && len(req.Metadatas) != len(req.IDs) {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("metadatas must match ids in length"))
		return
	}

	seen := make(map[string]struct{}, len(req.IDs))
	for _, id := range req.IDs {
		if strings.TrimSpace(id) == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("ids must be non-empty"))
			return
		}
		if _, dup := seen[id]; dup {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("duplicate id in request: %s", id))
			return
		}
		seen[id] = struct{}{}
	}

	if err := s.store.Add(r.Context(), req.IDs, req.Texts, req.Metadatas); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("add vectors: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok", Count: len(req.IDs)})
}

func (s *Server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	var req vectorSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	if req.K < 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("k must be positive"))
		return
	}

	results, err := s.store.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("vector search: %w", err))
		return
	}

	resp := vectorSearchResponse{Results: make([]vectorSearchResult, len(results))}
	for i, result := range results {
		resp.Results[i] = vectorSearchResult{
			ID:       result.ID,
			Document: result.Document,
			Metadata: result.Metadata,
			Distance: result.Distance,
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:   "ok",
		Provider: s.cfg.Provider,
		Model:    s.cfg.Model,
	})
}

func (s *Server) writeAskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rag.ErrInvalidInput):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, rag.ErrGenerationFailed):
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Printf("encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("api error (%d): %v", status, err)
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
