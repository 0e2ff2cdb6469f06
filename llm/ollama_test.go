package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var gotCall chatCall
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCall))
		_ = json.NewEncoder(w).Encode(chatEvent{
			Message: chatTurn{Role: RoleAssistant, Content: "pong"},
			Done:    true,
		})
	}))
	defer server.Close()

	client := NewOllamaClient(Options{Model: "llama3.1:8b", OllamaHost: server.URL})

	answer, err := client.Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "ping"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pong", answer)
	assert.Equal(t, "llama3.1:8b", gotCall.Model)
	assert.False(t, gotCall.Stream)
	require.Len(t, gotCall.Messages, 1)
	assert.Equal(t, "ping", gotCall.Messages[0].Content)
}

func TestOllamaGenerateServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	client := NewOllamaClient(Options{Model: "missing", OllamaHost: server.URL})

	_, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestOllamaGenerateBodyError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(chatEvent{Error: "context window exceeded"})
	}))
	defer server.Close()

	client := NewOllamaClient(Options{Model: "llama3.1:8b", OllamaHost: server.URL})

	_, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context window exceeded")
}

func TestOllamaGenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var gotCall chatCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotCall))
		require.True(t, gotCall.Stream)

		enc := json.NewEncoder(w)
		_ = enc.Encode(chatEvent{Message: chatTurn{Content: "Hel"}})
		_ = enc.Encode(chatEvent{Message: chatTurn{Content: "lo"}})
		_ = enc.Encode(chatEvent{Done: true})
	}))
	defer server.Close()

	client := NewOllamaClient(Options{Model: "llama3.1:8b", OllamaHost: server.URL})
	streamClient, ok := client.(StreamClient)
	require.True(t, ok)

	var got string
	err := streamClient.GenerateStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, func(chunk string) error {
		got += chunk
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", got)
}
