package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaHost = "http://localhost:11434"

type ollamaClient struct {
	host   string
	model  string
	client *http.Client
}

type chatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCall struct {
	Model    string     `json:"model"`
	Messages []chatTurn `json:"messages"`
	Stream   bool       `json:"stream"`
}

// chatEvent is one line of ollama's /api/chat output. In streaming mode the
// endpoint emits a sequence of these, the last one carrying Done.
type chatEvent struct {
	Message chatTurn `json:"message"`
	Done    bool     `json:"done"`
	Error   string   `json:"error"`
}

// NewOllamaClient talks to a locally running ollama instance. It serves both
// paths of the gateway the same way the hosted providers do.
func NewOllamaClient(opts Options) Client {
	host := strings.TrimRight(opts.OllamaHost, "/")
	if host == "" {
		host = defaultOllamaHost
	}

	return &ollamaClient{
		host:  host,
		model: opts.Model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

var _ StreamClient = (*ollamaClient)(nil)

func (c *ollamaClient) Generate(ctx context.Context, messages []Message) (string, error) {
	body, err := c.chat(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var event chatEvent
	if err := json.NewDecoder(body).Decode(&event); err != nil {
		return "", fmt.Errorf("decode ollama chat response: %w", err)
	}
	if event.Error != "" {
		return "", fmt.Errorf("ollama chat error: %s", event.Error)
	}

	return event.Message.Content, nil
}

func (c *ollamaClient) GenerateStream(ctx context.Context, messages []Message, fn func(string) error) error {
	body, err := c.chat(ctx, messages, true)
	if err != nil {
		return err
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	for {
		var event chatEvent
		if err := dec.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode ollama chat stream: %w", err)
		}
		if event.Error != "" {
			return fmt.Errorf("ollama chat error: %s", event.Error)
		}
		if event.Message.Content != "" {
			if err := fn(event.Message.Content); err != nil {
				return err
			}
		}
		if event.Done {
			return nil
		}
	}
}

// chat posts to /api/chat and returns the response body once the status line
// has been checked. The caller owns closing the body.
func (c *ollamaClient) chat(ctx context.Context, messages []Message, stream bool) (io.ReadCloser, error) {
	call := chatCall{
		Model:    c.model,
		Messages: make([]chatTurn, len(messages)),
		Stream:   stream,
	}
	for i, m := range messages {
		call.Messages[i] = chatTurn{Role: m.Role, Content: m.Content}
	}

	payload, err := json.Marshal(call)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create ollama chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call ollama chat API: %w", err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read ollama chat error body: %w", readErr)
		}
		if len(data) > 0 {
			return nil, fmt.Errorf("ollama chat API error: %s", string(data))
		}
		return nil, fmt.Errorf("ollama chat API returned status %s", resp.Status)
	}

	return resp.Body, nil
}
