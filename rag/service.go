package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/platformai/qa-agent/llm"
)

// contextPreamble introduces the retrieved material to the model on the
// augmented path.
const contextPreamble = "You are a helpful assistant answering questions about PlatformAI and TokenAI. " +
	"Use the reference material below when it is relevant to the question. " +
	"If it does not cover the question, answer from general knowledge."

// Options configure the routing decision per deployment, not per request.
type Options struct {
	// Enabled gates the whole retrieval path. When false the service behaves
	// as if no question ever mentioned the watched products.
	Enabled bool
	// TopK is the number of chunks requested from the retriever.
	TopK int
}

// Service routes a question either straight to the LLM or through
// retrieve-then-compose-then-generate. All collaborators are injected once at
// construction and reused across requests; the service itself holds no
// per-request state.
type Service struct {
	matcher   *Matcher
	retriever Retriever
	composer  *Composer
	llm       llm.Client
	logger    *log.Logger
	opts      Options
}

func NewService(matcher *Matcher, retriever Retriever, composer *Composer, llmClient llm.Client, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if matcher == nil {
		matcher = NewMatcher()
	}
	if composer == nil {
		composer = NewComposer(0)
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}

	return &Service{
		matcher:   matcher,
		retriever: retriever,
		composer:  composer,
		llm:       llmClient,
		logger:    logger,
		opts:      opts,
	}
}

// Ask answers a single question. Retrieval problems degrade silently to an
// unaugmented answer; only LLM failures surface as errors.
func (s *Service) Ask(ctx context.Context, q Question) (Answer, error) {
	return s.ask(ctx, q, nil)
}

// AskStream behaves like Ask but delivers the answer incrementally through
// fn when the configured LLM supports streaming. Otherwise fn receives the
// whole answer once.
func (s *Service) AskStream(ctx context.Context, q Question, fn func(string) error) (Answer, error) {
	if fn == nil {
		return s.ask(ctx, q, nil)
	}
	return s.ask(ctx, q, fn)
}

func (s *Service) ask(ctx context.Context, q Question, streamFn func(string) error) (Answer, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return Answer{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if s.llm == nil {
		return Answer{}, fmt.Errorf("llm client is not configured")
	}

	composed := ""
	if s.opts.Enabled && s.matcher.Matches(text) {
		composed = s.retrieveContext(ctx, text)
	}

	messages := make([]llm.Message, 0, 3)
	if composed != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: contextPreamble + "\n\nReference material:\n\n" + composed,
		})
	}
	if callerContext := strings.TrimSpace(q.Context); callerContext != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: callerContext})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})

	answer, err := s.generate(ctx, messages, streamFn)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	return Answer{Text: strings.TrimSpace(answer), SessionID: q.SessionID}, nil
}

// retrieveContext runs the augmenting step and absorbs its failures: a
// retrieval error or an empty composition both mean "answer without context".
func (s *Service) retrieveContext(ctx context.Context, question string) string {
	if s.retriever == nil {
		return ""
	}

	chunks, err := s.retriever.Retrieve(ctx, question, s.opts.TopK)
	if err != nil {
		if errors.Is(err, ErrRetrievalFailed) {
			s.logger.Printf("retrieval failed, answering without context: %v", err)
			return ""
		}
		s.logger.Printf("unexpected retriever error, answering without context: %v", err)
		return ""
	}

	composed := s.composer.Compose(chunks)
	if composed == "" {
		s.logger.Printf("no qualifying context for question, answering without augmentation")
	}
	return composed
}

func (s *Service) generate(ctx context.Context, messages []llm.Message, streamFn func(string) error) (string, error) {
	if streamFn == nil {
		return s.llm.Generate(ctx, messages)
	}

	if streamClient, ok := s.llm.(llm.StreamClient); ok {
		var builder strings.Builder
		err := streamClient.GenerateStream(ctx, messages, func(chunk string) error {
			if chunk == "" {
				return nil
			}
			builder.WriteString(chunk)
			return streamFn(chunk)
		})
		if err != nil {
			return "", err
		}
		return builder.String(), nil
	}

	answer, err := s.llm.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if err := streamFn(answer); err != nil {
		return "", err
	}
	return answer, nil
}
