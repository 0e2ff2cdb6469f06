// Package rag decides whether a question should be answered with retrieved
// product context and, when it should, builds the augmented prompt. Every
// request is handled as an independent, stateless unit of work.
package rag

import "errors"

// ErrInvalidInput marks a request rejected before any downstream call.
var ErrInvalidInput = errors.New("invalid input")

// ErrRetrievalFailed marks a vector-store or embedding failure. The service
// recovers from it by answering without augmentation; it never reaches the
// caller.
var ErrRetrievalFailed = errors.New("retrieval failed")

// ErrGenerationFailed marks an LLM failure, the one failure class that
// propagates to the caller.
var ErrGenerationFailed = errors.New("generation failed")

// Question is the immutable per-request input.
type Question struct {
	Text string
	// Context is optional caller-supplied background, forwarded to the model
	// as a system message.
	Context string
	// SessionID is opaque; it is echoed back on the Answer and carries no
	// server-side meaning.
	SessionID string
}

// Answer is the final text returned to the caller.
type Answer struct {
	Text      string
	SessionID string
}
