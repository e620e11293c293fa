// Package llm talks to OpenAI-compatible chat completion APIs.
package llm

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call. Empty Model and zero MaxTokens take
// the client defaults.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
