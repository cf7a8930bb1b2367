package ai

import "context"

// CompletionInput carries the prompt forwarded to the external completion API.
type CompletionInput struct {
	Prompt string
	// System primes the assistant; empty uses the provider default.
	System string
}

// CompletionResult is the text produced by the external completion API.
type CompletionResult struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Completer describes an external text-completion service. The service is a
// collaborator invoked from a request handler only; it never touches
// realtime state.
type Completer interface {
	Complete(ctx context.Context, input CompletionInput) (CompletionResult, error)
}
