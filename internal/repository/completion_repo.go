package repository

import "context"

// CompletionClient sends a prompt to a text-completion model and returns
// the generated text.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
