package llm

import "context"

type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider generates a completion for a fully assembled prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (Completion, error)
	ModelName() string
}
