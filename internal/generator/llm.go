package generator

import "context"

// Prompt is one chat exchange sent to the model
type Prompt struct {
	System string
	User   string
}

// LLMClient abstracts the text-generation backend so it can be swapped or faked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings configures a concrete LLMClient
type LLMSettings struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}
