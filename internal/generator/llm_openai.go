package generator

import (
	"context"
	"errors"

	"github.com/nugget-pipeline/internal/apperrors"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient with the openai-go chat completions API.
// BaseURL points it at any OpenAI-compatible gateway.
type OpenAILLM struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenAILLM builds a client from settings
func NewOpenAILLM(cfg LLMSettings) (*OpenAILLM, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing; set OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("openai model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAILLM{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends the system and user messages and returns the first choice
func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(o.temperature),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", apperrors.Generation("chat completion", apiErr.StatusCode, err)
		}
		return "", apperrors.Generation("chat completion", 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.Generation("chat completion", 0, errors.New("empty choices"))
	}
	return resp.Choices[0].Message.Content, nil
}
