// Package openRouter calls OpenRouter's OpenAI-compatible chat completions endpoint.
package openRouter

import (
	"context"
	"errors"
	"sync"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/customHttpClient"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api         openai.Client
	modelName   string
	temperature float64
	maxTokens   int64
}

var (
	logger       *logger_i.Logger
	once         sync.Once
	routerClient *llmClient
)

func GetOpenRouterClient(s config.LLMSettings, opts ...option.RequestOption) (llm.Provider, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openrouter")
		routerClient = newClient(s, opts...)
		logger.Info("OpenRouter client created", "model", routerClient.modelName)
	})
	if routerClient == nil {
		return nil, errors.New("openrouter client unavailable")
	}
	return routerClient, nil
}

func newClient(s config.LLMSettings, opts ...option.RequestOption) *llmClient {
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = config.OpenRouterBaseURL
	}
	model := s.Model
	if model == "" || model == config.GeminiModelName {
		model = config.OpenRouterModel
	}
	base := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(customHttpClient.NewClient(config.QueryJobTimeout)),
		option.WithHeader("HTTP-Referer", s.Referer),
		option.WithHeader("X-Title", s.AppTitle),
	}
	return &llmClient{
		api:         openai.NewClient(append(base, opts...)...),
		modelName:   model,
		temperature: float64(s.Temperature),
		maxTokens:   int64(s.MaxTokens),
	}
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		logger.WithTrace(ctx).Error("OpenRouter call failed", "error", err)
		return llm.Completion{}, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return llm.Completion{}, errors.New("openrouter returned no choices")
	}
	return llm.Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      c.modelName,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
