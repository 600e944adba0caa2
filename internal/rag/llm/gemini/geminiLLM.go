package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/DocMind/internal/config"
	"github.com/akolanti/DocMind/internal/rag/llm"
	"github.com/akolanti/DocMind/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client      *genai.Client
	modelName   string
	temperature float32
	maxTokens   int32
}

var logger *logger_i.Logger
var geminiClient *llmClient
var initErr error
var once sync.Once

func GetGeminiClient(ctx context.Context, s config.LLMSettings) (llm.Provider, error) {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, s)
	})
	if geminiClient == nil {
		return nil, fmt.Errorf("gemini client unavailable: %w", initErr)
	}
	return geminiClient, nil
}

func newGeminiClient(ctx context.Context, s config.LLMSettings) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: s.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		initErr = err
		return
	}
	model := s.Model
	if model == "" {
		model = config.GeminiModelName
	}
	geminiClient = &llmClient{
		client:      c,
		modelName:   model,
		temperature: s.Temperature,
		maxTokens:   int32(s.MaxTokens),
	}
	logger.Info("Gemini client created", "model", model)
}

func (c *llmClient) ModelName() string {
	return c.modelName
}

func (c *llmClient) Generate(ctx context.Context, prompt string) (llm.Completion, error) {
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: config.ModelContext}}},
		Temperature:       genai.Ptr(c.temperature),
		MaxOutputTokens:   c.maxTokens,
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		logger.WithTrace(ctx).Error("Gemini generation failed", "error", err)
		return llm.Completion{}, err
	}
	text := result.Text()
	if text == "" {
		return llm.Completion{}, errors.New("gemini returned an empty completion")
	}

	completion := llm.Completion{Text: text, Model: c.modelName}
	if result.UsageMetadata != nil {
		completion.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return completion, nil
}
