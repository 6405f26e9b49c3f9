package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// TextGenerator is the single contract point to the external model: prompt
// in, free text out. The orchestrator never talks to a vendor SDK directly,
// which is what makes the incomplete-profile short-circuit verifiable in
// tests.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// LLMService implements TextGenerator on top of langchaingo's googleai
// backend.
type LLMService struct {
	client  llms.Model
	timeout time.Duration
}

func NewLLMService(ctx context.Context, apiKey, model string, timeout time.Duration) (*LLMService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm api key is empty")
	}
	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	return &LLMService{client: llm, timeout: timeout}, nil
}

// Generate makes exactly one attempt against the model with a bounded token
// budget. Retry policy belongs to callers, not here.
func (s *LLMService) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.client, prompt,
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", err
	}
	return resp, nil
}
