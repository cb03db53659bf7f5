package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, vLLM, Ollama, LiteLLM).
type OpenAIProvider struct {
	client    *openai.Client
	endpoint  string
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(cfg *Config, logger *zap.Logger) (*OpenAIProvider, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	if cfg.RequestTimeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &OpenAIProvider{
		client:    openai.NewClientWithConfig(clientConfig),
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("openai"),
	}, nil
}

// Complete sends the system and user messages as one chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, pc PromptContext) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: pc.System},
		{Role: openai.ChatMessageRoleUser, Content: pc.Prompt},
	}

	maxTokens := pc.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	p.logger.Debug("LLM request",
		zap.String("component", pc.Component),
		zap.String("model", p.model),
		zap.Int("prompt_len", len(pc.Prompt)),
		zap.Float64("temperature", pc.Temperature))

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: float32(pc.Temperature),
		MaxTokens:   maxTokens,
		// Reasoning output would be mixed into the query block.
		ChatTemplateKwargs: map[string]any{
			"enable_thinking": false,
		},
	})
	if err != nil {
		p.logger.Warn("LLM request failed",
			zap.String("component", pc.Component),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		llmErr := ClassifyError(err)
		llmErr.Model = p.model
		return "", llmErr
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeEmpty, "no choices in response", true, nil)
	}

	p.logger.Debug("LLM request completed",
		zap.String("component", pc.Component),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Endpoint returns the configured endpoint.
func (p *OpenAIProvider) Endpoint() string {
	return p.endpoint
}

var _ Provider = (*OpenAIProvider)(nil)
