package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/nogap/remedy/pkg/provider"
	"github.com/nogap/remedy/pkg/provider/common"
	"github.com/sashabaranov/go-openai"
)

// DefaultMaxTokens is the default maximum tokens for ordering responses
const DefaultMaxTokens = 4096

// Provider implements the OpenAI ordering provider
type Provider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// New creates a new OpenAI provider
func New(config provider.Config) (*Provider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set\n\n" +
			"To use OpenAI:\n" +
			"  1. Get an API key from: https://platform.openai.com/api-keys\n" +
			"  2. Export it as an environment variable:\n" +
			"     export OPENAI_API_KEY=sk-...\n" +
			"  3. Or set it in your shell profile (~/.bashrc, ~/.zshrc)\n\n" +
			"Alternatively, use Claude instead:\n" +
			"  --provider=claude")
	}

	model := config.Model
	if model == "" {
		model = openai.GPT4
	}

	temperature := float32(config.Temperature)
	if temperature == 0 {
		temperature = 0.2
	}

	clientConfig := openai.DefaultConfig(apiKey)

	// Support custom base URLs for OpenAI-compatible APIs (Groq, Ollama, etc.)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &Provider{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "openai"
}

// Model returns the model identifier used for requests
func (p *Provider) Model() string {
	return p.model
}

// ProposeOrdering asks OpenAI to order the eligible candidates
func (p *Provider) ProposeOrdering(ctx context.Context, req provider.OrderingRequest) (*provider.OrderingResponse, error) {
	prompt := provider.BuildOrderingPrompt(req)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   DefaultMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return nil, enhanceAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI returned no choices")
	}

	ordering, err := provider.ParseOrderingResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ordering response: %w", err)
	}

	// GPT-4 pricing: $30/$60 per 1M tokens
	inputCost := float64(resp.Usage.PromptTokens) * 30.0 / 1000000.0
	outputCost := float64(resp.Usage.CompletionTokens) * 60.0 / 1000000.0

	ordering.TokensUsed = resp.Usage.TotalTokens
	ordering.Cost = inputCost + outputCost

	return ordering, nil
}

// enhanceAPIError adds helpful context to OpenAI API errors
func enhanceAPIError(err error) error {
	return common.EnhanceAPIError(err, common.ProviderErrorContext{
		ProviderName:      "OpenAI",
		APIKeysURL:        "https://platform.openai.com/api-keys",
		StatusPageURL:     "https://status.openai.com",
		BillingURL:        "https://platform.openai.com/account/billing",
		AlternateProvider: "claude",
	})
}
