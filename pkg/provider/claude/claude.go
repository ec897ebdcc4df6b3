package claude

import (
	"context"
	"fmt"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/nogap/remedy/pkg/provider"
	"github.com/nogap/remedy/pkg/provider/common"
)

// DefaultMaxTokens bounds ordering responses; plans are small relative to
// code generation
const DefaultMaxTokens = 4096

// Provider implements the Claude ordering provider
type Provider struct {
	client      *anthropic.Client
	model       string
	temperature float64
}

// New creates a new Claude provider
func New(config provider.Config) (*Provider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set\n\n" +
			"To use Claude (Anthropic):\n" +
			"  1. Get an API key from: https://console.anthropic.com/settings/keys\n" +
			"  2. Export it as an environment variable:\n" +
			"     export ANTHROPIC_API_KEY=sk-ant-...\n" +
			"  3. Or set it in your shell profile (~/.bashrc, ~/.zshrc)\n\n" +
			"Alternatively, use OpenAI instead:\n" +
			"  --provider=openai")
	}

	model := config.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = 0.2 // Low temperature for deterministic-ish ordering
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Provider{
		client:      client,
		model:       model,
		temperature: temperature,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return "claude"
}

// Model returns the model identifier used for requests
func (p *Provider) Model() string {
	return p.model
}

// ProposeOrdering asks Claude to order the eligible candidates
func (p *Provider) ProposeOrdering(ctx context.Context, req provider.OrderingRequest) (*provider.OrderingResponse, error) {
	prompt := provider.BuildOrderingPrompt(req)

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.F(p.model),
		MaxTokens:   anthropic.F(int64(DefaultMaxTokens)),
		Temperature: anthropic.F(p.temperature),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		}),
	})
	if err != nil {
		return nil, enhanceAPIError(err)
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
		}
	}

	resp, err := provider.ParseOrderingResponse(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ordering response: %w", err)
	}

	// Sonnet 4 pricing: $3 per 1M input tokens, $15 per 1M output tokens
	inputCost := float64(message.Usage.InputTokens) * 3.0 / 1000000.0
	outputCost := float64(message.Usage.OutputTokens) * 15.0 / 1000000.0

	resp.TokensUsed = int(message.Usage.InputTokens + message.Usage.OutputTokens)
	resp.Cost = inputCost + outputCost

	return resp, nil
}

// enhanceAPIError adds helpful context to Claude API errors
func enhanceAPIError(err error) error {
	return common.EnhanceAPIError(err, common.ProviderErrorContext{
		ProviderName:      "Anthropic",
		APIKeysURL:        "https://console.anthropic.com/settings/keys",
		StatusPageURL:     "https://status.anthropic.com",
		AlternateProvider: "openai",
	})
}
