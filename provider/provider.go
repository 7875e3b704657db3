package provider

import (
	"context"
	"errors"

	"github.com/trendpulse/pulsed/config"
	openai_provider "github.com/trendpulse/pulsed/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface chat-completion implementations must satisfy.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// NewProvider creates a chat-completion client from configuration. An empty
// API key is reported as an error; the prediction engine treats that as the
// signal to use the rule-based fallback instead.
func NewProvider(client Client, cfg config.OpenAIConfig) (Provider, error) {
	switch client {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		return openai_provider.NewOpenAIClient(
			cfg.APIKey,
			cfg.CompletionModel,
			cfg.Temperature,
			cfg.MaxTokens,
			cfg.Timeout,
		), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
