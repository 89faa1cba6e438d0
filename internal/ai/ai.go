// Package ai talks to the generative and label detection providers used for product analysis.
package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/shohin/internal/config"
)

// ErrNotConfigured is returned when a provider is requested but has no credentials.
var ErrNotConfigured = errors.New("provider not configured")

// ProviderError wraps a failure reported by an AI provider. Its message is the provider's.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string { return e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// Media is an inline image or video sent along with a prompt.
type Media struct {
	MIME string
	Data []byte
}

// Generator produces a text completion for a prompt and optional media.
type Generator interface {
	Generate(ctx context.Context, prompt string, media []Media) (string, error)
	Name() string
	// Supports reports whether media of the given MIME type can be sent to Generate.
	Supports(mime string) bool
}

// Provider names accepted in ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// NewGenerator builds the generator selected by cfg.Provider.
// It returns ErrNotConfigured when the provider is "none" or lacks credentials.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini: %w (set ai.gemini_api_key or GEMINI_API_KEY)", ErrNotConfigured)
		}
		return NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderOpenAI:
		if cfg.OpenAIBaseURL == "" && cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: %w (set ai.openai_base_url or OPENAI_API_KEY)", ErrNotConfigured)
		}
		return NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case ProviderNone, "":
		return nil, ErrNotConfigured
	default:
		return nil, fmt.Errorf("unknown ai provider: %s (supported: gemini, openai, none)", cfg.Provider)
	}
}
