package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiGenerator sends prompts with inline media to the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client for model.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return ProviderGemini }

// Supports implements Generator. Gemini takes images and video inline.
func (g *GeminiGenerator) Supports(string) bool { return true }

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, media []Media) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, m := range media {
		parts = append(parts, genai.NewPartFromBytes(m.Data, m.MIME))
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}
