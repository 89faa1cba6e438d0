package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIGenerator talks to an OpenAI-compatible chat completions endpoint, such as
// a llama.cpp server with a vision model.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates a client. An empty baseURL uses the OpenAI API; an empty apiKey
// is replaced by a placeholder since local servers ignore it.
func NewOpenAIGenerator(baseURL, apiKey, model string) *OpenAIGenerator {
	if apiKey == "" {
		apiKey = "dummy"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...), model: model}
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string { return ProviderOpenAI }

// Supports implements Generator. Chat completions accept image parts only.
func (g *OpenAIGenerator) Supports(mime string) bool { return strings.HasPrefix(mime, "image/") }

// Generate implements Generator. Only image media are accepted; they are sent as data URLs.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, media []Media) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(prompt)}
	for _, m := range media {
		if !g.Supports(m.MIME) {
			return "", fmt.Errorf("openai provider accepts images only, got %s", m.MIME)
		}
		url := "data:" + m.MIME + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}))
	}

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
		Model: openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned an empty response")
	}
	return completion.Choices[0].Message.Content, nil
}
