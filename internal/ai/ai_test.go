package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/api/option"

	"github.com/hyperjump/shohin/internal/config"
	"github.com/hyperjump/shohin/internal/models"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
	media  []Media
}

func (f *fakeGenerator) Name() string { return "fake" }

func (f *fakeGenerator) Supports(string) bool { return true }

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, media []Media) (string, error) {
	f.prompt, f.media = prompt, media
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("expected a deadline")
	}
	return f.text, f.err
}

const reply = `Sure, here it is.
BEGIN_ANALYSIS
Product Name: Sony WH-1000XM5
Category: Electronics
Subcategory: Headphones
Description: Wireless noise cancelling headphones.
Price Range: $350 - $400
Key Features:
- Noise cancelling
- 30 hour battery
Recommendations:
1. Bose QuietComfort Ultra
   - Price: $429
   - Key Similarities: ANC, comfort
END_ANALYSIS`

func TestAnalyzer_Analyze(t *testing.T) {
	gen := &fakeGenerator{text: reply}
	a := NewAnalyzer(gen, WithTimeout(time.Minute))

	result, err := a.Analyze(context.Background(), Media{MIME: "image/png", Data: []byte("png")})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.StatusSuccess || result.ProductName != "Sony WH-1000XM5" {
		t.Errorf("got %+v", result)
	}
	if len(result.Recommendations) != 1 || result.Recommendations[0].Price != "$429" {
		t.Errorf("recommendations = %+v", result.Recommendations)
	}
	if !strings.Contains(gen.prompt, "BEGIN_ANALYSIS") || len(gen.media) != 1 {
		t.Error("prompt and media should be forwarded")
	}
}

func TestAnalyzer_ProviderError(t *testing.T) {
	a := NewAnalyzer(&fakeGenerator{err: errors.New("quota exceeded")}, WithTimeout(time.Minute))
	result, err := a.Analyze(context.Background(), Media{MIME: "image/png"})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Provider != "fake" {
		t.Fatalf("expected ProviderError from fake, got %v", err)
	}
	if result.Status != models.StatusError || result.Message != "quota exceeded" {
		t.Errorf("got %+v", result)
	}
	data, _ := json.Marshal(result)
	if !strings.Contains(string(data), `"key_features":[]`) {
		t.Errorf("error result should encode empty lists: %s", data)
	}
}

func TestNewGenerator_NotConfigured(t *testing.T) {
	ctx := context.Background()
	for _, cfg := range []config.AIConfig{
		{Provider: ProviderNone},
		{Provider: ProviderGemini},
		{Provider: ProviderOpenAI},
	} {
		if _, err := NewGenerator(ctx, cfg); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("%s: expected ErrNotConfigured, got %v", cfg.Provider, err)
		}
	}
	if _, err := NewGenerator(ctx, config.AIConfig{Provider: "claude"}); err == nil || errors.Is(err, ErrNotConfigured) {
		t.Errorf("unknown provider should be a config error, got %v", err)
	}
}

func TestOpenAIGenerator(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"local",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Product Name: Mug"}}]}`)
	}))
	defer srv.Close()

	gen := NewOpenAIGenerator(srv.URL, "", "local")
	text, err := gen.Generate(context.Background(), "describe", []Media{{MIME: "image/jpeg", Data: []byte{1, 2}}})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Product Name: Mug" {
		t.Errorf("text = %q", text)
	}
	if body["model"] != "local" {
		t.Errorf("request body = %v", body)
	}

	if _, err := gen.Generate(context.Background(), "describe", []Media{{MIME: "video/mp4"}}); err == nil {
		t.Error("expected error for video media")
	}
	a := NewAnalyzer(gen)
	if !a.Supports("image/png") || a.Supports("video/mp4") {
		t.Error("openai analyzer should support images only")
	}
}

func TestVisionLabeler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"labelAnnotations":[
			{"description":"Headphones","score":0.97},
			{"description":"Audio equipment","score":0.91}]}]}`)
	}))
	defer srv.Close()

	l, err := NewVisionLabeler(context.Background(), "", 5,
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	labels, err := l.DetectLabels(context.Background(), []byte("img"))
	if err != nil {
		t.Fatal(err)
	}
	if len(labels) != 2 || labels[0].Description != "Headphones" || labels[0].Score != 0.97 {
		t.Errorf("labels = %+v", labels)
	}
}

func TestVisionLabeler_ResponseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`)
	}))
	defer srv.Close()

	l, err := NewVisionLabeler(context.Background(), "", 5,
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.DetectLabels(context.Background(), []byte("img"))
	if err == nil || !strings.Contains(err.Error(), "Bad image data.") {
		t.Errorf("expected provider message in error, got %v", err)
	}
}

func TestNewVisionLabeler_NotConfigured(t *testing.T) {
	if _, err := NewVisionLabeler(context.Background(), "", 5); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}
