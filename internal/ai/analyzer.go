package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/analysis"
	"github.com/hyperjump/shohin/internal/models"
)

// Analyzer asks a generator for a product analysis of an image or video and parses the reply.
type Analyzer struct {
	gen     Generator
	prompt  string
	timeout time.Duration
	logger  *zap.Logger
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) AnalyzerOption {
	return func(a *Analyzer) { a.logger = l }
}

// WithTimeout bounds each provider call. Zero leaves the caller's deadline alone.
func WithTimeout(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.timeout = d }
}

// WithPrompt replaces the default product analysis prompt.
func WithPrompt(p string) AnalyzerOption {
	return func(a *Analyzer) { a.prompt = p }
}

// NewAnalyzer creates an analyzer backed by gen.
func NewAnalyzer(gen Generator, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{gen: gen, prompt: analysis.ProductPrompt, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Provider returns the name of the underlying generator.
func (a *Analyzer) Provider() string { return a.gen.Name() }

// Supports reports whether the underlying generator accepts media of the given MIME type.
func (a *Analyzer) Supports(mime string) bool { return a.gen.Supports(mime) }

// Analyze returns the parsed analysis with status success. When the provider fails, the result
// has status error and the provider's message, and the error is returned as well.
func (a *Analyzer) Analyze(ctx context.Context, m Media) (*models.AnalysisResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := a.gen.Generate(ctx, a.prompt, []Media{m})
	if err != nil {
		a.logger.Error("Error in product analysis", zap.String("provider", a.gen.Name()), zap.Error(err))
		result := models.NewAnalysisResult()
		result.Status = models.StatusError
		result.Message = err.Error()
		return result, &ProviderError{Provider: a.gen.Name(), Err: err}
	}

	result := analysis.Parse(text)
	result.Status = models.StatusSuccess
	a.logger.Debug("Product analysed",
		zap.String("provider", a.gen.Name()),
		zap.String("product", result.ProductName),
		zap.Int("recommendations", len(result.Recommendations)),
		zap.Duration("took", time.Since(start)))
	return result, nil
}

// ParseText parses a saved model response, for the parse CLI command.
func ParseText(text string) *models.AnalysisResult {
	result := analysis.Parse(text)
	result.Status = models.StatusSuccess
	return result
}
