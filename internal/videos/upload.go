package videos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/ai"
	"github.com/hyperjump/shohin/internal/classify"
	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/media"
	"github.com/hyperjump/shohin/internal/metrics"
	"github.com/hyperjump/shohin/internal/models"
)

// UploadRequest is a product upload: one to MaxFiles files plus a title and optional caption.
type UploadRequest struct {
	Title   string
	Caption string
	Files   []media.Upload
}

// UploadResult is the outcome of a successful upload.
type UploadResult struct {
	Message     string
	ProductInfo *models.ProductInfo
}

func (s *Service) validate(ctx context.Context, files []media.Upload) ([]*media.Checked, error) {
	checked, err := s.validator.ValidateAll(ctx, files)
	var verr *media.ValidationError
	if errors.As(err, &verr) {
		metrics.UploadsRejected.WithLabelValues(verr.Reason).Inc()
		s.logger.Info("Upload rejected", zap.String("file", verr.Filename), zap.String("reason", verr.Reason))
	}
	return checked, err
}

// Upload validates the files, then answers with the matching catalog video or a record
// synthesized from the title and, when configured, the analysis of the first file.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, &media.ValidationError{Reason: "Title is required"}
	}
	checked, err := s.validate(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	category := s.classifier.Classify(title)

	if v := s.matchCatalog(ctx, title); v != nil {
		metrics.CatalogMatches.Inc()
		return &UploadResult{Message: messageCatalogMatch, ProductInfo: &models.ProductInfo{Video: *v}}, nil
	}

	info := synthesize(title, req.Caption, category)
	first := checked[0]
	if s.analyzer != nil && !s.analyzer.Supports(first.MIME) {
		s.logger.Debug("Analyzer does not take this media, keeping synthesized record",
			zap.String("provider", s.analyzer.Provider()), zap.String("mime", first.MIME))
	} else if s.analyzer != nil {
		result, err := s.analyze(ctx, first)
		if err != nil {
			return nil, err
		}
		applyAnalysis(info, result)
	}
	if s.labeler != nil && first.Kind == media.KindImage {
		labels, err := s.detect(ctx, first.Data)
		if err != nil {
			s.logger.Warn("Label detection failed, continuing without labels", zap.Error(err))
		} else {
			info.Labels = labels
		}
	}
	return &UploadResult{Message: messageSynthesized, ProductInfo: info}, nil
}

func (s *Service) matchCatalog(ctx context.Context, title string) *models.Video {
	if s.catalog == nil {
		return nil
	}
	id, ok := s.catalog.Match(title)
	if !ok {
		return nil
	}
	v, err := s.store.GetVideo(ctx, id)
	if err != nil {
		s.logger.Warn("Catalog match not in store", zap.String("id", id), zap.Error(err))
		return nil
	}
	return v
}

func synthesize(title, caption, category string) *models.ProductInfo {
	id := ident.Synthetic("video_", title)
	if len(id) > syntheticIDLength {
		id = id[:syntheticIDLength]
	}
	summary := caption
	if summary == "" {
		summary = fmt.Sprintf(syntheticSummaryTmpl, title)
	}
	profile := classify.ProfileFor(category)
	return &models.ProductInfo{
		Video: models.Video{
			ID:                id,
			Title:             title,
			Category:          category,
			Duration:          syntheticDuration,
			Highlights:        profile.Highlights,
			TranscriptSummary: summary,
			KeyFeatures:       profile.KeyFeatures,
			PriceRange:        syntheticPriceRange,
		},
		Analytics:       syntheticAnalytics(),
		Platforms:       syntheticPlatforms(),
		Recommendations: syntheticRecommendations(),
	}
}

// applyAnalysis attaches result and lets its non-empty fields replace the synthesized ones.
func applyAnalysis(info *models.ProductInfo, result *models.AnalysisResult) {
	info.Analysis = result
	if len(result.KeyFeatures) > 0 {
		info.KeyFeatures = result.KeyFeatures
	}
	if result.PriceRange != "" {
		info.PriceRange = result.PriceRange
	}
	var names []string
	for _, r := range result.Recommendations {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	if len(names) > 0 {
		info.Recommendations = names
	}
}

func (s *Service) analyze(ctx context.Context, c *media.Checked) (*models.AnalysisResult, error) {
	start := time.Now()
	result, err := s.analyzer.Analyze(ctx, ai.Media{MIME: c.MIME, Data: c.Data})
	provider := s.analyzer.Provider()
	metrics.ProviderCalls.WithLabelValues(provider, "analyze", metrics.Outcome(err)).Inc()
	metrics.ProviderDuration.WithLabelValues(provider, "analyze").Observe(time.Since(start).Seconds())
	return result, err
}

func (s *Service) detect(ctx context.Context, image []byte) ([]models.Label, error) {
	start := time.Now()
	labels, err := s.labeler.DetectLabels(ctx, image)
	metrics.ProviderCalls.WithLabelValues("vision", "detect", metrics.Outcome(err)).Inc()
	metrics.ProviderDuration.WithLabelValues("vision", "detect").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &ai.ProviderError{Provider: "vision", Err: err}
	}
	return labels, nil
}

// AnalyzeProduct validates a single file and returns its product analysis. When the provider
// fails, the error-status result is returned together with the error.
func (s *Service) AnalyzeProduct(ctx context.Context, file media.Upload) (*models.AnalysisResult, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("product analysis: %w", ai.ErrNotConfigured)
	}
	checked, err := s.validate(ctx, []media.Upload{file})
	if err != nil {
		return nil, err
	}
	if !s.analyzer.Supports(checked[0].MIME) {
		return nil, &media.ValidationError{Reason: media.ReasonUnsupportedType, Filename: file.Filename}
	}
	return s.analyze(ctx, checked[0])
}

// DetectLabels validates a single image and returns the labels detected on it.
func (s *Service) DetectLabels(ctx context.Context, file media.Upload) ([]models.Label, error) {
	if s.labeler == nil {
		return nil, fmt.Errorf("label detection: %w", ai.ErrNotConfigured)
	}
	checked, err := s.validate(ctx, []media.Upload{file})
	if err != nil {
		return nil, err
	}
	if checked[0].Kind != media.KindImage {
		return nil, &media.ValidationError{Reason: media.ReasonUnsupportedType, Filename: file.Filename}
	}
	return s.detect(ctx, checked[0].Data)
}
