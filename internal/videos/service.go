// Package videos implements the product video operations behind the HTTP API: uploads, title
// search, listings, comparable videos, analytics, and standalone image analysis.
//
// Lookups that find nothing answer with a fixed sample record instead of an empty result.
// Each such response is counted in the shohin_fallback_responses_total metric.
package videos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/ai"
	"github.com/hyperjump/shohin/internal/classify"
	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/media"
	"github.com/hyperjump/shohin/internal/metrics"
	"github.com/hyperjump/shohin/internal/models"
	"github.com/hyperjump/shohin/internal/storage"
)

var (
	// ErrInvalidID is returned when a video id is not a store identifier.
	ErrInvalidID = errors.New("invalid video id format")
	// ErrReferenceNotFound is returned when the video to compare against does not exist.
	ErrReferenceNotFound = errors.New("reference video not found")
)

// DefaultCompareLimit is the number of comparable videos returned when no limit is given.
const DefaultCompareLimit = 3

// CatalogMatcher finds the catalog video an upload title refers to.
type CatalogMatcher interface {
	Match(title string) (string, bool)
	Len() int
}

// Service holds the dependencies of the video operations. Optional collaborators left nil
// disable the features that need them.
type Service struct {
	store      storage.Storage
	classifier *classify.Classifier
	validator  *media.Validator
	catalog    CatalogMatcher
	analyzer   *ai.Analyzer
	labeler    ai.Labeler
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCatalog enables matching uploads against catalog titles.
func WithCatalog(m CatalogMatcher) Option {
	return func(s *Service) { s.catalog = m }
}

// WithAnalyzer enables generative product analysis.
func WithAnalyzer(a *ai.Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithLabeler enables label detection.
func WithLabeler(l ai.Labeler) Option {
	return func(s *Service) { s.labeler = l }
}

// WithClock overrides the time source used for synthesized timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(store storage.Storage, classifier *classify.Classifier, validator *media.Validator, opts ...Option) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		validator:  validator,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capabilities reports which optional collaborators are configured.
type Capabilities struct {
	Analyzer        string `json:"analyzer,omitempty"`
	LabelDetection  bool   `json:"label_detection"`
	CatalogMatching bool   `json:"catalog_matching"`
	CatalogVideos   int    `json:"catalog_videos"`
}

// Capabilities returns the configured providers and catalog size.
func (s *Service) Capabilities() Capabilities {
	c := Capabilities{LabelDetection: s.labeler != nil, CatalogMatching: s.catalog != nil}
	if s.analyzer != nil {
		c.Analyzer = s.analyzer.Provider()
	}
	if s.catalog != nil {
		c.CatalogVideos = s.catalog.Len()
	}
	return c
}

// Classify returns the category of a product title.
func (s *Service) Classify(title string) string {
	return s.classifier.Classify(title)
}

// CountVideos returns the number of stored videos.
func (s *Service) CountVideos(ctx context.Context) (int64, error) {
	return s.store.CountVideos(ctx)
}

// timestamp formats t like the rest of the stored records (ISO 8601, microseconds, no zone).
func timestamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000")
}

func checkID(id string) error {
	if !ident.Valid(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Search returns videos whose title matches title case-insensitively. The title is used as a
// regular expression when it is one and literally otherwise.
func (s *Service) Search(ctx context.Context, title string) ([]*models.Video, error) {
	videos, err := s.store.SearchVideosByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("error searching videos: %w", err)
	}
	if len(videos) > 0 {
		return videos, nil
	}
	metrics.FallbackResponses.WithLabelValues("search").Inc()
	return []*models.Video{fallbackSearchVideo()}, nil
}

// Listings returns the platform listings of a video.
func (s *Service) Listings(ctx context.Context, videoID string) ([]*models.VideoListing, error) {
	if err := checkID(videoID); err != nil {
		return nil, err
	}
	listings, err := s.store.ListingsByVideoID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("error fetching video listings: %w", err)
	}
	if len(listings) > 0 {
		return listings, nil
	}
	metrics.FallbackResponses.WithLabelValues("listings").Inc()
	return []*models.VideoListing{fallbackListing(videoID, s.now())}, nil
}

// Comparable returns up to limit videos sharing an attribute with the reference video.
// A limit below one uses DefaultCompareLimit.
func (s *Service) Comparable(ctx context.Context, videoID string, limit int) ([]*models.Video, error) {
	if err := checkID(videoID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = DefaultCompareLimit
	}
	ref, err := s.store.GetVideo(ctx, videoID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReferenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching reference video: %w", err)
	}

	videos, err := s.store.FindComparableVideos(ctx, ref, limit)
	if err != nil {
		s.logger.Warn("Comparable video query failed", zap.String("video_id", videoID), zap.Error(err))
	}
	if err == nil && len(videos) > 0 {
		return videos, nil
	}
	metrics.FallbackResponses.WithLabelValues("compare").Inc()
	return fallbackComparable(ref), nil
}

// Analytics returns the analytics stored for a video.
func (s *Service) Analytics(ctx context.Context, videoID string) (*models.VideoAnalytics, error) {
	if err := checkID(videoID); err != nil {
		return nil, err
	}
	a, err := s.store.GetAnalytics(ctx, videoID)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("error fetching analytics: %w", err)
	}
	metrics.FallbackResponses.WithLabelValues("analytics").Inc()
	return fallbackAnalytics(videoID, s.now()), nil
}
