// Package storage defines the persistence interface for videos, listings, and analytics.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/shohin/internal/models"
)

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines video, listing, and analytics persistence operations.
// Record ids are store identifiers (see package ident).
type Storage interface {
	// Video operations
	UpsertVideo(ctx context.Context, video *models.Video) error
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	// SearchVideosByTitle returns videos whose title matches pattern, case-insensitively.
	SearchVideosByTitle(ctx context.Context, pattern string) ([]*models.Video, error)
	// FindComparableVideos returns up to limit videos other than ref that share its title
	// pattern, category, subcategory, duration, price range, any highlight, or any key feature.
	FindComparableVideos(ctx context.Context, ref *models.Video, limit int) ([]*models.Video, error)

	// Listing operations
	UpsertListing(ctx context.Context, listing *models.VideoListing) error
	ListingsByVideoID(ctx context.Context, videoID string) ([]*models.VideoListing, error)

	// Analytics operations; analytics are keyed by the video id
	UpsertAnalytics(ctx context.Context, analytics *models.VideoAnalytics) error
	GetAnalytics(ctx context.Context, videoID string) (*models.VideoAnalytics, error)

	// Stats
	CountVideos(ctx context.Context) (int64, error)

	Close() error
}
