package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "db", "videos.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_Videos(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	v := &models.Video{
		Title:       "Sony WH-1000XM5 Review",
		Category:    "Electronics",
		Highlights:  []string{"Sound quality"},
		KeyFeatures: []string{"ANC"},
	}
	if err := store.UpsertVideo(ctx, v); err != nil {
		t.Fatal(err)
	}
	if !ident.Valid(v.ID) {
		t.Fatalf("expected a store identifier, got %q", v.ID)
	}

	got, err := store.GetVideo(ctx, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != v.Title || got.Highlights[0] != "Sound quality" || got.KeyFeatures[0] != "ANC" {
		t.Errorf("got %+v", got)
	}

	v.Title = "Sony WH-1000XM5 Long Term Review"
	if err := store.UpsertVideo(ctx, v); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetVideo(ctx, v.ID)
	if got.Title != v.Title {
		t.Errorf("expected updated title, got %s", got.Title)
	}
	if n, _ := store.CountVideos(ctx); n != 1 {
		t.Errorf("CountVideos = %d, want 1", n)
	}

	_, err = store.GetVideo(ctx, ident.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStorage_SearchVideosByTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, title := range []string{"iPhone 15 Pro Review", "Best Headphones (2024)", "Running shoes"} {
		if err := store.UpsertVideo(ctx, &models.Video{Title: title}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		pattern string
		want    int
	}{
		{"iphone", 1},
		{"HEADPHONES", 1},
		{"re.*w", 1},
		{"(2024", 1}, // invalid regex matches literally
		{"e", 3},
		{"laptop", 0},
	}
	for _, tt := range tests {
		videos, err := store.SearchVideosByTitle(ctx, tt.pattern)
		if err != nil {
			t.Fatalf("%q: %v", tt.pattern, err)
		}
		if len(videos) != tt.want {
			t.Errorf("SearchVideosByTitle(%q) returned %d videos, want %d", tt.pattern, len(videos), tt.want)
		}
	}
}

func TestSQLiteStorage_FindComparableVideos(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ref := &models.Video{Title: "Pixel 8", Category: "Electronics", Highlights: []string{"Camera"}}
	sameCategory := &models.Video{Title: "Galaxy S24", Category: "Electronics"}
	sharedHighlight := &models.Video{Title: "GoPro Hero", Category: "Cameras", Highlights: []string{"Battery", "Camera"}}
	unrelated := &models.Video{Title: "Yoga mat", Category: "Sports"}
	for _, v := range []*models.Video{ref, sameCategory, sharedHighlight, unrelated} {
		if err := store.UpsertVideo(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	videos, err := store.FindComparableVideos(ctx, ref, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(videos) != 2 {
		t.Fatalf("expected 2 comparable videos, got %d", len(videos))
	}
	for _, v := range videos {
		if v.ID == ref.ID {
			t.Error("reference video must be excluded")
		}
		if v.ID == unrelated.ID {
			t.Error("unrelated video must not match")
		}
	}

	limited, err := store.FindComparableVideos(ctx, ref, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d videos", len(limited))
	}
}

func TestSQLiteStorage_Listings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	videoID := ident.New()

	l := &models.VideoListing{
		VideoID:       videoID,
		ProductID:     "prod_1",
		Platform:      "YouTube",
		Rating:        4.5,
		KeyTimestamps: map[string]string{"intro": "0:00"},
		ProductLinks:  []models.ProductLink{{Store: "Amazon", Price: "$99"}},
	}
	if err := store.UpsertListing(ctx, l); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertListing(ctx, &models.VideoListing{VideoID: ident.New(), Platform: "TikTok"}); err != nil {
		t.Fatal(err)
	}

	listings, err := store.ListingsByVideoID(ctx, videoID)
	if err != nil {
		t.Fatal(err)
	}
	if len(listings) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(listings))
	}
	got := listings[0]
	if got.Rating != 4.5 || got.KeyTimestamps["intro"] != "0:00" || got.ProductLinks[0].Store != "Amazon" {
		t.Errorf("got %+v", got)
	}
}

func TestSQLiteStorage_Analytics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	videoID := ident.New()

	a := &models.VideoAnalytics{
		ID:         videoID,
		ProductID:  "prod_1",
		Engagement: models.VideoEngagement{Views: "10K"},
		Audience: models.VideoAudience{
			Demographics: map[string]string{"18-24": "30%"},
			TopRegions:   []string{"US"},
		},
		Performance: models.VideoPerformance{ConversionRate: "2%"},
	}
	if err := store.UpsertAnalytics(ctx, a); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetAnalytics(ctx, videoID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Engagement.Views != "10K" || got.Audience.TopRegions[0] != "US" || got.Performance.ConversionRate != "2%" {
		t.Errorf("got %+v", got)
	}

	if _, err := store.GetAnalytics(ctx, ident.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpsertAnalytics(ctx, &models.VideoAnalytics{}); err == nil {
		t.Error("expected error for analytics without id")
	}
}

func TestRegexpCache_Bounded(t *testing.T) {
	c := newRegexpCache(2)
	for _, p := range []string{"a", "b", "a", "c"} {
		if _, err := c.get(p); err != nil {
			t.Fatal(err)
		}
	}
	if c.len() != 2 {
		t.Fatalf("len = %d, want 2", c.len())
	}
	// "b" was least recently used when "c" arrived.
	if _, ok := c.entries["b"]; ok {
		t.Error("b should have been evicted")
	}
	if _, ok := c.entries["a"]; !ok {
		t.Error("a should still be cached")
	}
	if _, err := c.get("("); err == nil {
		t.Error("invalid pattern should fail to compile")
	}
	if c.len() != 2 {
		t.Errorf("failed compile should not be cached, len = %d", c.len())
	}
}

func TestSQLiteStorage_SearchKeepsRegexpCacheBounded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.UpsertVideo(ctx, &models.Video{Title: "Trail Runner 7"}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < regexpCacheSize+50; i++ {
		if _, err := s.SearchVideosByTitle(ctx, fmt.Sprintf("query %d", i)); err != nil {
			t.Fatal(err)
		}
	}
	if n := regexps.len(); n > regexpCacheSize {
		t.Errorf("cached patterns = %d, want at most %d", n, regexpCacheSize)
	}
	found, err := s.SearchVideosByTitle(ctx, "trail")
	if err != nil || len(found) != 1 {
		t.Errorf("search after churn: %v %v", found, err)
	}
}
