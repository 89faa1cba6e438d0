package videos

import (
	"time"

	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/models"
)

// searchFallbackSeed seeds the id of the sample search result so it is the same on every call.
const searchFallbackSeed = "677a67241f305bdd8827f546"

func fallbackSearchVideo() *models.Video {
	return &models.Video{
		ID:                ident.Synthetic("comp_1_", searchFallbackSeed),
		Title:             "Similar Product Review 1",
		Category:          "Electronics",
		Subcategory:       "Headphone",
		Duration:          "9:30",
		Views:             "15K",
		Highlights:        []string{"Feature comparison", "Price value"},
		TranscriptSummary: "A review highlighting key features and pricing.",
		KeyFeatures:       []string{"Wireless", "Noise-cancelling"},
		PriceRange:        "$89 - $199",
	}
}

func fallbackListing(videoID string, now time.Time) *models.VideoListing {
	ts := timestamp(now)
	return &models.VideoListing{
		VideoID:   videoID,
		ProductID: ident.Synthetic("prod_", videoID),
		Platform:  "YouTube",
		Title:     "Product Review",
		Views:     "10K",
		Rating:    4.5,
		KeyTimestamps: map[string]string{
			"intro":      "0:00",
			"features":   "2:00",
			"demo":       "5:00",
			"conclusion": "8:00",
		},
		ProductLinks: []models.ProductLink{
			{Store: "Online Store", Price: "$99.99"},
			{Store: "Marketplace", Price: "$89.99"},
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

// fallbackComparable keeps the reference's category on the first sample.
func fallbackComparable(ref *models.Video) []*models.Video {
	return []*models.Video{
		{
			ID:                ident.Synthetic("comp_1_", ref.ID),
			Title:             "Similar Product Review 1",
			Category:          orUnknown(ref.Category),
			Subcategory:       orUnknown(ref.Subcategory),
			Duration:          "9:30",
			Views:             "15K",
			Highlights:        []string{"Feature comparison", "Price value"},
			TranscriptSummary: "A review highlighting key features and pricing.",
			KeyFeatures:       []string{"Wireless", "Noise-cancelling"},
			PriceRange:        "$89 - $199",
		},
		{
			ID:                ident.Synthetic("comp_2_", ref.ID),
			Title:             "Alternative Product Review",
			Category:          "Electronics",
			Subcategory:       "Smartwatches",
			Duration:          "8:45",
			Views:             "12K",
			Highlights:        []string{"Cost comparison", "Durability"},
			TranscriptSummary: "A comprehensive review of alternative smartwatches.",
			KeyFeatures:       []string{"Durable", "Long battery life"},
			PriceRange:        "$79 - $189",
		},
	}
}

func fallbackAnalytics(videoID string, now time.Time) *models.VideoAnalytics {
	ts := timestamp(now)
	return &models.VideoAnalytics{
		ProductID: videoID,
		Engagement: models.VideoEngagement{
			Views:            "5K",
			Likes:            "500",
			Comments:         "50",
			AverageWatchTime: "5:30",
		},
		Audience: models.VideoAudience{
			Demographics: map[string]string{
				"18-24": "25%",
				"25-34": "40%",
				"35-44": "20%",
				"45+":   "15%",
			},
			TopRegions: []string{"US", "UK", "Canada", "Australia"},
		},
		Performance: models.VideoPerformance{
			RetentionRate:    "65%",
			ClickThroughRate: "3.5%",
			ConversionRate:   "2.1%",
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// Upload response constants for records synthesized from the title alone.
const (
	syntheticIDLength    = 15
	syntheticDuration    = "10:25"
	syntheticPriceRange  = "$99 - $999"
	messageCatalogMatch  = "Video processed successfully"
	messageSynthesized   = "Video analyzed successfully"
	syntheticSummaryTmpl = "Detailed analysis of %s"
)

func syntheticAnalytics() *models.UploadAnalytics {
	return &models.UploadAnalytics{Views: "15K", Likes: "1.2K", EngagementRate: "8.5%"}
}

func syntheticPlatforms() []models.Platform {
	return []models.Platform{
		{Name: "YouTube", Views: "10K", Rating: 4.8},
		{Name: "TikTok", Views: "5K", Rating: 4.7},
	}
}

func syntheticRecommendations() []string {
	return []string{"Similar product 1", "Alternative option 2", "Related item 3"}
}
