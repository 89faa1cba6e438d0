// Package models defines core data structures for videos, listings, analytics, and analysis results.
package models

// Video is a product review video record.
type Video struct {
	ID                string   `json:"id" yaml:"id"`
	Title             string   `json:"title" yaml:"title"`
	Category          string   `json:"category" yaml:"category"`
	Subcategory       string   `json:"subcategory" yaml:"subcategory"`
	Duration          string   `json:"duration" yaml:"duration"`
	Views             string   `json:"views" yaml:"views"`
	Highlights        []string `json:"highlights" yaml:"highlights"`
	TranscriptSummary string   `json:"transcript_summary" yaml:"transcript_summary"`
	KeyFeatures       []string `json:"key_features" yaml:"key_features"`
	PriceRange        string   `json:"price_range" yaml:"price_range"`
}

// ProductLink is a store offering the reviewed product.
type ProductLink struct {
	Store string `json:"store" yaml:"store"`
	Price string `json:"price" yaml:"price"`
}

// VideoListing is a platform listing of a video.
type VideoListing struct {
	ID            string            `json:"id" yaml:"id"`
	VideoID       string            `json:"video_id,omitempty" yaml:"video_id"`
	ProductID     string            `json:"product_id" yaml:"product_id"`
	Platform      string            `json:"platform" yaml:"platform"`
	Title         string            `json:"title" yaml:"title"`
	Views         string            `json:"views" yaml:"views"`
	Rating        float64           `json:"rating" yaml:"rating"`
	KeyTimestamps map[string]string `json:"key_timestamps" yaml:"key_timestamps"`
	ProductLinks  []ProductLink     `json:"product_links" yaml:"product_links"`
	CreatedAt     string            `json:"created_at" yaml:"created_at"`
	UpdatedAt     string            `json:"updated_at" yaml:"updated_at"`
}

// VideoEngagement holds viewer interaction counts.
type VideoEngagement struct {
	Views            string `json:"views" yaml:"views" bson:"views"`
	Likes            string `json:"likes" yaml:"likes" bson:"likes"`
	Comments         string `json:"comments" yaml:"comments" bson:"comments"`
	AverageWatchTime string `json:"average_watch_time" yaml:"average_watch_time" bson:"average_watch_time"`
}

// VideoAudience describes who watched.
type VideoAudience struct {
	Demographics map[string]string `json:"demographics" yaml:"demographics" bson:"demographics"`
	TopRegions   []string          `json:"top_regions" yaml:"top_regions" bson:"top_regions"`
}

// VideoPerformance holds conversion-oriented rates.
type VideoPerformance struct {
	RetentionRate    string `json:"retention_rate" yaml:"retention_rate" bson:"retention_rate"`
	ClickThroughRate string `json:"click_through_rate" yaml:"click_through_rate" bson:"click_through_rate"`
	ConversionRate   string `json:"conversion_rate" yaml:"conversion_rate" bson:"conversion_rate"`
}

// VideoAnalytics is the analytics record of a video. ID is the analysed video's store identifier.
type VideoAnalytics struct {
	ID          string           `json:"id,omitempty" yaml:"id"`
	ProductID   string           `json:"product_id" yaml:"product_id"`
	Engagement  VideoEngagement  `json:"engagement" yaml:"engagement"`
	Audience    VideoAudience    `json:"audience" yaml:"audience"`
	Performance VideoPerformance `json:"performance" yaml:"performance"`
	CreatedAt   string           `json:"created_at" yaml:"created_at"`
	UpdatedAt   string           `json:"updated_at" yaml:"updated_at"`
}
