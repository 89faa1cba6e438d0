package models

// Platform is a platform summary on a synthesized product info record.
type Platform struct {
	Name   string  `json:"name"`
	Views  string  `json:"views"`
	Rating float64 `json:"rating"`
}

// UploadAnalytics is the short analytics block on a synthesized product info record.
type UploadAnalytics struct {
	Views          string `json:"views"`
	Likes          string `json:"likes"`
	EngagementRate string `json:"engagement_rate"`
}

// ProductInfo is the upload response payload. Catalog matches fill the embedded Video only.
type ProductInfo struct {
	Video
	Analytics       *UploadAnalytics `json:"analytics,omitempty"`
	Platforms       []Platform       `json:"platforms,omitempty"`
	Recommendations []string         `json:"recommendations,omitempty"`
	Analysis        *AnalysisResult  `json:"analysis,omitempty"`
	Labels          []Label          `json:"labels,omitempty"`
}

// Response is the envelope of every API response: a status plus either a payload field or a message.
type Response struct {
	Status           string          `json:"status"`
	Message          string          `json:"message,omitempty"`
	Videos           []*Video        `json:"videos,omitempty"`
	Listings         []*VideoListing `json:"listings,omitempty"`
	ComparableVideos []*Video        `json:"comparable_videos,omitempty"`
	Analytics        *VideoAnalytics `json:"analytics,omitempty"`
	ProductInfo      *ProductInfo    `json:"product_info,omitempty"`
	Labels           []Label         `json:"labels,omitempty"`
	Category         string          `json:"category,omitempty"`
}

// ErrorResponse builds an error envelope.
func ErrorResponse(message string) *Response {
	return &Response{Status: StatusError, Message: message}
}
