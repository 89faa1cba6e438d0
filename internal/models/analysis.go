package models

// MaxRecommendations is the number of recommendations the analysis prompt asks for.
const MaxRecommendations = 5

// Analysis statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recommendation is a similar or alternative product suggested by the model.
type Recommendation struct {
	Name         string `json:"name"`
	Price        string `json:"price,omitempty"`
	Similarities string `json:"similarities,omitempty"`
}

// AnalysisResult is the structured form of a product analysis response.
type AnalysisResult struct {
	ProductName     string           `json:"product_name"`
	Category        string           `json:"category"`
	Subcategory     string           `json:"subcategory"`
	Description     string           `json:"description"`
	PriceRange      string           `json:"price_range"`
	KeyFeatures     []string         `json:"key_features"`
	Recommendations []Recommendation `json:"recommendations"`
	Status          string           `json:"status"`
	Message         string           `json:"message,omitempty"`
}

// NewAnalysisResult returns an empty result with non-nil lists, so it encodes as [] rather than null.
func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{
		KeyFeatures:     []string{},
		Recommendations: []Recommendation{},
	}
}

// Label is one label detected on an image.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}
