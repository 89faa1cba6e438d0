// Package analysis converts the delimited text a generative model returns for a product image
// into a models.AnalysisResult.
package analysis

import (
	"strings"

	"github.com/hyperjump/shohin/internal/models"
)

const (
	beginMarker = "BEGIN_ANALYSIS"
	endMarker   = "END_ANALYSIS"
)

type section int

const (
	sectionNone section = iota
	sectionFeatures
	sectionRecommendations
)

// recommendationStarts are the tokens that open a numbered recommendation.
var recommendationStarts = []string{"1.", "2.", "3.", "4.", "5."}

// Parse extracts an AnalysisResult from text. It never fails: unrecognized lines are skipped,
// and if anything goes wrong midway the fields set so far are returned.
// Status is left empty; the caller sets it from the outcome of the model call.
func Parse(text string) (result *models.AnalysisResult) {
	result = models.NewAnalysisResult()
	// A fault midway leaves the fields parsed so far in result.
	defer func() { _ = recover() }()

	p := &parser{out: result}
	for _, line := range strings.Split(content(text), "\n") {
		p.line(strings.TrimSpace(line))
	}
	return result
}

// content returns the text between the first begin marker and the end marker that follows it,
// or the whole trimmed text when either marker is absent.
func content(text string) string {
	if !strings.Contains(text, beginMarker) || !strings.Contains(text, endMarker) {
		return strings.TrimSpace(text)
	}
	body := text[strings.Index(text, beginMarker)+len(beginMarker):]
	if end := strings.Index(body, endMarker); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

type parser struct {
	out     *models.AnalysisResult
	section section
	counter int
}

func (p *parser) line(line string) {
	if line == "" {
		return
	}
	switch {
	case strings.HasPrefix(line, "Product Name:"):
		p.out.ProductName = valueAfterColon(line)
	case strings.HasPrefix(line, "Category:"):
		p.out.Category = valueAfterColon(line)
	case strings.HasPrefix(line, "Subcategory:"):
		p.out.Subcategory = valueAfterColon(line)
	case strings.HasPrefix(line, "Description:"):
		p.out.Description = valueAfterColon(line)
	case strings.HasPrefix(line, "Price Range:"):
		p.out.PriceRange = valueAfterColon(line)
	case line == "Key Features:":
		p.section = sectionFeatures
	case line == "Recommendations:":
		p.section = sectionRecommendations
		p.counter = 0
	case isRecommendationStart(line):
		p.counter++
		if len(p.out.Recommendations) < models.MaxRecommendations {
			name := strings.TrimSpace(line[strings.Index(line, ".")+1:])
			p.out.Recommendations = append(p.out.Recommendations, models.Recommendation{Name: name})
		}
	case strings.HasPrefix(line, "- Price:") && p.section == sectionRecommendations:
		if rec := p.current(); rec != nil {
			rec.Price = valueAfterColon(line)
		}
	case strings.HasPrefix(line, "- Key Similarities:") && p.section == sectionRecommendations:
		if rec := p.current(); rec != nil {
			rec.Similarities = valueAfterColon(line)
		}
	case strings.HasPrefix(line, "- "):
		if p.section == sectionFeatures {
			p.out.KeyFeatures = append(p.out.KeyFeatures, strings.Trim(line, "- "))
		}
	}
}

// current returns the recommendation addressed by the counter, or nil when there is none.
func (p *parser) current() *models.Recommendation {
	i := p.counter - 1
	if i < 0 || i >= len(p.out.Recommendations) {
		return nil
	}
	return &p.out.Recommendations[i]
}

func isRecommendationStart(line string) bool {
	for _, tok := range recommendationStarts {
		if strings.HasPrefix(line, tok) {
			return true
		}
	}
	return false
}

func valueAfterColon(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}
