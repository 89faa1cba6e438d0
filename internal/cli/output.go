// Package cli provides output helpers for the Shohin command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/shohin/internal/models"
	"github.com/hyperjump/shohin/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// descriptionWidth bounds the description printed in text output.
const descriptionWidth = 300

// ParseOutputFormat validates an -output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnalysis writes a product analysis to w in the given format.
func WriteAnalysis(w io.Writer, result *models.AnalysisResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	if result.Status == models.StatusError {
		fmt.Fprintf(w, "Analysis failed: %s\n", result.Message)
		return nil
	}
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-13s %s\n", label+":", value)
		}
	}
	field("Product", result.ProductName)
	field("Category", result.Category)
	field("Subcategory", result.Subcategory)
	field("Price range", result.PriceRange)
	field("Description", utils.Truncate(result.Description, descriptionWidth))

	if len(result.KeyFeatures) > 0 {
		fmt.Fprintln(w, "\nKey features:")
		for _, f := range result.KeyFeatures {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for i, r := range result.Recommendations {
			fmt.Fprintf(w, "  %d. %s\n", i+1, r.Name)
			if r.Price != "" {
				fmt.Fprintf(w, "     price: %s\n", r.Price)
			}
			if r.Similarities != "" {
				fmt.Fprintf(w, "     similarities: %s\n", r.Similarities)
			}
		}
	}
	return nil
}

// Status is the shape of the GET /api/v1/status response.
type Status struct {
	Videos         int64                  `json:"videos"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Providers      map[string]interface{} `json:"providers,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

// WriteStatus writes server status to w in the given format.
func WriteStatus(w io.Writer, status *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "videos:            %d   # stored videos\n", status.Videos)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:  %d   # database, index and temp uploads\n", *status.DiskUsageBytes)
	}
	writeSection(w, "providers", status.Providers)
	writeSection(w, "configuration", status.Config)
	return nil
}

func writeSection(w io.Writer, title string, values map[string]interface{}) {
	if len(values) == 0 {
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "\n# %s\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "%-18s %v\n", k+":", values[k])
	}
}
