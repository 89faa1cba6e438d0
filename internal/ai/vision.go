package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/hyperjump/shohin/internal/models"
)

// Labeler detects descriptive labels on an image.
type Labeler interface {
	DetectLabels(ctx context.Context, image []byte) ([]models.Label, error)
}

// VisionLabeler runs Cloud Vision LABEL_DETECTION.
type VisionLabeler struct {
	svc       *vision.Service
	maxLabels int64
}

// NewVisionLabeler creates a labeler authenticated with apiKey. Extra options are appended,
// which lets tests point the client at a local endpoint.
func NewVisionLabeler(ctx context.Context, apiKey string, maxLabels int, opts ...option.ClientOption) (*VisionLabeler, error) {
	if apiKey == "" && len(opts) == 0 {
		return nil, fmt.Errorf("vision: %w (set ai.vision_api_key or VISION_API_KEY)", ErrNotConfigured)
	}
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}
	return &VisionLabeler{svc: svc, maxLabels: int64(maxLabels)}, nil
}

// DetectLabels returns labels ordered as the service ranks them.
func (l *VisionLabeler) DetectLabels(ctx context.Context, image []byte) ([]models.Label, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "LABEL_DETECTION", MaxResults: l.maxLabels}},
		}},
	}
	resp, err := l.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, errors.New("vision returned no responses")
	}
	r := resp.Responses[0]
	if r.Error != nil && r.Error.Message != "" {
		return nil, fmt.Errorf("vision detection failed: %s", r.Error.Message)
	}
	labels := make([]models.Label, 0, len(r.LabelAnnotations))
	for _, a := range r.LabelAnnotations {
		labels = append(labels, models.Label{Description: a.Description, Score: a.Score})
	}
	return labels, nil
}
