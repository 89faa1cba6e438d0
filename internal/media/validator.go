// Package media validates uploaded product images and videos against the configured limits.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/config"
)

// Kind is the broad class of an accepted upload.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Upload is one uploaded file held in memory.
type Upload struct {
	Filename    string
	ContentType string // as declared by the client; sniffed when empty or generic
	Data        []byte
}

// Checked is an upload that passed validation.
type Checked struct {
	Upload
	Kind     Kind
	MIME     string
	Width    int
	Height   int
	Duration time.Duration // zero when not probed
}

// mimeAliases maps sniffed or alternative names onto the names used in the allow lists.
var mimeAliases = map[string]string{
	"video/x-matroska": "video/mkv",
	"image/jpg":        "image/jpeg",
	"image/pjpeg":      "image/jpeg",
}

// Validator checks uploads against upload limits. It is safe for concurrent use.
type Validator struct {
	cfg    config.UploadConfig
	prober Prober
	logger *zap.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithProber replaces the default video prober.
func WithProber(p Prober) Option {
	return func(v *Validator) { v.prober = p }
}

// NewValidator creates a validator for cfg.
func NewValidator(cfg config.UploadConfig, opts ...Option) *Validator {
	v := &Validator{cfg: cfg, prober: NewProber(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateAll checks the file count and then every file, stopping at the first rejection.
func (v *Validator) ValidateAll(ctx context.Context, uploads []Upload) ([]*Checked, error) {
	if len(uploads) == 0 {
		return nil, reject("", ReasonNoFiles, nil)
	}
	if len(uploads) > v.cfg.MaxFiles {
		return nil, reject("", fmt.Sprintf("You can upload a maximum of %d files", v.cfg.MaxFiles), nil)
	}
	checked := make([]*Checked, 0, len(uploads))
	for _, u := range uploads {
		c, err := v.Validate(ctx, u)
		if err != nil {
			return nil, err
		}
		checked = append(checked, c)
	}
	return checked, nil
}

// Validate checks type, size, and then image dimensions or video duration.
func (v *Validator) Validate(ctx context.Context, u Upload) (*Checked, error) {
	c := &Checked{Upload: u, MIME: v.contentType(u)}
	switch {
	case slices.Contains(v.cfg.AllowedImageTypes, c.MIME):
		c.Kind = KindImage
	case slices.Contains(v.cfg.AllowedVideoTypes, c.MIME):
		c.Kind = KindVideo
	default:
		return nil, reject(u.Filename, ReasonUnsupportedType, nil)
	}

	if int64(len(u.Data)) > v.cfg.MaxFileSizeBytes() {
		return nil, reject(u.Filename, ReasonFileTooLarge, nil)
	}

	if c.Kind == KindImage {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
		if err != nil {
			return nil, reject(u.Filename, ReasonCannotOpenImage, err)
		}
		c.Width, c.Height = cfg.Width, cfg.Height
		if cfg.Width < v.cfg.MinImageWidth || cfg.Height < v.cfg.MinImageHeight {
			return nil, reject(u.Filename, ReasonImageTooSmall, nil)
		}
		return c, nil
	}

	d, err := v.probe(ctx, u)
	if errors.Is(err, ErrProbeUnavailable) {
		v.logger.Warn("Skipping video length check", zap.String("file", u.Filename), zap.String("mime", c.MIME))
		return c, nil
	}
	if err != nil {
		return nil, reject(u.Filename, ReasonCannotOpenVideo, err)
	}
	c.Duration = d
	if d > v.cfg.MaxVideoLength() {
		return nil, reject(u.Filename, ReasonVideoTooLong, nil)
	}
	return c, nil
}

// contentType normalizes the declared type, sniffing the content when the client sent none.
func (v *Validator) contentType(u Upload) string {
	declared := u.ContentType
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}
	declared = strings.ToLower(declared)
	if declared == "" || declared == "application/octet-stream" {
		declared = mimetype.Detect(u.Data).String()
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if alias, ok := mimeAliases[declared]; ok {
		return alias
	}
	return declared
}

// probe writes the video to the temp dir, since container readers work on files, and
// removes it afterwards.
func (v *Validator) probe(ctx context.Context, u Upload) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(v.cfg.TempDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(v.cfg.TempDir, uuid.NewString()+filepath.Ext(u.Filename))
	if err := os.WriteFile(path, u.Data, 0600); err != nil {
		return 0, fmt.Errorf("failed to write temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			v.logger.Warn("Failed to remove temp upload", zap.String("path", path), zap.Error(err))
		}
	}()
	return v.prober.Duration(path)
}
