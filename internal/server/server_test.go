package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shohin/internal/ai"
	"github.com/hyperjump/shohin/internal/classify"
	"github.com/hyperjump/shohin/internal/config"
	"github.com/hyperjump/shohin/internal/ident"
	"github.com/hyperjump/shohin/internal/media"
	"github.com/hyperjump/shohin/internal/models"
	"github.com/hyperjump/shohin/internal/storage"
	"github.com/hyperjump/shohin/internal/videos"
)

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Name() string           { return "stub" }
func (g stubGenerator) Supports(string) bool { return true }
func (g stubGenerator) Generate(context.Context, string, []ai.Media) (string, error) {
	return g.text, g.err
}

type stubLabeler struct{}

func (stubLabeler) DetectLabels(context.Context, []byte) ([]models.Label, error) {
	return []models.Label{{Description: "Headphones", Score: 0.97}}, nil
}

type testEnv struct {
	handler http.Handler
	store   *storage.SQLiteStorage
}

func newTestEnv(t *testing.T, tweak func(*config.Config), opts ...videos.Option) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.DatabasePath = filepath.Join(dir, "videos.db")
	cfg.Upload.TempDir = filepath.Join(dir, "tmp")
	if tweak != nil {
		tweak(cfg)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := videos.NewService(store, classify.NewClassifier(nil), media.NewValidator(cfg.Upload), opts...)
	return &testEnv{handler: NewServer(svc, cfg, nil).Handler(), store: store}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s %s: %v (body %q)", req.Method, req.URL, err, w.Body.String())
	}
	return w.Code, body
}

func (e *testEnv) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	return e.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

type part struct {
	field, filename, contentType string
	data                         []byte
}

func multipartRequest(t *testing.T, path string, values map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		_ = mw.WriteField(k, v)
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write(p.data)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func pngPart(t *testing.T, field string, w, h int) part {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return part{field: field, filename: "product.png", contentType: "image/png", data: buf.Bytes()}
}

func TestHealthAndStatus(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.get(t, "/health")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health: %d %v", code, body)
	}

	_ = env.store.UpsertVideo(context.Background(), &models.Video{Title: "Pixel 9 Review"})
	code, body = env.get(t, "/api/v1/status")
	if code != http.StatusOK || body["videos"] != float64(1) {
		t.Errorf("status: %d %v", code, body)
	}
	if _, ok := body["disk_usage_bytes"]; !ok {
		t.Error("status should report disk usage")
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.get(t, "/api/v1/videos/search/unknown")
	found, _ := body["videos"].([]interface{})
	if code != http.StatusOK || body["status"] != "success" || len(found) != 1 {
		t.Fatalf("search fallback: %d %v", code, body)
	}
	if found[0].(map[string]interface{})["title"] != "Similar Product Review 1" {
		t.Errorf("fallback video = %v", found[0])
	}
}

func TestSearchEscapedTitle(t *testing.T) {
	env := newTestEnv(t, nil)
	_ = env.store.UpsertVideo(context.Background(), &models.Video{Title: "Tom & Jerry Mug"})

	code, body := env.get(t, "/api/v1/videos/search/Tom%20%26%20Jerry")
	found, _ := body["videos"].([]interface{})
	if code != http.StatusOK || len(found) != 1 {
		t.Fatalf("search: %d %v", code, body)
	}
	if got := found[0].(map[string]interface{})["title"]; got != "Tom & Jerry Mug" {
		t.Errorf("title = %v, want the stored video", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/videos/search/x", nil)
	req.URL.RawPath = "/api/v1/videos/search/%zz"
	code, body = env.do(t, req)
	if code != http.StatusBadRequest || body["message"] != "Invalid title encoding" {
		t.Errorf("bad escape: %d %v", code, body)
	}
}

func TestInvalidVideoID(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{
		"/api/v1/videos/listings/xyz",
		"/api/v1/videos/compare/xyz",
		"/api/v1/videos/analytics/xyz",
	} {
		code, body := env.get(t, path)
		if code != http.StatusBadRequest || body["status"] != "error" || body["message"] != "Invalid video ID format" {
			t.Errorf("%s: %d %v", path, code, body)
		}
	}
}

func TestCompare(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.get(t, "/api/v1/videos/compare/"+ident.New())
	if code != http.StatusNotFound || body["message"] != "Reference video not found" {
		t.Errorf("missing reference: %d %v", code, body)
	}

	ctx := context.Background()
	ref := &models.Video{Title: "Bose QC45", Category: "audio"}
	_ = env.store.UpsertVideo(ctx, ref)
	_ = env.store.UpsertVideo(ctx, &models.Video{Title: "Sony XM5", Category: "audio"})
	_ = env.store.UpsertVideo(ctx, &models.Video{Title: "AirPods Max", Category: "audio"})

	code, body = env.get(t, "/api/v1/videos/compare/"+ref.ID+"?limit=1")
	if found, _ := body["comparable_videos"].([]interface{}); code != http.StatusOK || len(found) != 1 {
		t.Errorf("compare limit=1: %d %v", code, body)
	}
	code, _ = env.get(t, "/api/v1/videos/compare/"+ref.ID+"?limit=zero")
	if code != http.StatusBadRequest {
		t.Errorf("bad limit: %d", code)
	}
}

func TestListingsAndAnalyticsFallback(t *testing.T) {
	env := newTestEnv(t, nil)
	id := ident.New()
	code, body := env.get(t, "/api/v1/videos/listings/"+id)
	if listings, _ := body["listings"].([]interface{}); code != http.StatusOK || len(listings) != 1 {
		t.Errorf("listings: %d %v", code, body)
	}
	code, body = env.get(t, "/api/v1/videos/analytics/"+id)
	analytics, _ := body["analytics"].(map[string]interface{})
	if code != http.StatusOK || analytics["product_id"] != id {
		t.Errorf("analytics: %d %v", code, body)
	}
}

func TestUpload(t *testing.T) {
	env := newTestEnv(t, nil)
	req := multipartRequest(t, "/api/v1/videos/",
		map[string]string{"title": "Nike Pegasus", "description": "Daily trainer"},
		pngPart(t, "files", 800, 600))
	code, body := env.do(t, req)
	if code != http.StatusOK || body["message"] != "Video analyzed successfully" {
		t.Fatalf("upload: %d %v", code, body)
	}
	info := body["product_info"].(map[string]interface{})
	if info["category"] != "fashion" || info["transcript_summary"] != "Daily trainer" {
		t.Errorf("product_info = %v", info)
	}
}

func TestUploadRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name    string
		values  map[string]string
		parts   []part
		message string
	}{
		{"no title", nil, []part{pngPart(t, "files", 800, 600)}, "Title is required"},
		{"no files", map[string]string{"title": "Lamp"}, nil, media.ReasonNoFiles},
		{"small image", map[string]string{"title": "Lamp"}, []part{pngPart(t, "files", 100, 100)}, media.ReasonImageTooSmall},
		{"bad type", map[string]string{"title": "Lamp"}, []part{{field: "files", filename: "a.gif", contentType: "image/gif", data: []byte("GIF89a")}}, media.ReasonUnsupportedType},
		{"too many", map[string]string{"title": "Lamp"}, []part{
			pngPart(t, "files", 800, 600), pngPart(t, "files", 800, 600),
			pngPart(t, "files", 800, 600), pngPart(t, "files", 800, 600),
		}, "You can upload a maximum of 3 files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, multipartRequest(t, "/api/v1/videos/", tt.values, tt.parts...))
			if code != http.StatusBadRequest || body["message"] != tt.message {
				t.Errorf("got %d %v, want 400 %q", code, body, tt.message)
			}
		})
	}
}

func TestUploadBodyTooLarge(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Upload.MaxFiles = 1
		cfg.Upload.MaxFileSizeMB = 1
	})
	big := part{field: "files", filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{0}, 3<<20)}
	for _, path := range []string{"/api/v1/videos/", "/api/v1/products/analyze"} {
		big.field = "files"
		if path != "/api/v1/videos/" {
			big.field = "file"
		}
		code, body := env.do(t, multipartRequest(t, path, map[string]string{"title": "Lamp"}, big))
		if code != http.StatusBadRequest || body["message"] != media.ReasonFileTooLarge {
			t.Errorf("%s: %d %v", path, code, body)
		}
	}
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.do(t, multipartRequest(t, "/api/v1/products/analyze", nil, pngPart(t, "file", 800, 600)))
	if code != http.StatusNotImplemented || body["status"] != "error" {
		t.Errorf("unconfigured: %d %v", code, body)
	}

	reply := "BEGIN_ANALYSIS\nProduct Name: QC Ultra\nKey Features:\n- ANC\nEND_ANALYSIS"
	env = newTestEnv(t, nil, videos.WithAnalyzer(ai.NewAnalyzer(stubGenerator{text: reply})))
	code, body = env.do(t, multipartRequest(t, "/api/v1/products/analyze", nil, pngPart(t, "file", 800, 600)))
	if code != http.StatusOK || body["status"] != "success" || body["product_name"] != "QC Ultra" {
		t.Errorf("analyze: %d %v", code, body)
	}

	env = newTestEnv(t, nil, videos.WithAnalyzer(ai.NewAnalyzer(stubGenerator{err: errors.New("quota exceeded")})))
	code, body = env.do(t, multipartRequest(t, "/api/v1/products/analyze", nil, pngPart(t, "file", 800, 600)))
	if code != http.StatusBadGateway || body["status"] != "error" || body["message"] != "quota exceeded" {
		t.Errorf("provider failure: %d %v", code, body)
	}
}

func TestDetect(t *testing.T) {
	env := newTestEnv(t, nil, videos.WithLabeler(stubLabeler{}))
	code, body := env.do(t, multipartRequest(t, "/api/v1/products/detect", nil, pngPart(t, "file", 800, 600)))
	labels, _ := body["labels"].([]interface{})
	if code != http.StatusOK || len(labels) != 1 {
		t.Errorf("detect: %d %v", code, body)
	}
	code, body = env.do(t, multipartRequest(t, "/api/v1/products/detect", nil))
	if code != http.StatusBadRequest || body["message"] != media.ReasonNoFiles {
		t.Errorf("no file: %d %v", code, body)
	}
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t, nil)
	code, body := env.get(t, "/api/v1/products/classify?title=Samsung+Galaxy+Phone+Review")
	if code != http.StatusOK || body["category"] != "electronics" {
		t.Errorf("classify: %d %v", code, body)
	}
	code, _ = env.get(t, "/api/v1/products/classify")
	if code != http.StatusBadRequest {
		t.Errorf("missing title: %d", code)
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) { cfg.Server.RateLimitRequests = 1 })
	code, _ := env.do(t, multipartRequest(t, "/api/v1/products/analyze", nil, pngPart(t, "file", 800, 600)))
	if code != http.StatusNotImplemented {
		t.Fatalf("first request: %d", code)
	}
	code, body := env.do(t, multipartRequest(t, "/api/v1/products/analyze", nil, pngPart(t, "file", 800, 600)))
	if code != http.StatusTooManyRequests || body["status"] != "error" {
		t.Errorf("second request: %d %v", code, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.get(t, "/api/v1/videos/search/anything")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	out, _ := io.ReadAll(w.Body)
	if w.Code != http.StatusOK || !strings.Contains(string(out), "shohin_fallback_responses_total") {
		t.Errorf("metrics: %d", w.Code)
	}
}
