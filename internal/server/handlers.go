package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/ai"
	"github.com/hyperjump/shohin/internal/media"
	"github.com/hyperjump/shohin/internal/models"
	"github.com/hyperjump/shohin/internal/storage"
	"github.com/hyperjump/shohin/internal/videos"
)

const (
	msgInvalidID         = "Invalid video ID format"
	msgReferenceNotFound = "Reference video not found"
	msgTitleRequired     = "Title is required"
	msgInvalidLimit      = "Invalid limit"
	msgInvalidForm       = "Invalid multipart form"
	msgInvalidTitle      = "Invalid title encoding"
)

// uploadForm is the non-file part of an upload request.
type uploadForm struct {
	Title   string `validate:"required,max=300"`
	Caption string `validate:"max=5000"`
	Files   int    `validate:"min=1"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.videos.CountVideos(r.Context())
	if err != nil {
		s.logger.Error("status: count videos failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"status":    models.StatusSuccess,
		"videos":    count,
		"providers": s.videos.Capabilities(),
		"config": map[string]interface{}{
			"storage_driver": s.config.Storage.Driver,
			"max_files":      s.config.Upload.MaxFiles,
			"max_file_mb":    s.config.Upload.MaxFileSizeMB,
			"max_video_min":  s.config.Upload.MaxVideoMinutes,
		},
	}
	diskBytes, err := storage.DiskUsageBytes(s.diskPaths()...)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// diskPaths lists the local paths the service writes to.
func (s *Server) diskPaths() []string {
	paths := []string{s.config.Upload.TempDir}
	if s.config.Storage.Driver != "mongo" {
		paths = append(paths, s.config.Storage.DatabasePath)
	}
	if s.config.Catalog.IndexPath != "" {
		paths = append(paths, s.config.Catalog.IndexPath)
	}
	return paths
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, parseMessage(err))
		return
	}
	defer func() { _ = form.RemoveAll() }()

	files, err := readFiles(form, "files", "file")
	if err != nil {
		s.logger.Error("upload: reading files failed", zap.Error(err))
		s.respondError(w, http.StatusBadRequest, msgInvalidForm)
		return
	}
	req := uploadForm{
		Title:   firstValue(form, "title"),
		Caption: firstValue(form, "caption", "description"),
		Files:   len(files),
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, formMessage(err))
		return
	}

	s.logger.Debug("upload request", zap.String("title", req.Title), zap.Int("files", len(files)))
	result, err := s.videos.Upload(r.Context(), videos.UploadRequest{Title: req.Title, Caption: req.Caption, Files: files})
	if err != nil {
		s.respondServiceError(w, "upload", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{
		Status:      models.StatusSuccess,
		Message:     result.Message,
		ProductInfo: result.ProductInfo,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	// chi hands back the escaped segment whenever the request path carries a RawPath.
	title, err := url.PathUnescape(chi.URLParam(r, "title"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidTitle)
		return
	}
	s.logger.Debug("search request", zap.String("title", title))
	found, err := s.videos.Search(r.Context(), title)
	if err != nil {
		s.respondServiceError(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, Videos: found})
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := s.videos.Listings(r.Context(), chi.URLParam(r, "video_id"))
	if err != nil {
		s.respondServiceError(w, "listings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, Listings: listings})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	limit := videos.DefaultCompareLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || s.validate.Var(n, "min=1,max=50") != nil {
			s.respondError(w, http.StatusBadRequest, msgInvalidLimit)
			return
		}
		limit = n
	}
	found, err := s.videos.Comparable(r.Context(), chi.URLParam(r, "video_id"), limit)
	if err != nil {
		s.respondServiceError(w, "compare", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, ComparableVideos: found})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.videos.Analytics(r.Context(), chi.URLParam(r, "video_id"))
	if err != nil {
		s.respondServiceError(w, "analytics", err)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, Analytics: analytics})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	file, ok := s.singleFile(w, r)
	if !ok {
		return
	}
	result, err := s.videos.AnalyzeProduct(r.Context(), file)
	var perr *ai.ProviderError
	if errors.As(err, &perr) && result != nil {
		s.logger.Error("analyze: provider failed", zap.String("provider", perr.Provider), zap.Error(err))
		s.respondJSON(w, http.StatusBadGateway, result)
		return
	}
	if err != nil {
		s.respondServiceError(w, "analyze", err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	file, ok := s.singleFile(w, r)
	if !ok {
		return
	}
	labels, err := s.videos.DetectLabels(r.Context(), file)
	if err != nil {
		s.respondServiceError(w, "detect", err)
		return
	}
	if labels == nil {
		labels = []models.Label{}
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, Labels: labels})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if s.validate.Var(title, "required") != nil {
		s.respondError(w, http.StatusBadRequest, msgTitleRequired)
		return
	}
	s.respondJSON(w, http.StatusOK, &models.Response{Status: models.StatusSuccess, Category: s.videos.Classify(title)})
}

// singleFile reads the one file of an analyze or detect request, answering the client itself
// when the form is unusable.
func (s *Server) singleFile(w http.ResponseWriter, r *http.Request) (media.Upload, bool) {
	form, err := s.parseMultipart(w, r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, parseMessage(err))
		return media.Upload{}, false
	}
	defer func() { _ = form.RemoveAll() }()

	files, err := readFiles(form, "file", "files")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, msgInvalidForm)
		return media.Upload{}, false
	}
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, media.ReasonNoFiles)
		return media.Upload{}, false
	}
	return files[0], true
}

// parseMultipart bounds the body by the configured upload limits and parses it.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	maxBody := int64(s.config.Upload.MaxFiles+1) * s.config.Upload.MaxFileSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	return r.MultipartForm, nil
}

// parseMessage reports a body over the upload limits as a size error rather than a malformed form.
func parseMessage(err error) string {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return media.ReasonFileTooLarge
	}
	return msgInvalidForm
}

// readFiles reads the files of the first field in fields that has any.
func readFiles(form *multipart.Form, fields ...string) ([]media.Upload, error) {
	for _, field := range fields {
		headers := form.File[field]
		if len(headers) == 0 {
			continue
		}
		uploads := make([]media.Upload, 0, len(headers))
		for _, fh := range headers {
			data, err := readPart(fh)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, media.Upload{
				Filename:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
		return uploads, nil
	}
	return nil, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return data, nil
}

func firstValue(form *multipart.Form, fields ...string) string {
	for _, field := range fields {
		if v := form.Value[field]; len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return ""
}

// formMessage turns the first failed form rule into a client message.
func formMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msgInvalidForm
	}
	fe := verrs[0]
	switch {
	case fe.Field() == "Files":
		return media.ReasonNoFiles
	case fe.Field() == "Title" && fe.Tag() == "required":
		return msgTitleRequired
	default:
		return fmt.Sprintf("%s is too long", fe.Field())
	}
}

// respondServiceError maps a videos.Service error to a status code and error envelope.
func (s *Server) respondServiceError(w http.ResponseWriter, handler string, err error) {
	var verr *media.ValidationError
	var perr *ai.ProviderError
	switch {
	case errors.As(err, &verr):
		s.respondError(w, http.StatusBadRequest, verr.Reason)
	case errors.Is(err, videos.ErrInvalidID):
		s.respondError(w, http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, videos.ErrReferenceNotFound):
		s.respondError(w, http.StatusNotFound, msgReferenceNotFound)
	case errors.Is(err, ai.ErrNotConfigured):
		s.respondError(w, http.StatusNotImplemented, err.Error())
	case errors.As(err, &perr):
		s.logger.Error(handler+": provider failed", zap.String("provider", perr.Provider), zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error(handler+" failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse(message))
}
