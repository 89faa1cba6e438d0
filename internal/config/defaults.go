package config

import (
	"os"
	"path/filepath"
	"time"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitRequests == 0 {
		cfg.Server.RateLimitRequests = 30
	}
	if cfg.Server.RateLimitWindow == 0 {
		cfg.Server.RateLimitWindow = time.Minute
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/shohin/data/db/videos.db"
	}
	if cfg.Storage.MongoDatabase == "" {
		cfg.Storage.MongoDatabase = "shohin"
	}
	if cfg.Upload.MaxFiles == 0 {
		cfg.Upload.MaxFiles = 3
	}
	if cfg.Upload.MaxFileSizeMB == 0 {
		cfg.Upload.MaxFileSizeMB = 100
	}
	if cfg.Upload.MaxVideoMinutes == 0 {
		cfg.Upload.MaxVideoMinutes = 20
	}
	if cfg.Upload.MinImageWidth == 0 {
		cfg.Upload.MinImageWidth = 800
	}
	if cfg.Upload.MinImageHeight == 0 {
		cfg.Upload.MinImageHeight = 600
	}
	if cfg.Upload.AllowedImageTypes == nil {
		cfg.Upload.AllowedImageTypes = []string{"image/jpeg", "image/png"}
	}
	if cfg.Upload.AllowedVideoTypes == nil {
		cfg.Upload.AllowedVideoTypes = []string{"video/mp4", "video/mkv"}
	}
	if cfg.Upload.TempDir == "" {
		cfg.Upload.TempDir = filepath.Join(os.TempDir(), "shohin-uploads")
	}
	if cfg.Upload.SweepSchedule == "" {
		cfg.Upload.SweepSchedule = "@every 30m"
	}
	if cfg.Upload.SweepMaxAge == 0 {
		cfg.Upload.SweepMaxAge = time.Hour
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "gemini"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-1.5-pro-latest"
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.AI.VisionLabels == 0 {
		cfg.AI.VisionLabels = 10
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 90 * time.Second
	}
	if cfg.Catalog.Extensions == nil {
		cfg.Catalog.Extensions = []string{".yaml", ".yml", ".xlsx"}
	}
}
