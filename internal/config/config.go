// Package config provides configuration loading and structs for the Shohin server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/shohin/internal/classify"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Upload     UploadConfig     `yaml:"upload"`
	AI         AIConfig         `yaml:"ai"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
	RateLimitRequests  int           `yaml:"rate_limit_requests"`
	RateLimitWindow    time.Duration `yaml:"rate_limit_window"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}

// StorageConfig selects and locates the document store.
type StorageConfig struct {
	Driver        string `yaml:"driver"` // "sqlite" or "mongo"
	DatabasePath  string `yaml:"database_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`
}

// UploadConfig holds the limits uploads are validated against.
type UploadConfig struct {
	MaxFiles          int           `yaml:"max_files"`
	MaxFileSizeMB     int64         `yaml:"max_file_size_mb"`
	MaxVideoMinutes   int           `yaml:"max_video_minutes"`
	MinImageWidth     int           `yaml:"min_image_width"`
	MinImageHeight    int           `yaml:"min_image_height"`
	AllowedImageTypes []string      `yaml:"allowed_image_types"`
	AllowedVideoTypes []string      `yaml:"allowed_video_types"`
	TempDir           string        `yaml:"temp_dir"`
	SweepSchedule     string        `yaml:"sweep_schedule"`
	SweepMaxAge       time.Duration `yaml:"sweep_max_age"`
}

// MaxFileSizeBytes returns the per-file size limit in bytes.
func (u *UploadConfig) MaxFileSizeBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// MaxVideoLength returns the video duration limit.
func (u *UploadConfig) MaxVideoLength() time.Duration {
	return time.Duration(u.MaxVideoMinutes) * time.Minute
}

// AIConfig holds generative model and label detection settings.
type AIConfig struct {
	Provider      string        `yaml:"provider"` // "gemini", "openai", or "none"
	GeminiAPIKey  string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	OpenAIModel   string        `yaml:"openai_model"`
	VisionAPIKey  string        `yaml:"vision_api_key"`
	VisionLabels  int           `yaml:"vision_max_labels"`
	Timeout       time.Duration `yaml:"timeout"`
}

// CatalogConfig holds catalog directories and the title matcher index location.
type CatalogConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	IndexPath   string   `yaml:"index_path"` // empty keeps the matcher in memory
}

// ClassifierConfig overrides the built-in category rules. Order is match order.
type ClassifierConfig struct {
	Categories []classify.Rule `yaml:"categories"`
}

// Load reads and parses the config file at path, applies defaults, environment overrides,
// and expands paths. A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Upload.TempDir = expandPath(cfg.Upload.TempDir, configDir)
	if cfg.Catalog.IndexPath != "" {
		cfg.Catalog.IndexPath = expandPath(cfg.Catalog.IndexPath, configDir)
	}
	for i := range cfg.Catalog.Directories {
		cfg.Catalog.Directories[i] = expandPath(cfg.Catalog.Directories[i], configDir)
	}

	return &cfg, nil
}

// FromEnv returns a config built from defaults and the environment alone, for commands that
// run without a config file.
func FromEnv() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	ApplyDefaults(&cfg)
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnv fills secrets from the environment when the file leaves them empty, and lets the
// upload limit variables override the file.
func applyEnv(cfg *Config) error {
	setIfEmpty(&cfg.AI.GeminiAPIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	setIfEmpty(&cfg.AI.OpenAIAPIKey, "OPENAI_API_KEY")
	setIfEmpty(&cfg.AI.OpenAIBaseURL, "OPENAI_BASE_URL")
	setIfEmpty(&cfg.AI.VisionAPIKey, "VISION_API_KEY")
	setIfEmpty(&cfg.Storage.MongoURI, "MONGO_URI")

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_VIDEO_LENGTH", &cfg.Upload.MaxVideoMinutes},
		{"ALLOWED_IMAGE_HEIGHT", &cfg.Upload.MinImageHeight},
		{"ALLOWED_IMAGE_WIDTH", &cfg.Upload.MinImageWidth},
	}
	for _, v := range ints {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", v.name, err)
		}
		*v.dst = n
	}
	if raw := os.Getenv("MAX_FILE_SIZE"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_FILE_SIZE: %w", err)
		}
		cfg.Upload.MaxFileSizeMB = n
	}
	return nil
}

func setIfEmpty(dst *string, names ...string) {
	if *dst != "" {
		return
	}
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
