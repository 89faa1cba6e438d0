package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after positionals are moved first",
			args:     []string{"photo.jpg", "-output", "json"},
			expected: []string{"-output", "json", "photo.jpg"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-output", "json", "photo.jpg"},
			expected: []string{"-output", "json", "photo.jpg"},
		},
		{
			name:     "stdin dash is positional",
			args:     []string{"-"},
			expected: []string{"-"},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"Samsung", "Galaxy", "-config", "c.yaml"},
			expected: []string{"-config", "c.yaml", "Samsung", "Galaxy"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput("-", strings.NewReader("from stdin"))
	if err != nil || string(got) != "from stdin" {
		t.Errorf("stdin: %q %v", got, err)
	}
	path := filepath.Join(t.TempDir(), "response.txt")
	if err := os.WriteFile(path, []byte("from file"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = readInput(path, nil)
	if err != nil || string(got) != "from file" {
		t.Errorf("file: %q %v", got, err)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
storage:
  database_path: "./videos.db"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_fallsBackToDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := os.Stat(defaultConfigPath); err == nil {
		t.Skip("a system config exists")
	}
	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != "" || cfg.Upload.MaxFiles != 3 {
		t.Errorf("resolved %q, cfg %+v", resolved, cfg.Upload)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
classifier:
  categories:
    - name: toys
      keywords: [lego]
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath || cfg.Server.Port != 9000 {
		t.Errorf("resolved %s, server %+v", resolved, cfg.Server)
	}
	if got := newClassifier(cfg).Classify("LEGO Technic set"); got != "toys" {
		t.Errorf("classify with custom rules = %q", got)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestStatusViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","videos":7,"disk_usage_bytes":1024,"providers":{"analyzer":"gemini"}}`))
	}))
	defer srv.Close()

	status, err := statusViaHTTP(srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	if status.Videos != 7 || status.DiskUsageBytes == nil || *status.DiskUsageBytes != 1024 || status.Providers["analyzer"] != "gemini" {
		t.Errorf("status = %+v", status)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	if _, err := statusViaHTTP(failing.Client(), failing.URL); err == nil {
		t.Error("expected error for 503")
	}
}
