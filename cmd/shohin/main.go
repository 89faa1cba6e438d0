// Package main is the Shohin CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/ai"
	"github.com/hyperjump/shohin/internal/catalog"
	"github.com/hyperjump/shohin/internal/classify"
	"github.com/hyperjump/shohin/internal/cli"
	"github.com/hyperjump/shohin/internal/config"
	"github.com/hyperjump/shohin/internal/media"
	"github.com/hyperjump/shohin/internal/server"
	"github.com/hyperjump/shohin/internal/storage"
	"github.com/hyperjump/shohin/internal/videos"
	"github.com/hyperjump/shohin/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shohin/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the current
// directory is preferred if present, and a missing default file falls back to defaults plus
// environment. Returns the config and the path actually loaded ("" for the fallback).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				cfg, err := config.Load(local)
				if err != nil {
					return nil, "", err
				}
				return cfg, local, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg, err := config.FromEnv()
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "analyze":
		runAnalyze()
	case "parse":
		runParse()
	case "classify":
		runClassify()
	case "seed":
		runSeed()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shohin version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// argsReorder moves any flags that appear after the positional arguments to the front so
// flag.Parse sees them; the flag package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 1 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// readInput reads the named file, or r when name is "-".
func readInput(name string, r io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(r)
	}
	return os.ReadFile(name)
}

// setup loads config and builds the logger, exiting on failure.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolved := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug || *debug))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if len(cfg.Catalog.Directories) > 0 {
		w, err := components.Syncer.Watch(ctx, cfg.Catalog.Directories, cfg.Catalog.Extensions)
		if err != nil {
			logger.Fatal("Failed to watch catalog", zap.Error(err))
		}
		defer w.Stop()
	}

	sweeper, err := media.NewSweeper(cfg.Upload.TempDir, cfg.Upload.SweepSchedule, cfg.Upload.SweepMaxAge, logger)
	if err != nil {
		logger.Fatal("Failed to schedule temp sweeping", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := server.NewServer(components.Service, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: shohin analyze [flags] <image>")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()

	gen, err := ai.NewGenerator(ctx, cfg.AI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analyzer unavailable: %v\n", err)
		os.Exit(1)
	}
	analyzer := ai.NewAnalyzer(gen, ai.WithLogger(logger), ai.WithTimeout(cfg.AI.Timeout))

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		os.Exit(1)
	}
	checked, err := media.NewValidator(cfg.Upload, media.WithLogger(logger)).
		Validate(ctx, media.Upload{Filename: filepath.Base(path), Data: data})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Rejected: %v\n", err)
		os.Exit(1)
	}
	if checked.Kind != media.KindImage {
		fmt.Fprintln(os.Stderr, "Rejected: analyze takes an image")
		os.Exit(1)
	}

	result, err := analyzer.Analyze(ctx, ai.Media{MIME: checked.MIME, Data: checked.Data})
	if werr := cli.WriteAnalysis(os.Stdout, result, format); werr != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", werr)
		os.Exit(1)
	}
	if err != nil {
		os.Exit(1)
	}
}

func runParse() {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: shohin parse [flags] <file|->")
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	text, err := readInput(fs.Arg(0), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnalysis(os.Stdout, ai.ParseText(string(text)), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runClassify() {
	fs := flag.NewFlagSet("classify", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for custom categories)")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	title := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if title == "" {
		fmt.Println("Usage: shohin classify [flags] <title...>")
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(newClassifier(cfg).Classify(title))
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: shohin seed [flags] <catalog-file>...")
		os.Exit(1)
	}

	cfg, logger, _ := setup(*configPath, false)
	defer logger.Sync()
	ctx := context.Background()

	store, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	matcher, err := catalog.NewMatcher("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create matcher: %v\n", err)
		os.Exit(1)
	}
	defer matcher.Close()

	syncer := catalog.NewSyncer(store, matcher, catalog.WithLogger(logger))
	for _, path := range fs.Args() {
		n, err := syncer.SyncFile(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Seeding %s failed: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d video(s) from %s\n", n, path)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	status, err := statusViaHTTP(http.DefaultClient, *serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func statusViaHTTP(client *http.Client, serverURL string) (*cli.Status, error) {
	resp, err := client.Get(strings.TrimRight(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s cli.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func newClassifier(cfg *config.Config) *classify.Classifier {
	return classify.NewClassifier(cfg.Classifier.Categories)
}

// Components holds initialized services.
type Components struct {
	Storage storage.Storage
	Matcher *catalog.Matcher
	Syncer  *catalog.Syncer
	Service *videos.Service
}

func (c *Components) Close() {
	if c.Matcher != nil {
		_ = c.Matcher.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// initializeComponents opens the store and catalog and wires the video service. Providers
// without credentials are left out with a warning; the routes that need them answer 501.
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.Open(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	matcher, err := catalog.NewMatcher(cfg.Catalog.IndexPath)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize catalog matcher: %w", err)
	}
	c := &Components{
		Storage: store,
		Matcher: matcher,
		Syncer:  catalog.NewSyncer(store, matcher, catalog.WithLogger(logger)),
	}

	opts := []videos.Option{videos.WithLogger(logger), videos.WithCatalog(matcher)}
	gen, err := ai.NewGenerator(ctx, cfg.AI)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("Product analysis disabled", zap.Error(err))
	case err != nil:
		c.Close()
		return nil, fmt.Errorf("failed to initialize analyzer: %w", err)
	default:
		analyzer := ai.NewAnalyzer(gen, ai.WithLogger(logger), ai.WithTimeout(cfg.AI.Timeout))
		opts = append(opts, videos.WithAnalyzer(analyzer))
		logger.Info("Product analysis enabled", zap.String("provider", gen.Name()))
	}

	labeler, err := ai.NewVisionLabeler(ctx, cfg.AI.VisionAPIKey, cfg.AI.VisionLabels)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("Label detection disabled", zap.Error(err))
	case err != nil:
		c.Close()
		return nil, fmt.Errorf("failed to initialize label detection: %w", err)
	default:
		opts = append(opts, videos.WithLabeler(labeler))
	}

	validator := media.NewValidator(cfg.Upload, media.WithLogger(logger), media.WithProber(media.NewProber()))
	c.Service = videos.NewService(store, newClassifier(cfg), validator, opts...)
	return c, nil
}

func printUsage() {
	fmt.Println(`shohin - Product video and image analysis backend

Usage:
  shohin server [flags]              Start the HTTP server
  shohin analyze [flags] <image>     Analyze a product image with the configured model
  shohin parse [flags] <file|->      Parse a saved model response
  shohin classify [flags] <title...> Print the category of a product title
  shohin seed [flags] <file>...      Import catalog files into the store
  shohin status [flags]              Show server status
  shohin version                     Show version
  shohin help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shohin/config.yaml)
  --debug            Enable debug logging

Analyze / Parse Flags:
  --config string    Config file path (analyze only)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Examples:
  shohin server --debug
  shohin analyze --output json ./headphones.jpg
  cat response.txt | shohin parse -
  shohin classify Samsung Galaxy Phone Review
  shohin seed ./catalog/videos.yaml
  shohin status --output json`)
}
