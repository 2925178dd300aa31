// Package main is the Miru CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/miru/internal/cli"
	"github.com/hyperjump/miru/internal/config"
	"github.com/hyperjump/miru/internal/embedding"
	"github.com/hyperjump/miru/internal/keyword"
	"github.com/hyperjump/miru/internal/library"
	"github.com/hyperjump/miru/internal/media"
	"github.com/hyperjump/miru/internal/models"
	"github.com/hyperjump/miru/internal/search"
	"github.com/hyperjump/miru/internal/server"
	"github.com/hyperjump/miru/internal/storage"
	"github.com/hyperjump/miru/internal/vector"
	"github.com/hyperjump/miru/internal/video"
	"github.com/hyperjump/miru/internal/watcher"
	"github.com/hyperjump/miru/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miru/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "miru server" from the project dir picks up the
// project's config.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "register":
		runRegister()
	case "search":
		runSearch()
	case "remove":
		runRemove()
	case "clear":
		runClear()
	case "status":
		runStatus()
	case "probe":
		runProbe()
	case "version", "--version", "-v":
		fmt.Printf("miru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	engine := components.Engine
	watchOpts := []watcher.Option{}
	if debugMode {
		watchOpts = append(watchOpts, watcher.WithLogger(logger))
	}
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			if _, err := engine.Reindex(context.Background(), path); err != nil {
				logger.Warn("watch reindex failed", zap.String("path", path), zap.Error(err))
			}
		},
		func(path string) {
			if _, err := engine.RemoveByPath(context.Background(), path); err != nil {
				logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
			}
		},
		watchOpts...,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Watch.Directories) > 0 {
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(engine, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runRegister() {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru register [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		bar := cli.NewProgressBar(-1, "registering")
		result, err := components.Engine.RegisterBatch(ctx, path, func() { _ = bar.Add(1) })
		_ = bar.Finish()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Batch registration failed: %v\n", err)
			os.Exit(1)
		}
		cli.WriteBatchResult(os.Stdout, result)
		return
	}

	id, err := components.Engine.Register(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Registration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Registered %s with id %d\n", path, id)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	queryType := fs.String("type", "text", "query type: text, image, video, or name")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru search [flags] <query-text-or-media-path>")
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	query := &models.SearchQuery{
		Query: fs.Arg(0),
		Type:  models.QueryType(*queryType),
		Limit: *limit,
	}
	response, err := components.Engine.Search(context.Background(), query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runRemove() {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru remove [flags] <record-id>")
		os.Exit(1)
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid record id: %s\n", fs.Arg(0))
		os.Exit(1)
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	if err := components.Engine.Remove(context.Background(), id); err != nil {
		fmt.Fprintf(os.Stderr, "Removal failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed record %d\n", id)
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation")
	_ = fs.Parse(os.Args[2:])

	if !*yes {
		fmt.Print("Remove all registered media? [y/N] ")
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return
		}
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	if err := components.Engine.Clear(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Clear failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Library cleared")
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	info, err := components.Engine.Info(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteInfo(os.Stdout, info, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runProbe() {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: miru probe [flags] <video-file>")
		os.Exit(1)
	}

	components, _ := mustInitialize(*configPath)
	defer components.Close()

	info, err := components.Engine.VideoInfo(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Probe failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Duration: %.2fs\n", info.DurationSec)
	fmt.Printf("FPS:      %.2f\n", info.FPS)
	fmt.Printf("Frames:   %d\n", info.TotalFrames)
	fmt.Printf("Size:     %dx%d\n", info.Width, info.Height)
}

// mustInitialize loads config, builds the logger, and wires all components,
// exiting on any failure. Used by the one-shot CLI commands.
func mustInitialize(configPath string) (*Components, *config.Config) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return components, cfg
}

// Components holds initialized services.
type Components struct {
	Engine    *search.Engine
	Library   *library.Library
	DiskCache *embedding.DiskCache
}

func (c *Components) Close() {
	if c.Engine != nil {
		_ = c.Engine.Close()
	}
	if c.DiskCache != nil {
		_ = c.DiskCache.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	encoder, err := newEncoder(cfg, logger)
	if err != nil {
		return nil, err
	}

	embedOpts := []embedding.EmbedderOption{}
	if cfg.Encoder.CacheSize > 0 {
		embedOpts = append(embedOpts, embedding.WithTextCache(cfg.Encoder.CacheSize))
	}
	var diskCache *embedding.DiskCache
	if cfg.Encoder.CachePath != "" {
		diskCache, err = embedding.OpenDiskCache(cfg.Encoder.CachePath)
		if err != nil {
			logger.Warn("text embedding disk cache unavailable",
				zap.String("path", cfg.Encoder.CachePath), zap.Error(err))
		} else {
			embedOpts = append(embedOpts, embedding.WithDiskCache(diskCache))
		}
	}
	embedder := embedding.NewEmbedder(encoder, embedOpts...)

	samplerOpts := []media.SamplerOption{}
	aggOpts := []video.AggregatorOption{video.WithBatchSize(cfg.Video.EmbedBatchSize)}
	if debug {
		samplerOpts = append(samplerOpts, media.WithLogger(logger))
		aggOpts = append(aggOpts, video.WithLogger(logger))
	}
	sampler := media.NewSampler(media.NewFFmpegDecoder(), samplerOpts...)
	aggregator := video.NewAggregator(embedder, sampler, aggOpts...)

	index, err := vector.NewIndex("flat", embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	names, err := keyword.NewNameIndex(cfg.Storage.NameIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize name index: %w", err)
	}

	libOpts := []library.Option{}
	if debug {
		libOpts = append(libOpts, library.WithLogger(logger))
	}
	lib := library.New(index, store, names, cfg.Storage.VectorIndexPath, libOpts...)
	if err := lib.Load(context.Background()); err != nil {
		_ = lib.Close()
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	engineOpts := []search.EngineOption{}
	if debug {
		engineOpts = append(engineOpts, search.WithLogger(logger))
	}
	engine := search.NewEngine(lib, embedder, aggregator, sampler, cfg, engineOpts...)

	return &Components{Engine: engine, Library: lib, DiskCache: diskCache}, nil
}

// newEncoder builds the CLIP ONNX encoder, falling back to the deterministic
// mock when the models cannot be loaded (missing files or a build without the
// runtime).
func newEncoder(cfg *config.Config, logger *zap.Logger) (embedding.Encoder, error) {
	encoder, err := embedding.NewONNXEncoder(
		cfg.Encoder.VisualModelPath,
		cfg.Encoder.TextModelPath,
		cfg.Encoder.Dimensions,
		cfg.Encoder.ImageSize,
		cfg.Encoder.MaxTokens,
	)
	if err != nil {
		logger.Warn("ONNX encoder unavailable, using mock embeddings", zap.Error(err))
		return embedding.NewMockEncoder(cfg.Encoder.Dimensions), nil
	}
	logger.Info("ONNX encoder initialized",
		zap.String("visual_model", cfg.Encoder.VisualModelPath),
		zap.String("text_model", cfg.Encoder.TextModelPath),
		zap.Int("dimensions", cfg.Encoder.Dimensions))
	return encoder, nil
}

func printUsage() {
	fmt.Println(`miru - local media search over CLIP embeddings

Usage:
  miru server [flags]             Start the HTTP server (and directory watcher)
  miru register [flags] <path>    Register a media file, or a directory of them
  miru search [flags] <query>     Search registered media
  miru remove [flags] <id>        Remove a record by id
  miru clear [flags]              Remove all records
  miru status [flags]             Show library status
  miru probe [flags] <video>      Show video stream information
  miru version                    Show version
  miru help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/miru/config.yaml;
                     config.yaml in the current directory takes precedence)

Search Flags:
  --type string      Query type: text, image, video, or name (default: text)
  --limit int        Number of results (default from config)
  --output string    Output format: text or json (default: text)

Examples:
  miru server
  miru register ~/Pictures
  miru register ~/Movies/holiday.mp4
  miru search "a dog playing in the snow"
  miru search --type image query.jpg
  miru search --type name sunset
  miru search --output json "city at night"
  miru remove 42
  miru status --output json
  miru probe ~/Movies/holiday.mp4`)
}
