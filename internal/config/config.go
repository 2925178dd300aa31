// Package config provides configuration loading and structs for the Miru server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Encoder EncoderConfig `yaml:"encoder"`
	Video   VideoConfig   `yaml:"video"`
	Search  SearchConfig  `yaml:"search"`
	Scan    ScanConfig    `yaml:"scan"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the metadata database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
	NameIndexPath   string `yaml:"name_index_path"`
}

// EncoderConfig holds CLIP ONNX encoder settings.
type EncoderConfig struct {
	VisualModelPath string `yaml:"visual_model_path"`
	TextModelPath   string `yaml:"text_model_path"`
	// Dimensions is the embedding dimension declared by the encoder. It is fixed
	// per deployment and not tunable at runtime.
	Dimensions int    `yaml:"dimensions"`
	ImageSize  int    `yaml:"image_size"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	CachePath  string `yaml:"cache_path"`
}

// VideoConfig holds frame sampling settings.
type VideoConfig struct {
	// FrameIntervalSec is the time spacing in seconds between sampled frames.
	FrameIntervalSec float64 `yaml:"frame_interval_sec"`
	// EmbedBatchSize bounds how many frames are embedded per encoder call.
	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// SearchConfig holds result limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// ScanConfig holds include/exclude glob patterns for batch directory registration.
type ScanConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.NameIndexPath = expandPath(cfg.Storage.NameIndexPath, configDir)
	cfg.Encoder.VisualModelPath = expandPath(cfg.Encoder.VisualModelPath, configDir)
	cfg.Encoder.TextModelPath = expandPath(cfg.Encoder.TextModelPath, configDir)
	cfg.Encoder.CachePath = expandPath(cfg.Encoder.CachePath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
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
