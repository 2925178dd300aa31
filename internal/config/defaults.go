package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/miru/data/db/media.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/miru/data/indices/vectors.bin"
	}
	if cfg.Storage.NameIndexPath == "" {
		cfg.Storage.NameIndexPath = "/usr/local/var/miru/data/indices/names"
	}
	if cfg.Encoder.VisualModelPath == "" {
		cfg.Encoder.VisualModelPath = "/usr/local/var/miru/data/models/clip-visual.onnx"
	}
	if cfg.Encoder.TextModelPath == "" {
		cfg.Encoder.TextModelPath = "/usr/local/var/miru/data/models/clip-text.onnx"
	}
	if cfg.Encoder.Dimensions == 0 {
		cfg.Encoder.Dimensions = 256
	}
	if cfg.Encoder.ImageSize == 0 {
		cfg.Encoder.ImageSize = 224
	}
	if cfg.Encoder.MaxTokens == 0 {
		cfg.Encoder.MaxTokens = 77
	}
	if cfg.Encoder.CacheSize == 0 {
		cfg.Encoder.CacheSize = 10000
	}
	if cfg.Video.FrameIntervalSec == 0 {
		cfg.Video.FrameIntervalSec = 10.0
	}
	if cfg.Video.EmbedBatchSize == 0 {
		cfg.Video.EmbedBatchSize = 16
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 5
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Scan.Includes == nil {
		cfg.Scan.Includes = []string{"**/*"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
