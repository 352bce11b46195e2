package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Input is a video file, a local directory, or an s3://bucket/prefix
	// location on the configured MinIO endpoint.
	Input     string `env:"INPUT"`
	OutputDir string `env:"OUTPUT_DIR" envDefault:"./transcripts"`
	// Format selects the transcript encodings: txt, json, or both.
	Format string `env:"FORMAT" envDefault:"txt"`

	MinChunkSeconds float64 `env:"MIN_CHUNK_SECONDS" envDefault:"10"`
	MaxChunkSeconds float64 `env:"MAX_CHUNK_SECONDS" envDefault:"25"`
	FramesPerChunk  int     `env:"FRAMES_PER_CHUNK"  envDefault:"3"`
	SceneThreshold  float64 `env:"SCENE_THRESHOLD"   envDefault:"0.3"`
	ContextTurns    int     `env:"CONTEXT_TURNS"     envDefault:"12"`

	APIKey               string `env:"ANTHROPIC_API_KEY"`
	Model                string `env:"MODEL"                   envDefault:"haiku"`
	GeneratorMaxRetries  int    `env:"GENERATOR_MAX_RETRIES"   envDefault:"3"`
	GeneratorBaseDelayMs int    `env:"GENERATOR_BASE_DELAY_MS" envDefault:"1000"`
	GeneratorTimeoutSec  int    `env:"GENERATOR_TIMEOUT_SEC"   envDefault:"120"`
	ChunkPauseMs         int    `env:"CHUNK_PAUSE_MS"          envDefault:"500"`

	MaxVideos   int `env:"MAX_VIDEOS"   envDefault:"0"`
	WorkerCount int `env:"WORKER_COUNT" envDefault:"1"`

	LedgerPath string `env:"LEDGER_PATH" envDefault:"./vid2script.db"`
	TempDir    string `env:"TEMP_DIR"    envDefault:""`

	MinIOEndpoint         string `env:"MINIO_ENDPOINT"          envDefault:""`
	MinIOAccessKey        string `env:"MINIO_ACCESS_KEY"        envDefault:"minioadmin"`
	MinIOSecretKey        string `env:"MINIO_SECRET_KEY"        envDefault:"minioadmin"`
	MinIOUseSSL           bool   `env:"MINIO_USE_SSL"           envDefault:"false"`
	MinIOTranscriptBucket string `env:"MINIO_TRANSCRIPT_BUCKET" envDefault:"transcripts"`

	SMTPHost    string `env:"SMTP_HOST"    envDefault:""`
	SMTPPort    int    `env:"SMTP_PORT"    envDefault:"1025"`
	SMTPFrom    string `env:"SMTP_FROM"    envDefault:"noreply@vid2script.local"`
	NotifyEmail string `env:"NOTIFY_EMAIL" envDefault:""`

	MetricsPort  int    `env:"METRICS_PORT"  envDefault:"0"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" envDefault:""`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"info"`
}

// Load reads an optional .env file, then the environment. Flag parsing in
// cmd overrides the result afterwards.
func Load() (*Config, error) {
	// Missing .env is the common case; only the environment is required.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants a run cannot start without.
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input is required (flag -input or env INPUT)")
	}
	if c.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	if c.MinChunkSeconds <= 0 {
		return fmt.Errorf("min chunk seconds must be positive, got %v", c.MinChunkSeconds)
	}
	if c.MaxChunkSeconds < c.MinChunkSeconds {
		return fmt.Errorf("max chunk seconds (%v) must be >= min chunk seconds (%v)",
			c.MaxChunkSeconds, c.MinChunkSeconds)
	}
	if c.FramesPerChunk <= 0 {
		return fmt.Errorf("frames per chunk must be positive, got %d", c.FramesPerChunk)
	}
	if c.SceneThreshold <= 0 || c.SceneThreshold >= 1 {
		return fmt.Errorf("scene threshold must be in (0, 1), got %v", c.SceneThreshold)
	}
	if c.ContextTurns < 0 {
		return fmt.Errorf("context turns must not be negative, got %d", c.ContextTurns)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if _, err := c.Formats(); err != nil {
		return err
	}
	return nil
}

// Formats expands the Format selector into the list of file extensions to
// write.
func (c *Config) Formats() ([]string, error) {
	switch c.Format {
	case "txt":
		return []string{"txt"}, nil
	case "json":
		return []string{"json"}, nil
	case "both":
		return []string{"txt", "json"}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want txt, json, or both)", c.Format)
	}
}
