/**
 * Configuration for the Lab Report Worker
 *
 * Precedence: command line flags, then LABREPORT_* environment variables
 * (a .env file is loaded by main before this runs), then defaults.
 */

package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeServer = "server"
	ModeStdio  = "stdio"

	// Default values
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8000
	DefaultRedisURL           = "redis://localhost:6379"
	DefaultQueueName          = "labreport:jobs"
	DefaultWorkerConcurrency  = 4
	DefaultProcessingTimeout  = 120000           // 2 minutes, in milliseconds
	DefaultMaxFileSize        = 20 * 1024 * 1024 // 20MB
	DefaultOCRLanguage        = "eng"
	DefaultWordGapFactor      = 1.0
	DefaultRowThreshold       = 15.0
	DefaultReferenceLookahead = 2
	DefaultLogLevel           = "info"

	envPrefix = "LABREPORT"
)

// Config holds worker configuration
type Config struct {
	// Run mode
	Mode      string
	ImagePath string // one-shot CLI run when set

	// HTTP server
	Host string
	Port int

	// Queue
	RedisURL          string
	QueueName         string
	QueueEnabled      bool
	WorkerConcurrency int
	ProcessingTimeout int // milliseconds

	// Processing
	MaxFileSize        int64
	OCRLanguage        string
	WordGapFactor      float64
	RowThreshold       float64
	ReferenceLookahead int

	// Application
	LogLevel   string
	ServerName string
	Version    string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:               ModeServer,
		Host:               DefaultHost,
		Port:               DefaultPort,
		RedisURL:           DefaultRedisURL,
		QueueName:          DefaultQueueName,
		QueueEnabled:       false,
		WorkerConcurrency:  DefaultWorkerConcurrency,
		ProcessingTimeout:  DefaultProcessingTimeout,
		MaxFileSize:        DefaultMaxFileSize,
		OCRLanguage:        DefaultOCRLanguage,
		WordGapFactor:      DefaultWordGapFactor,
		RowThreshold:       DefaultRowThreshold,
		ReferenceLookahead: DefaultReferenceLookahead,
		LogLevel:           DefaultLogLevel,
		ServerName:         "labreport-worker",
		Version:            "1.0.0",
	}
}

// Load parses args and the environment into a validated Config
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fs := pflag.NewFlagSet("labreport-worker", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	defineFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	populate(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// defineFlags declares every flag with the config's current value as default
func defineFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.String("mode", cfg.Mode, "Run mode: 'server' for HTTP and queue worker, 'stdio' for MCP")
	fs.String("image", cfg.ImagePath, "Process a single image file and print the result")
	fs.String("host", cfg.Host, "HTTP listen host")
	fs.Int("port", cfg.Port, "HTTP listen port")
	fs.String("redis-url", cfg.RedisURL, "Redis URL for the job queue")
	fs.String("queue-name", cfg.QueueName, "Queue name for lab report jobs")
	fs.Bool("queue-enabled", cfg.QueueEnabled, "Consume and accept queued jobs")
	fs.Int("worker-concurrency", cfg.WorkerConcurrency, "Number of concurrent queue workers")
	fs.Int("processing-timeout", cfg.ProcessingTimeout, "Processing timeout in milliseconds")
	fs.Int64("max-file-size", cfg.MaxFileSize, "Maximum image size in bytes")
	fs.String("ocr-language", cfg.OCRLanguage, "Tesseract language(s), e.g. eng or eng+fra")
	fs.Float64("word-gap-factor", cfg.WordGapFactor, "Max word gap, in word heights, when joining OCR words into phrases")
	fs.Float64("row-threshold", cfg.RowThreshold, "Vertical tolerance for grouping fragments into rows")
	fs.Int("reference-lookahead", cfg.ReferenceLookahead, "Rows searched below a list entry for its reference range")
	fs.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// populate fills the config struct from viper
func populate(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString("mode")
	cfg.ImagePath = v.GetString("image")
	cfg.Host = v.GetString("host")
	cfg.Port = v.GetInt("port")
	cfg.RedisURL = v.GetString("redis-url")
	cfg.QueueName = v.GetString("queue-name")
	cfg.QueueEnabled = v.GetBool("queue-enabled")
	cfg.WorkerConcurrency = v.GetInt("worker-concurrency")
	cfg.ProcessingTimeout = v.GetInt("processing-timeout")
	cfg.MaxFileSize = v.GetInt64("max-file-size")
	cfg.OCRLanguage = v.GetString("ocr-language")
	cfg.WordGapFactor = v.GetFloat64("word-gap-factor")
	cfg.RowThreshold = v.GetFloat64("row-threshold")
	cfg.ReferenceLookahead = v.GetInt("reference-lookahead")
	cfg.LogLevel = v.GetString("log-level")
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeServer && c.Mode != ModeStdio {
		return errors.New("mode must be either 'server' or 'stdio'")
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.QueueEnabled && c.RedisURL == "" {
		return errors.New("redis URL is required when the queue is enabled")
	}

	if c.QueueEnabled && c.QueueName == "" {
		return errors.New("queue name is required when the queue is enabled")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("worker concurrency must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ProcessingTimeout < 1000 {
		return fmt.Errorf("processing timeout must be at least 1000ms, got %d", c.ProcessingTimeout)
	}

	if c.MaxFileSize < 1024 || c.MaxFileSize > 104857600 { // 1KB to 100MB
		return fmt.Errorf("max file size must be between 1KB and 100MB, got %d", c.MaxFileSize)
	}

	if c.OCRLanguage == "" {
		return errors.New("OCR language cannot be empty")
	}

	if c.WordGapFactor <= 0 {
		return fmt.Errorf("word gap factor must be positive, got %v", c.WordGapFactor)
	}

	if c.RowThreshold <= 0 {
		return fmt.Errorf("row threshold must be positive, got %v", c.RowThreshold)
	}

	if c.ReferenceLookahead < 0 || c.ReferenceLookahead > 5 {
		return fmt.Errorf("reference lookahead must be between 0 and 5, got %d", c.ReferenceLookahead)
	}

	return nil
}

// IsStdioMode returns true when serving MCP over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
