package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"subtrans/pkg/icron"
	"subtrans/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults, and a .env
// file loaded before the environment is read.
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (default: ollama)
// - LLM_BASE_URL: OpenAI-compatible endpoint URL (default: http://localhost:11434/v1)
// - LLM_MODEL: Model name to use (default: gpt-oss:20b)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 0, provider decides)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.3)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_WARMUP_TIMEOUT: Timeout in seconds for the first request, local
//   models can take minutes to load (default: 300)
//
// Translate Configuration:
// - TARGET_LANG: Target language, e.g. "German"
// - SOURCE_LANG: Source language (optional)
// - OUTPUT_PATH: Output file or directory (optional)
// - BATCH_SIZE: Subtitle lines per request (default: 10)
// - BILINGUAL: Keep the original text below the translation (default: true)
//
// Watch Configuration:
// - WATCH_CRON: Scan schedule (default: @every 30m)
// - WATCH_DIRS: Directories to scan, separated like PATH
//
// System Configuration:
// - DATA_DIR: Directory for the run history database
// - LOG_LEVEL: debug, info, warn, error (default: info)

type Config struct {
	LLM LLMConfig `json:"llm"`

	Translate TranslateConfig `json:"translate"`

	Watch WatchConfig `json:"watch"`

	System SystemConfig `json:"system"`
}

// LLMConfig holds the configuration for LLM client
// Supports any OpenAI-compatible provider (Ollama, OpenRouter, OpenAI, etc.)
type LLMConfig struct {
	APIKey        string  `json:"api_key"`
	BaseURL       string  `json:"base_url"`
	Model         string  `json:"model"`
	MaxTokens     int     `json:"max_tokens"`
	Temperature   float64 `json:"temperature"`
	Timeout       int     `json:"timeout"`
	WarmupTimeout int     `json:"warmup_timeout"`
}

func (c LLMConfig) WarmupDuration() time.Duration {
	return time.Duration(c.WarmupTimeout) * time.Second
}

type TranslateConfig struct {
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
	OutputPath     string `json:"output_path"`
	BatchSize      int    `json:"batch_size"`
	Bilingual      bool   `json:"bilingual"`
}

type WatchConfig struct {
	CronExpr string   `json:"cron_expr"`
	Dirs     []string `json:"dirs"`
}

// SystemConfig holds the system configuration
type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

// DBPath returns the location of the run history database.
func (c Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "subtrans.db")
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithTargetLanguage(lang string) Option {
	return func(c *Config) { c.Translate.TargetLanguage = lang }
}

func WithSourceLanguage(lang string) Option {
	return func(c *Config) { c.Translate.SourceLanguage = lang }
}

func WithOutputPath(path string) Option {
	return func(c *Config) { c.Translate.OutputPath = path }
}

func WithBatchSize(size int) Option {
	return func(c *Config) { c.Translate.BatchSize = size }
}

func WithBilingual(bilingual bool) Option {
	return func(c *Config) { c.Translate.Bilingual = bilingual }
}

func WithWatchDirs(dirs []string) Option {
	return func(c *Config) { c.Watch.Dirs = dirs }
}

func WithCronExpr(expr string) Option {
	return func(c *Config) { c.Watch.CronExpr = expr }
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment before the configuration is read. Existing variables
// win. A missing default .env is fine; an explicitly named file must
// exist.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			APIKey:        getEnvString("LLM_API_KEY", "ollama"),
			BaseURL:       getEnvString("LLM_BASE_URL", "http://localhost:11434/v1"),
			Model:         getEnvString("LLM_MODEL", "gpt-oss:20b"),
			MaxTokens:     getEnvInt("LLM_MAX_TOKENS", 0),
			Temperature:   getEnvFloat("LLM_TEMPERATURE", 0.3),
			Timeout:       getEnvInt("LLM_TIMEOUT", 60),
			WarmupTimeout: getEnvInt("LLM_WARMUP_TIMEOUT", 300),
		},
		Translate: TranslateConfig{
			TargetLanguage: getEnvString("TARGET_LANG", ""),
			SourceLanguage: getEnvString("SOURCE_LANG", ""),
			OutputPath:     getEnvString("OUTPUT_PATH", ""),
			BatchSize:      getEnvInt("BATCH_SIZE", 10),
			Bilingual:      getEnvBool("BILINGUAL", true),
		},
		Watch: WatchConfig{
			CronExpr: getEnvString("WATCH_CRON", "@every 30m"),
			Dirs:     splitPaths(getEnvString("WATCH_DIRS", "")),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", defaultDataDir()),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: model=%s base_url=%s batch_size=%d target_lang=%q",
		config.LLM.Model, config.LLM.BaseURL, config.Translate.BatchSize, config.Translate.TargetLanguage)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM_BASE_URL is required")
	}
	if c.Translate.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.Translate.BatchSize)
	}
	if c.Watch.CronExpr != "" {
		if err := icron.Validate(c.Watch.CronExpr); err != nil {
			return fmt.Errorf("invalid WATCH_CRON %q: %w", c.Watch.CronExpr, err)
		}
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserCacheDir(); err == nil && dir != "" {
		return filepath.Join(dir, "subtrans")
	}
	return "/app/data"
}

func splitPaths(value string) []string {
	if value == "" {
		return nil
	}
	ret := make([]string, 0)
	for _, dir := range filepath.SplitList(value) {
		if trimmed := strings.TrimSpace(dir); trimmed != "" {
			ret = append(ret, trimmed)
		}
	}
	return ret
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean value from environment variables with default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
