// Package config loads the playback engine's settings through the same
// cascade the rest of the stack uses: a YAML file, then a TOML file, then
// environment variables (optionally from a .env file), then hard-coded
// defaults. Each stage is tried in order; the first one that parses wins.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DecoderConfig configures the local ffmpeg decode step (spec §4.B).
type DecoderConfig struct {
	BinaryPath  string   `yaml:"binary_path" toml:"binary_path" env:"SPINDLE_FFMPEG_BINARY"`
	AudioFormat string   `yaml:"audio_format" toml:"audio_format" env:"SPINDLE_FFMPEG_FORMAT"`
	SampleRate  int      `yaml:"sample_rate" toml:"sample_rate" env:"SPINDLE_FFMPEG_SAMPLE_RATE"`
	Channels    int      `yaml:"channels" toml:"channels" env:"SPINDLE_FFMPEG_CHANNELS"`
	CustomArgs  []string `yaml:"custom_args" toml:"custom_args" env:"SPINDLE_FFMPEG_CUSTOM_ARGS"`
}

// FetcherConfig configures the remote-source fetch process (yt-dlp) and
// bounds how many fetches may run concurrently.
type FetcherConfig struct {
	BinaryPath        string   `yaml:"binary_path" toml:"binary_path" env:"SPINDLE_YTDLP_BINARY"`
	CustomArgs        []string `yaml:"custom_args" toml:"custom_args" env:"SPINDLE_YTDLP_CUSTOM_ARGS"`
	MaxConcurrent     int      `yaml:"max_concurrent" toml:"max_concurrent" env:"SPINDLE_FETCH_MAX_CONCURRENT"`
	CopyBufferBytes   int      `yaml:"copy_buffer_bytes" toml:"copy_buffer_bytes" env:"SPINDLE_FETCH_BUFFER_BYTES"`
}

// OpusConfig configures the Opus encoder used by the Discord sink.
type OpusConfig struct {
	Bitrate   int `yaml:"bitrate" toml:"bitrate" env:"SPINDLE_OPUS_BITRATE"`
	FrameSize int `yaml:"frame_size" toml:"frame_size" env:"SPINDLE_OPUS_FRAME_SIZE"`
}

// RetryConfig configures exponential-backoff retry of transient source
// failures (spec §7).
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" toml:"max_retries" env:"SPINDLE_MAX_RETRIES"`
	BaseDelay  time.Duration `yaml:"base_delay" toml:"base_delay" env:"SPINDLE_BASE_DELAY"`
	MaxDelay   time.Duration `yaml:"max_delay" toml:"max_delay" env:"SPINDLE_MAX_DELAY"`
	Multiplier float64       `yaml:"multiplier" toml:"multiplier" env:"SPINDLE_RETRY_MULTIPLIER"`
}

// LoggerConfig configures the ambient logging stack.
type LoggerConfig struct {
	Level    string `yaml:"level" toml:"level" env:"SPINDLE_LOG_LEVEL"`
	Format   string `yaml:"format" toml:"format" env:"SPINDLE_LOG_FORMAT"`
	SaveToDB bool   `yaml:"save_to_db" toml:"save_to_db" env:"SPINDLE_LOG_SAVE_DB"`
}

// CacheConfig configures the request-resolution cache (spec §4.G).
type CacheConfig struct {
	Backend      string        `yaml:"backend" toml:"backend" env:"SPINDLE_CACHE_BACKEND"` // "memory" or "sqlite"
	SQLitePath   string        `yaml:"sqlite_path" toml:"sqlite_path" env:"SPINDLE_CACHE_SQLITE_PATH"`
	TTL          time.Duration `yaml:"ttl" toml:"ttl" env:"SPINDLE_CACHE_TTL"`
	SweepCron    string        `yaml:"sweep_cron" toml:"sweep_cron" env:"SPINDLE_CACHE_SWEEP_CRON"`
}

// ResolverConfig configures track resolution (spec §4.F): how long a
// resolved request is allowed to sit in the request cache before a repeat
// lookup is treated as stale.
type ResolverConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl" toml:"cache_ttl" env:"SPINDLE_RESOLVER_CACHE_TTL"`
}

// PlaybackConfig configures the supervisor loop and sink pacing (spec §4.C,
// §4.E).
type PlaybackConfig struct {
	CommandQueueCapacity int           `yaml:"command_queue_capacity" toml:"command_queue_capacity" env:"SPINDLE_CMD_QUEUE_CAPACITY"`
	DefaultRepeatMode    string        `yaml:"default_repeat_mode" toml:"default_repeat_mode" env:"SPINDLE_DEFAULT_REPEAT_MODE"`
	DefaultShuffle       bool          `yaml:"default_shuffle" toml:"default_shuffle" env:"SPINDLE_DEFAULT_SHUFFLE"`
	PacingStallThreshold time.Duration `yaml:"pacing_stall_threshold" toml:"pacing_stall_threshold" env:"SPINDLE_PACING_STALL_THRESHOLD"`
	PacingMaxSleep       time.Duration `yaml:"pacing_max_sleep" toml:"pacing_max_sleep" env:"SPINDLE_PACING_MAX_SLEEP"`
}

// Config is the complete settings tree for one engine instance.
type Config struct {
	Decoder  DecoderConfig  `yaml:"decoder" toml:"decoder"`
	Fetcher  FetcherConfig  `yaml:"fetcher" toml:"fetcher"`
	Opus     OpusConfig     `yaml:"opus" toml:"opus"`
	Retry    RetryConfig    `yaml:"retry" toml:"retry"`
	Logger   LoggerConfig   `yaml:"logger" toml:"logger"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Resolver ResolverConfig `yaml:"resolver" toml:"resolver"`
	Playback PlaybackConfig `yaml:"playback" toml:"playback"`
}

// Load builds a Config by trying, in order: config/spindle.yaml,
// config/spindle.toml, environment variables (with .env loaded if present),
// then compiled-in defaults. The first source that is present and parses
// wins outright — sources are not merged field-by-field.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadYAML(cfg); err != nil {
		if err := loadTOML(cfg); err != nil {
			if err := loadEnv(cfg); err != nil {
				setDefaults(cfg)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadYAML(cfg *Config) error {
	path := filepath.Join("config", "spindle.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("yaml config not found: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read yaml config: %w", err)
	}
	return yaml.Unmarshal(data, cfg)
}

func loadTOML(cfg *Config) error {
	path := filepath.Join("config", "spindle.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("toml config not found: %s", path)
	}
	_, err := toml.DecodeFile(path, cfg)
	return err
}

func loadEnv(cfg *Config) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg.Decoder = DecoderConfig{
		BinaryPath:  getEnvString("SPINDLE_FFMPEG_BINARY", "ffmpeg"),
		AudioFormat: getEnvString("SPINDLE_FFMPEG_FORMAT", "s16le"),
		SampleRate:  getEnvInt("SPINDLE_FFMPEG_SAMPLE_RATE", 48000),
		Channels:    getEnvInt("SPINDLE_FFMPEG_CHANNELS", 2),
		CustomArgs:  getEnvStringSlice("SPINDLE_FFMPEG_CUSTOM_ARGS", nil),
	}
	cfg.Fetcher = FetcherConfig{
		BinaryPath:      getEnvString("SPINDLE_YTDLP_BINARY", "yt-dlp"),
		CustomArgs:      getEnvStringSlice("SPINDLE_YTDLP_CUSTOM_ARGS", []string{"--no-playlist"}),
		MaxConcurrent:   getEnvInt("SPINDLE_FETCH_MAX_CONCURRENT", 4),
		CopyBufferBytes: getEnvInt("SPINDLE_FETCH_BUFFER_BYTES", 80*1024),
	}
	cfg.Opus = OpusConfig{
		Bitrate:   getEnvInt("SPINDLE_OPUS_BITRATE", 128000),
		FrameSize: getEnvInt("SPINDLE_OPUS_FRAME_SIZE", 960),
	}
	cfg.Retry = RetryConfig{
		MaxRetries: getEnvInt("SPINDLE_MAX_RETRIES", 3),
		BaseDelay:  getEnvDuration("SPINDLE_BASE_DELAY", 2*time.Second),
		MaxDelay:   getEnvDuration("SPINDLE_MAX_DELAY", 30*time.Second),
		Multiplier: getEnvFloat("SPINDLE_RETRY_MULTIPLIER", 2.0),
	}
	cfg.Logger = LoggerConfig{
		Level:    getEnvString("SPINDLE_LOG_LEVEL", "info"),
		Format:   getEnvString("SPINDLE_LOG_FORMAT", "json"),
		SaveToDB: getEnvBool("SPINDLE_LOG_SAVE_DB", false),
	}
	cfg.Cache = CacheConfig{
		Backend:    getEnvString("SPINDLE_CACHE_BACKEND", "memory"),
		SQLitePath: getEnvString("SPINDLE_CACHE_SQLITE_PATH", "spindle_cache.db"),
		TTL:        getEnvDuration("SPINDLE_CACHE_TTL", 6*time.Hour),
		SweepCron:  getEnvString("SPINDLE_CACHE_SWEEP_CRON", "@every 10m"),
	}
	cfg.Resolver = ResolverConfig{
		CacheTTL: getEnvDuration("SPINDLE_RESOLVER_CACHE_TTL", 6*time.Hour),
	}
	cfg.Playback = PlaybackConfig{
		CommandQueueCapacity: getEnvInt("SPINDLE_CMD_QUEUE_CAPACITY", 256),
		DefaultRepeatMode:    getEnvString("SPINDLE_DEFAULT_REPEAT_MODE", "off"),
		DefaultShuffle:       getEnvBool("SPINDLE_DEFAULT_SHUFFLE", false),
		PacingStallThreshold: getEnvDuration("SPINDLE_PACING_STALL_THRESHOLD", time.Second),
		PacingMaxSleep:       getEnvDuration("SPINDLE_PACING_MAX_SLEEP", 2*time.Second),
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Decoder = DecoderConfig{
		BinaryPath:  "ffmpeg",
		AudioFormat: "s16le",
		SampleRate:  48000,
		Channels:    2,
	}
	cfg.Fetcher = FetcherConfig{
		BinaryPath:      "yt-dlp",
		CustomArgs:      []string{"--no-playlist"},
		MaxConcurrent:   4,
		CopyBufferBytes: 80 * 1024,
	}
	cfg.Opus = OpusConfig{
		Bitrate:   128000,
		FrameSize: 960,
	}
	cfg.Retry = RetryConfig{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
	cfg.Logger = LoggerConfig{
		Level:    "info",
		Format:   "json",
		SaveToDB: false,
	}
	cfg.Cache = CacheConfig{
		Backend:    "memory",
		SQLitePath: "spindle_cache.db",
		TTL:        6 * time.Hour,
		SweepCron:  "@every 10m",
	}
	cfg.Resolver = ResolverConfig{
		CacheTTL: 6 * time.Hour,
	}
	cfg.Playback = PlaybackConfig{
		CommandQueueCapacity: 256,
		DefaultRepeatMode:    "off",
		DefaultShuffle:       false,
		PacingStallThreshold: time.Second,
		PacingMaxSleep:       2 * time.Second,
	}
}

// Validate checks the configuration for internally-inconsistent values.
// It does not check external dependencies; see ValidateDependencies.
func (c *Config) Validate() error {
	if c.Decoder.BinaryPath == "" {
		return fmt.Errorf("decoder binary_path cannot be empty")
	}
	if c.Decoder.SampleRate <= 0 {
		return fmt.Errorf("decoder sample_rate must be positive, got %d", c.Decoder.SampleRate)
	}
	if c.Decoder.Channels <= 0 {
		return fmt.Errorf("decoder channels must be positive, got %d", c.Decoder.Channels)
	}
	if !isValidAudioFormat(c.Decoder.AudioFormat) {
		return fmt.Errorf("invalid decoder audio_format: %s", c.Decoder.AudioFormat)
	}

	if c.Fetcher.BinaryPath == "" {
		return fmt.Errorf("fetcher binary_path cannot be empty")
	}
	if c.Fetcher.MaxConcurrent <= 0 {
		return fmt.Errorf("fetcher max_concurrent must be positive, got %d", c.Fetcher.MaxConcurrent)
	}

	if c.Opus.Bitrate <= 0 {
		return fmt.Errorf("opus bitrate must be positive, got %d", c.Opus.Bitrate)
	}
	if c.Opus.FrameSize != 960 {
		return fmt.Errorf("opus frame_size must be 960 (Discord's fixed 20ms frame), got %d", c.Opus.FrameSize)
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must be non-negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BaseDelay <= 0 {
		return fmt.Errorf("retry base_delay must be positive, got %v", c.Retry.BaseDelay)
	}
	if c.Retry.MaxDelay <= 0 {
		return fmt.Errorf("retry max_delay must be positive, got %v", c.Retry.MaxDelay)
	}
	if c.Retry.Multiplier <= 1.0 {
		return fmt.Errorf("retry multiplier must be greater than 1.0, got %f", c.Retry.Multiplier)
	}

	if !isValidLogLevel(c.Logger.Level) {
		return fmt.Errorf("invalid logger level: %s", c.Logger.Level)
	}
	if !isValidLogFormat(c.Logger.Format) {
		return fmt.Errorf("invalid logger format: %s", c.Logger.Format)
	}

	if c.Cache.Backend != "memory" && c.Cache.Backend != "sqlite" {
		return fmt.Errorf("invalid cache backend: %s (must be memory or sqlite)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", c.Cache.TTL)
	}

	if c.Resolver.CacheTTL <= 0 {
		return fmt.Errorf("resolver cache_ttl must be positive, got %v", c.Resolver.CacheTTL)
	}

	if c.Playback.CommandQueueCapacity <= 0 {
		return fmt.Errorf("playback command_queue_capacity must be positive, got %d", c.Playback.CommandQueueCapacity)
	}
	if !isValidRepeatMode(c.Playback.DefaultRepeatMode) {
		return fmt.Errorf("invalid playback default_repeat_mode: %s", c.Playback.DefaultRepeatMode)
	}
	if c.Playback.PacingStallThreshold <= 0 {
		return fmt.Errorf("playback pacing_stall_threshold must be positive, got %v", c.Playback.PacingStallThreshold)
	}
	if c.Playback.PacingMaxSleep <= 0 {
		return fmt.Errorf("playback pacing_max_sleep must be positive, got %v", c.Playback.PacingMaxSleep)
	}

	return nil
}

// ValidateDependencies checks that the external binaries this config points
// at actually exist on PATH. Failure here is a fatal startup-time
// configuration error (spec §7), not a transient one.
func (c *Config) ValidateDependencies() error {
	if _, err := exec.LookPath(c.Decoder.BinaryPath); err != nil {
		return fmt.Errorf("decoder binary %q not found: %w", c.Decoder.BinaryPath, err)
	}
	if _, err := exec.LookPath(c.Fetcher.BinaryPath); err != nil {
		return fmt.Errorf("fetcher binary %q not found: %w", c.Fetcher.BinaryPath, err)
	}
	return nil
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvStringSlice(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return def
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "json", "text":
		return true
	}
	return false
}

func isValidAudioFormat(format string) bool {
	switch strings.ToLower(format) {
	case "s16le", "s16be", "s32le", "s32be", "f32le", "f32be":
		return true
	}
	return false
}

func isValidRepeatMode(mode string) bool {
	switch strings.ToLower(mode) {
	case "off", "one", "all":
		return true
	}
	return false
}
