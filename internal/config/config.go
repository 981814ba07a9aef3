// Package config loads pipeline settings: compiled defaults, overlaid by an
// optional YAML file, overlaid by VIRALCUT_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultWindowSec      = 15.0
	DefaultMinTailSec     = 5.0
	DefaultConcurrency    = 4
	DefaultDailyBudgetUSD = 50.0
	DefaultRateDelay      = 200 * time.Millisecond
	DefaultRequestTimeout = 15 * time.Second
	DefaultModel          = "gpt-4o-mini"
	DefaultDataDir        = ".viralcut"
	DefaultLogLevel       = "info"
	DefaultWhisperBin     = ".cache/bin/whisper.cpp"
	DefaultWhisperModel   = ".cache/models/ggml-base.bin"

	EnvAPIKey         = "VIRALCUT_OPENAI_API_KEY"
	EnvModel          = "VIRALCUT_MODEL"
	EnvBaseURL        = "VIRALCUT_BASE_URL"
	EnvAllowedHosts   = "VIRALCUT_ALLOWED_HOSTS"
	EnvDailyBudget    = "VIRALCUT_DAILY_BUDGET_USD"
	EnvWindowSec      = "VIRALCUT_WINDOW_SEC"
	EnvMinTailSec     = "VIRALCUT_MIN_TAIL_SEC"
	EnvConcurrency    = "VIRALCUT_CONCURRENCY"
	EnvRateDelayMs    = "VIRALCUT_RATE_DELAY_MS"
	EnvRequestTimeout = "VIRALCUT_REQUEST_TIMEOUT_SEC"
	EnvDataDir        = "VIRALCUT_DATA_DIR"
	EnvLogLevel       = "VIRALCUT_LOG_LEVEL"
)

// Config holds every tunable of the pipeline. YAML tags match the optional
// config file; env overrides use the VIRALCUT_* names above.
type Config struct {
	WindowSec         float64 `yaml:"window_sec"`
	MinTailSec        float64 `yaml:"min_tail_sec"`
	Concurrency       int     `yaml:"concurrency"`
	DailyBudgetUSD    float64 `yaml:"daily_budget_usd"`
	RateDelayMS       int     `yaml:"rate_delay_ms"`
	RequestTimeoutSec int     `yaml:"request_timeout_sec"`

	APIKey       string   `yaml:"api_key"`
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts"`

	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`

	FFmpegPath   string `yaml:"ffmpeg_path"`
	FFprobePath  string `yaml:"ffprobe_path"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
}

func Default() Config {
	return Config{
		WindowSec:         DefaultWindowSec,
		MinTailSec:        DefaultMinTailSec,
		Concurrency:       DefaultConcurrency,
		DailyBudgetUSD:    DefaultDailyBudgetUSD,
		RateDelayMS:       int(DefaultRateDelay / time.Millisecond),
		RequestTimeoutSec: int(DefaultRequestTimeout / time.Second),
		Model:             DefaultModel,
		DataDir:           DefaultDataDir,
		LogLevel:          DefaultLogLevel,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		WhisperBin:        DefaultWhisperBin,
		WhisperModel:      DefaultWhisperModel,
	}
}

// Load builds the effective configuration. path may be empty; a missing file
// at an explicit path is an error, defaults otherwise.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.WindowSec <= 0 {
		return Config{}, fmt.Errorf("window_sec must be > 0, got %v", cfg.WindowSec)
	}
	if cfg.MinTailSec < 0 || cfg.MinTailSec > cfg.WindowSec {
		return Config{}, fmt.Errorf("min_tail_sec must be in [0, window_sec], got %v", cfg.MinTailSec)
	}
	if cfg.Concurrency <= 0 {
		return Config{}, fmt.Errorf("concurrency must be > 0, got %d", cfg.Concurrency)
	}
	if cfg.DailyBudgetUSD < 0 {
		return Config{}, fmt.Errorf("daily_budget_usd must be >= 0, got %v", cfg.DailyBudgetUSD)
	}
	if cfg.RateDelayMS < 0 {
		return Config{}, fmt.Errorf("rate_delay_ms must be >= 0, got %d", cfg.RateDelayMS)
	}
	if cfg.RequestTimeoutSec <= 0 {
		return Config{}, fmt.Errorf("request_timeout_sec must be > 0, got %d", cfg.RequestTimeoutSec)
	}
	return cfg, nil
}

// RateDelay is the minimum spacing between analysis calls.
func (c Config) RateDelay() time.Duration {
	return time.Duration(c.RateDelayMS) * time.Millisecond
}

// RequestTimeout bounds one analysis HTTP call.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

func (c *Config) applyEnv() {
	setString(&c.APIKey, EnvAPIKey)
	setString(&c.Model, EnvModel)
	setString(&c.BaseURL, EnvBaseURL)
	setString(&c.DataDir, EnvDataDir)
	setString(&c.LogLevel, EnvLogLevel)

	if v := os.Getenv(EnvAllowedHosts); v != "" {
		c.AllowedHosts = splitHosts(v)
	}
	setFloat(&c.DailyBudgetUSD, EnvDailyBudget)
	setFloat(&c.WindowSec, EnvWindowSec)
	setFloat(&c.MinTailSec, EnvMinTailSec)
	setInt(&c.Concurrency, EnvConcurrency)

	setInt(&c.RateDelayMS, EnvRateDelayMs)
	setInt(&c.RequestTimeoutSec, EnvRequestTimeout)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitHosts(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			if h := v[start:i]; h != "" {
				out = append(out, h)
			}
			start = i + 1
		}
	}
	return out
}
