package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	Port        string
	CORSOrigins []string

	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string

	RedisURL          string
	WorkerConcurrency int

	CacheEnabled  bool
	CacheTTL      time.Duration
	CacheMaxItems int

	TempDir              string
	VideoDownloadTimeout time.Duration
	MaxVideoSizeMB       int
	YtDlpPath            string
	YouTubeCookiesPath   string

	FetchTimeout       time.Duration
	FetchRatePerSecond float64
	BrowserFallback    bool
	ChromePath         string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Generation GenerationConfig
}

// GenerationConfig selects the generative backend used for extraction.
type GenerationConfig struct {
	Provider         string `yaml:"provider"`
	FallbackEnabled  bool   `yaml:"fallback_enabled"`
	FallbackProvider string `yaml:"fallback_provider"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		Port:                     os.Getenv("PORT"),
		GeminiAPIKey:             os.Getenv("GEMINI_API_KEY"),
		GeminiModel:              os.Getenv("GEMINI_MODEL"),
		GroqAPIKey:               os.Getenv("GROQ_API_KEY"),
		GroqModel:                os.Getenv("GROQ_MODEL"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		TempDir:                  os.Getenv("TEMP_DIR"),
		YtDlpPath:                os.Getenv("YTDLP_PATH"),
		YouTubeCookiesPath:       os.Getenv("YOUTUBE_COOKIES_PATH"),
		ChromePath:               os.Getenv("CHROME_PATH"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		CORSOrigins:              splitList(envOr("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.CacheEnabled, err = envBool("CACHE_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.BrowserFallback, err = envBool("BROWSER_FALLBACK", false); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envSeconds("CACHE_TTL_SECONDS", 86400); err != nil {
		return nil, err
	}
	if cfg.VideoDownloadTimeout, err = envSeconds("VIDEO_DOWNLOAD_TIMEOUT", 60); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envSeconds("FETCH_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.CacheMaxItems, err = envInt("CACHE_MAX_ITEMS", 1000); err != nil {
		return nil, err
	}
	if cfg.WorkerConcurrency, err = envInt("WORKER_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.MaxVideoSizeMB, err = envInt("MAX_VIDEO_SIZE_MB", 100); err != nil {
		return nil, err
	}
	if cfg.FetchRatePerSecond, err = envFloat("FETCH_RATE_PER_SECOND", 2); err != nil {
		return nil, err
	}

	cfg.SetGenerationDefaults()

	// Load from YAML file if available
	if err := cfg.LoadFromYAML("config.yaml"); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Generation struct {
			Provider         string `yaml:"provider"`
			FallbackEnabled  *bool  `yaml:"fallback_enabled"`
			FallbackProvider string `yaml:"fallback_provider"`
		} `yaml:"generation"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlConfig.Generation.Provider != "" {
		c.Generation.Provider = yamlConfig.Generation.Provider
	}
	if yamlConfig.Generation.FallbackEnabled != nil {
		c.Generation.FallbackEnabled = *yamlConfig.Generation.FallbackEnabled
	}
	if yamlConfig.Generation.FallbackProvider != "" {
		c.Generation.FallbackProvider = yamlConfig.Generation.FallbackProvider
	}

	return nil
}

// SetGenerationDefaults selects Gemini with a Groq fallback.
func (c *Config) SetGenerationDefaults() {
	if c.Generation.Provider == "" {
		c.Generation.Provider = "gemini"
	}
	c.Generation.FallbackEnabled = true
	if c.Generation.FallbackProvider == "" {
		c.Generation.FallbackProvider = "groq"
	}
}

func (c *Config) setDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "recipe-keeper"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.GeminiModel == "" {
		c.GeminiModel = "gemini-2.0-flash"
	}
	if c.GroqModel == "" {
		c.GroqModel = "llama-3.3-70b-versatile"
	}
	if c.TempDir == "" {
		c.TempDir = "/tmp/recipe-keeper"
	}
	if c.YtDlpPath == "" {
		c.YtDlpPath = "yt-dlp"
	}
}

// FallbackActive reports whether a secondary generator can be used.
func (c *Config) FallbackActive() bool {
	if !c.Generation.FallbackEnabled || c.Generation.FallbackProvider == c.Generation.Provider {
		return false
	}
	return c.apiKeyFor(c.Generation.FallbackProvider) != ""
}

func (c *Config) apiKeyFor(provider string) string {
	switch provider {
	case "gemini":
		return c.GeminiAPIKey
	case "groq":
		return c.GroqAPIKey
	default:
		return ""
	}
}

func (c *Config) validate() error {
	for _, p := range []string{c.Generation.Provider, c.Generation.FallbackProvider} {
		if p != "gemini" && p != "groq" {
			return fmt.Errorf("unknown generation provider %q", p)
		}
	}
	if c.apiKeyFor(c.Generation.Provider) == "" {
		return fmt.Errorf("%s_API_KEY is required", strings.ToUpper(c.Generation.Provider))
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must be positive")
	}
	if c.CacheMaxItems <= 0 {
		return fmt.Errorf("CACHE_MAX_ITEMS must be positive")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("WORKER_CONCURRENCY must be positive")
	}
	if c.FetchRatePerSecond <= 0 {
		return fmt.Errorf("FETCH_RATE_PER_SECOND must be positive")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envSeconds(key string, fallback int) (time.Duration, error) {
	n, err := envInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
