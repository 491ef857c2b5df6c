// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// LLM settings
	LLMProvider          string // anthropic | gemini | openai
	AnthropicAPIKey      string
	AnthropicModel       string
	AnthropicBaseURL     string
	GeminiAPIKey         string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	LLMTemperature       float32
	LLMMaxTokens         int
	LLMRequestsPerMinute int // 0 = unthrottled
	LLMMaxRequestsPerDay int // 0 = unlimited
	RewriteConcurrency   int

	// News settings
	NewsSources      []string // google | feeds
	FeedsConfigPath  string
	DefaultNewsLimit int
	UserAgent        string

	// Scraper settings
	ScrapeTimeout        time.Duration
	MaxConcurrentScrapes int

	// App settings
	Debug         bool
	LogLevel      string
	APIHost       string
	APIPort       int
	RetryAttempts int
	RetryDelay    time.Duration

	// Storage settings
	StoreBackend  string // none | file | postgres | sqlite
	LocalStoreDir string
	DatabaseURL   string
	SQLitePath    string
}

// Load reads .env (if present) and the process environment. Variables
// already set in the environment take precedence over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() (*Config, error) {
	cfg := &Config{
		LLMProvider:          strings.ToLower(getEnvOrDefault("LLM_PROVIDER", "anthropic")),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       getEnvOrDefault("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		AnthropicBaseURL:     getEnvOrDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		LLMTemperature:       float32(getEnvFloatOrDefault("LLM_TEMP", 0.7)),
		LLMMaxTokens:         getEnvIntOrDefault("LLM_MAX_TOKENS", 2000),
		LLMRequestsPerMinute: getEnvIntOrDefault("LLM_REQUESTS_PER_MINUTE", 60),
		LLMMaxRequestsPerDay: getEnvIntOrDefault("LLM_MAX_REQUESTS_PER_DAY", 0),
		RewriteConcurrency:   getEnvIntOrDefault("REWRITE_CONCURRENCY", 4),

		NewsSources:      splitList(getEnvOrDefault("NEWS_SOURCES", "google")),
		FeedsConfigPath:  os.Getenv("FEEDS_CONFIG_PATH"),
		DefaultNewsLimit: getEnvIntOrDefault("DEFAULT_NEWS_LIMIT", 10),
		UserAgent:        getEnvOrDefault("USER_AGENT", "TKRNewsGather/1.0 (News Aggregation Service)"),

		ScrapeTimeout:        time.Duration(getEnvIntOrDefault("SCRAPE_TIMEOUT", 30)) * time.Second,
		MaxConcurrentScrapes: getEnvIntOrDefault("MAX_CONCURRENT_SCRAPES", 10),

		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		APIHost:       getEnvOrDefault("API_HOST", "0.0.0.0"),
		APIPort:       getEnvIntOrDefault("API_PORT", 8000),
		RetryAttempts: getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:    getEnvDurationOrDefault("RETRY_DELAY", time.Second),

		StoreBackend:  strings.ToLower(getEnvOrDefault("STORE_BACKEND", "none")),
		LocalStoreDir: getEnvOrDefault("LOCAL_STORE_DIR", "news_data"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		SQLitePath:    getEnvOrDefault("SQLITE_PATH", "news.db"),
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// LLMConfigured reports whether the selected provider has an API key.
func (c *Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicAPIKey != ""
	case "gemini":
		return c.GeminiAPIKey != ""
	case "openai":
		return c.OpenAIAPIKey != ""
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("2s") or bare seconds ("2").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "anthropic", "gemini", "openai":
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'anthropic', 'gemini' or 'openai', got %q", c.LLMProvider)
	}
	switch c.StoreBackend {
	case "none", "file", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be 'none', 'file', 'postgres' or 'sqlite', got %q", c.StoreBackend)
	}
	if len(c.NewsSources) == 0 {
		return fmt.Errorf("NEWS_SOURCES must name at least one source")
	}
	for _, s := range c.NewsSources {
		if s != "google" && s != "feeds" {
			return fmt.Errorf("unknown news source %q in NEWS_SOURCES", s)
		}
	}
	if c.MaxConcurrentScrapes < 1 {
		return fmt.Errorf("MAX_CONCURRENT_SCRAPES must be positive")
	}
	if c.RewriteConcurrency < 1 {
		return fmt.Errorf("REWRITE_CONCURRENCY must be positive")
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("SCRAPE_TIMEOUT must be positive")
	}
	if c.DefaultNewsLimit < 1 || c.DefaultNewsLimit > 50 {
		return fmt.Errorf("DEFAULT_NEWS_LIMIT must be between 1 and 50")
	}
	if c.LLMRequestsPerMinute < 0 || c.LLMMaxRequestsPerDay < 0 {
		return fmt.Errorf("LLM request limits must not be negative")
	}
	return nil
}
