package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize       = 1000
	defaultChunkOverlap    = 200
	defaultTopK            = 3
	defaultMinContextChars = 50
	defaultMaxResults      = 3
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	EmbedLLM      LLMConfig           `yaml:"embed_llm"`
	RAG           RAGConfig           `yaml:"rag"`
	Search        SearchConfig        `yaml:"search"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Timeouts      TimeoutConfig       `yaml:"timeouts"`
	Redis         RedisConfig         `yaml:"redis"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	GinMode     string   `yaml:"gin_mode"`
}

// LLMConfig describes one model endpoint. Provider is "openai", "ollama"
// or "mock" (offline, deterministic).
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	Model       string  `yaml:"model"`
	VisionModel string  `yaml:"vision_model"`
	Temperature float64 `yaml:"temperature"`
}

type RAGConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	TopK            int    `yaml:"top_k"`
	MinContextChars int    `yaml:"min_context_chars"`
	Classifier      string `yaml:"classifier"`
	Splitter        string `yaml:"splitter"`
}

type SearchConfig struct {
	Provider      string        `yaml:"provider"`
	MaxResults    int           `yaml:"max_results"`
	UserAgent     string        `yaml:"user_agent"`
	RatePerMinute int           `yaml:"rate_per_minute"`
	BreakerOpen   time.Duration `yaml:"breaker_open"`
}

type TranscriptionConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	Key     string `yaml:"key"`
}

type TimeoutConfig struct {
	Embedding     time.Duration `yaml:"embedding"`
	Generation    time.Duration `yaml:"generation"`
	Search        time.Duration `yaml:"search"`
	Transcription time.Duration `yaml:"transcription"`
}

type RedisConfig struct {
	URL               string        `yaml:"url"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db"`
	RateLimitRequests int           `yaml:"rate_limit_requests"`
	RateLimitWindow   time.Duration `yaml:"rate_limit_window"`
}

type TelemetryConfig struct {
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LoadConfig reads the YAML file at path. A missing file yields the defaults.
// A .env file in the working directory is loaded first, and environment
// variables override values from the file.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := preset()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) || path == "":
	default:
		return nil, err
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config populated with defaults only.
func Default() *Config {
	cfg := preset()
	applyDefaults(&cfg)
	return &cfg
}

// preset holds defaults for fields where zero is a valid setting. They are
// set before the file is decoded so an explicit 0 survives.
func preset() Config {
	var cfg Config
	cfg.RAG.ChunkOverlap = defaultChunkOverlap
	cfg.RAG.MinContextChars = defaultMinContextChars
	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.LLM.Key == "" {
			cfg.LLM.Key = v
		}
		if cfg.EmbedLLM.Key == "" {
			cfg.EmbedLLM.Key = v
		}
		if cfg.Transcription.Key == "" {
			cfg.Transcription.Key = v
		}
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
		cfg.EmbedLLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbedLLM.Model = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 50
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.LLM.VisionModel == "" {
		cfg.LLM.VisionModel = cfg.LLM.Model
	}
	if cfg.EmbedLLM.Provider == "" {
		cfg.EmbedLLM.Provider = cfg.LLM.Provider
	}
	if cfg.EmbedLLM.BaseURL == "" && cfg.EmbedLLM.Provider == cfg.LLM.Provider {
		cfg.EmbedLLM.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.EmbedLLM.Model == "" {
		cfg.EmbedLLM.Model = "text-embedding-3-small"
	}

	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.Classifier == "" {
		cfg.RAG.Classifier = "keyword"
	}
	if cfg.RAG.Splitter == "" {
		cfg.RAG.Splitter = "fixed"
	}

	if cfg.Search.Provider == "" {
		cfg.Search.Provider = "duckduckgo"
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = defaultMaxResults
	}
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) rag-chat/1.0"
	}
	if cfg.Search.RatePerMinute == 0 {
		cfg.Search.RatePerMinute = 30
	}
	if cfg.Search.BreakerOpen == 0 {
		cfg.Search.BreakerOpen = 60 * time.Second
	}

	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.Transcription.BaseURL == "" && cfg.LLM.Provider == "openai" {
		cfg.Transcription.BaseURL = cfg.LLM.BaseURL
	}

	if cfg.Timeouts.Embedding == 0 {
		cfg.Timeouts.Embedding = 60 * time.Second
	}
	if cfg.Timeouts.Generation == 0 {
		cfg.Timeouts.Generation = 90 * time.Second
	}
	if cfg.Timeouts.Search == 0 {
		cfg.Timeouts.Search = 15 * time.Second
	}
	if cfg.Timeouts.Transcription == 0 {
		cfg.Timeouts.Transcription = 120 * time.Second
	}

	if cfg.Redis.RateLimitRequests == 0 {
		cfg.Redis.RateLimitRequests = 60
	}
	if cfg.Redis.RateLimitWindow == 0 {
		cfg.Redis.RateLimitWindow = time.Minute
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "rag-chat"
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.RAG.MinContextChars < 0 {
		return fmt.Errorf("rag.min_context_chars must not be negative, got %d", c.RAG.MinContextChars)
	}
	for name, d := range map[string]time.Duration{
		"embedding":     c.Timeouts.Embedding,
		"generation":    c.Timeouts.Generation,
		"search":        c.Timeouts.Search,
		"transcription": c.Timeouts.Transcription,
	} {
		if d < 0 {
			return fmt.Errorf("timeouts.%s must not be negative, got %s", name, d)
		}
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be positive, got %d", c.Search.MaxResults)
	}
	for _, p := range []string{c.LLM.Provider, c.EmbedLLM.Provider} {
		if p != "openai" && p != "ollama" && p != "mock" {
			return fmt.Errorf("unknown llm provider: %s", p)
		}
	}
	switch c.RAG.Classifier {
	case "keyword", "strict":
	default:
		return fmt.Errorf("unknown classifier: %s", c.RAG.Classifier)
	}
	switch c.RAG.Splitter {
	case "fixed", "recursive":
	default:
		return fmt.Errorf("unknown splitter: %s", c.RAG.Splitter)
	}
	switch c.Search.Provider {
	case "duckduckgo", "mock", "none":
	default:
		return fmt.Errorf("unknown search provider: %s", c.Search.Provider)
	}
	return nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	c.LLM.Key = redact(c.LLM.Key)
	c.EmbedLLM.Key = redact(c.EmbedLLM.Key)
	c.Transcription.Key = redact(c.Transcription.Key)
	c.Redis.Password = redact(c.Redis.Password)
	return c
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, "Bearer ")
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
