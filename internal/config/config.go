package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort                  = "8080"
	defaultFrontendOrigin        = "http://localhost:3000"
	defaultDatabaseURL           = "file:oneai.db"
	defaultRequestTimeoutSecs    = 60
	defaultGroqBaseURL           = "https://api.groq.com/openai/v1"
	defaultGeminiBaseURL         = "https://generativelanguage.googleapis.com/v1beta"
	defaultOpenAIBaseURL         = "https://api.openai.com/v1"
	defaultAnthropicBaseURL      = "https://api.anthropic.com/v1"
	defaultBraveBaseURL          = "https://api.search.brave.com/res/v1"
	defaultSerpAPIBaseURL        = "https://serpapi.com"
	defaultIPLookupURL           = "https://api.ipify.org/?format=json"
	defaultGCSUploadPrefix       = "chat-uploads"
	defaultSearchRatePerSecond   = 2
	defaultPageFetchTimeoutSecs  = 8
	defaultImageCacheTTLMinutes  = 10
	defaultPersistTimeoutSeconds = 10
)

type Config struct {
	Port           string
	Environment    string
	LogLevel       slog.Level
	FrontendOrigin string
	AllowedOrigins []string
	RequestTimeout time.Duration
	PersistTimeout time.Duration

	GroqAPIKey       string
	GroqBaseURL      string
	GeminiAPIKey     string
	GeminiBaseURL    string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	AnthropicAPIKey  string
	AnthropicBaseURL string

	DatabaseURL        string
	DatabaseAuthToken  string
	SupabaseURL        string
	SupabaseServiceKey string

	GoogleSearchAPIKey   string
	GoogleSearchEngineID string
	GoogleSearchEndpoint string
	SerpAPIKey           string
	SerpAPIBaseURL       string
	BraveAPIKey          string
	BraveBaseURL         string
	SearchRatePerSecond  int
	PageFetchTimeout     time.Duration
	ImageCacheTTL        time.Duration

	GCSUploadBucket string
	GCSUploadPrefix string

	IPLookupURL string
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// UsesSupabase reports whether conversations are persisted through PostgREST
// instead of the SQL database.
func (c Config) UsesSupabase() bool {
	return c.SupabaseURL != ""
}

func Load() (Config, error) {
	cfg := Config{
		Port:                 envOrDefault("PORT", defaultPort),
		Environment:          envOrDefault("APP_ENV", "development"),
		FrontendOrigin:       envOrDefault("FRONTEND_ORIGIN", defaultFrontendOrigin),
		GroqAPIKey:           strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
		GroqBaseURL:          envOrDefault("GROQ_BASE_URL", defaultGroqBaseURL),
		GeminiAPIKey:         firstEnv("GOOGLE_GENERATIVE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY"),
		GeminiBaseURL:        envOrDefault("GEMINI_BASE_URL", defaultGeminiBaseURL),
		OpenAIAPIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:        envOrDefault("OPENAI_BASE_URL", defaultOpenAIBaseURL),
		AnthropicAPIKey:      strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		AnthropicBaseURL:     envOrDefault("ANTHROPIC_BASE_URL", defaultAnthropicBaseURL),
		DatabaseURL:          envOrDefault("DATABASE_URL", envOrDefault("TURSO_DATABASE_URL", defaultDatabaseURL)),
		DatabaseAuthToken:    strings.TrimSpace(os.Getenv("TURSO_AUTH_TOKEN")),
		SupabaseURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseServiceKey:   strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		GoogleSearchAPIKey:   strings.TrimSpace(os.Getenv("GOOGLE_SEARCH_API_KEY")),
		GoogleSearchEngineID: strings.TrimSpace(os.Getenv("GOOGLE_SEARCH_ENGINE_ID")),
		GoogleSearchEndpoint: strings.TrimSpace(os.Getenv("GOOGLE_SEARCH_ENDPOINT")),
		SerpAPIKey:           strings.TrimSpace(os.Getenv("SERPAPI_KEY")),
		SerpAPIBaseURL:       envOrDefault("SERPAPI_BASE_URL", defaultSerpAPIBaseURL),
		BraveAPIKey:          strings.TrimSpace(os.Getenv("BRAVE_API_KEY")),
		BraveBaseURL:         envOrDefault("BRAVE_BASE_URL", defaultBraveBaseURL),
		SearchRatePerSecond:  intOrDefault("SEARCH_RATE_PER_SECOND", defaultSearchRatePerSecond),
		GCSUploadBucket:      strings.TrimSpace(os.Getenv("GCS_UPLOAD_BUCKET")),
		GCSUploadPrefix:      envOrDefault("GCS_UPLOAD_PREFIX", defaultGCSUploadPrefix),
		IPLookupURL:          envOrDefault("IP_LOOKUP_URL", defaultIPLookupURL),
	}

	level, err := parseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	timeoutSecs := intOrDefault("REQUEST_TIMEOUT_SECONDS", defaultRequestTimeoutSecs)
	if timeoutSecs <= 0 {
		return Config{}, errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	cfg.RequestTimeout = time.Duration(timeoutSecs) * time.Second
	cfg.PersistTimeout = time.Duration(intOrDefault("PERSIST_TIMEOUT_SECONDS", defaultPersistTimeoutSeconds)) * time.Second
	cfg.PageFetchTimeout = time.Duration(intOrDefault("PAGE_FETCH_TIMEOUT_SECONDS", defaultPageFetchTimeoutSecs)) * time.Second
	cfg.ImageCacheTTL = time.Duration(intOrDefault("IMAGE_CACHE_TTL_MINUTES", defaultImageCacheTTLMinutes)) * time.Minute

	if cfg.SearchRatePerSecond <= 0 {
		return Config{}, errors.New("SEARCH_RATE_PER_SECOND must be > 0")
	}

	origins := parseList(envOrDefault("CORS_ALLOWED_ORIGINS", cfg.FrontendOrigin+",http://localhost:5173"))
	if len(origins) == 0 {
		return Config{}, errors.New("CORS_ALLOWED_ORIGINS must include at least one origin")
	}
	cfg.AllowedOrigins = origins

	if cfg.UsesSupabase() {
		if cfg.SupabaseServiceKey == "" {
			return Config{}, errors.New("SUPABASE_SERVICE_ROLE_KEY is required when SUPABASE_URL is set")
		}
	} else if strings.HasPrefix(cfg.DatabaseURL, "libsql://") && cfg.DatabaseAuthToken == "" {
		return Config{}, errors.New("TURSO_AUTH_TOKEN is required for libsql:// URLs")
	}

	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func envOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseList(raw string) []string {
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
