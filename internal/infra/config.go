package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Provider selects the image backend: pollinations, huggingface,
	// replicate, or segmind.
	Provider string

	PollinationsAPIKey  string
	PollinationsBaseURL string
	HuggingFaceAPIKey   string
	HuggingFaceBaseURL  string
	ReplicateAPIToken   string
	ReplicateBaseURL    string
	ReplicateModel      string
	SegmindAPIKey       string
	SegmindBaseURL      string

	StoragePath    string
	StorageBaseURL string

	ModerationEnabled bool
	CacheTTL          time.Duration
	JobTimeout        time.Duration
	JobRetention      time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	AllowedOrigins   []string
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. No provider credential is required at boot; a
// missing key surfaces per job as an authentication failure with remediation
// text.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv: getEnv("APP_ENV", "development"),
		Port:   getEnv("PORT", "8080"),

		Provider: strings.ToLower(getEnv("IMAGE_PROVIDER", "pollinations")),

		PollinationsAPIKey:  os.Getenv("POLLINATIONS_API_KEY"),
		PollinationsBaseURL: os.Getenv("POLLINATIONS_BASE_URL"),
		HuggingFaceAPIKey:   os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceBaseURL:  os.Getenv("HUGGINGFACE_BASE_URL"),
		ReplicateAPIToken:   os.Getenv("REPLICATE_API_TOKEN"),
		ReplicateBaseURL:    os.Getenv("REPLICATE_BASE_URL"),
		ReplicateModel:      os.Getenv("REPLICATE_MODEL"),
		SegmindAPIKey:       os.Getenv("SEGMIND_API_KEY"),
		SegmindBaseURL:      os.Getenv("SEGMIND_BASE_URL"),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", "/static"),

		ModerationEnabled: getEnvBool("MODERATION_ENABLED", true),
		CacheTTL:          time.Hour * time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)),
		JobTimeout:        time.Second * time.Duration(getEnvInt("JOB_TIMEOUT_SECONDS", 300)),
		JobRetention:      time.Second * time.Duration(getEnvInt("JOB_RETENTION_SECONDS", 120)),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
