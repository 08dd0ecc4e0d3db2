package infra

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	JWTSecret   string

	StoragePath    string
	StorageBaseURL string
	// ImageSourceAllowlist lists the hosts a submitted image reference may
	// point at. References outside this set are rejected at enqueue time so
	// the pipeline never fetches an arbitrary URL.
	ImageSourceAllowlist []string

	GeoIPDBPath    string
	AllowedOrigins []string

	GeminiAPIKey         string
	GeminiValuationModel string
	GeminiImageModel     string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	StatusLookback        time.Duration
	NewlyCompletedWindow  time.Duration
	PipelineMaxConcurrent int
	PipelineTimeout       time.Duration
	FetchTimeout          time.Duration
	ProcessingLease       time.Duration
	ReaperInterval        time.Duration
	EventBufferSize       int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		Port:        port,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),

		GeoIPDBPath:    os.Getenv("GEOIP_DB_PATH"),
		AllowedOrigins: splitHosts(getEnv("ALLOWED_ORIGINS", "")),

		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiValuationModel: getEnv("GEMINI_VALUATION_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:     getEnv("GEMINI_IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		StatusLookback:        time.Hour * time.Duration(getEnvInt("STATUS_LOOKBACK_HOURS", 24)),
		NewlyCompletedWindow:  time.Second * time.Duration(getEnvInt("NEWLY_COMPLETED_WINDOW_SECONDS", 5)),
		PipelineMaxConcurrent: getEnvInt("PIPELINE_MAX_CONCURRENT", 8),
		PipelineTimeout:       time.Second * time.Duration(getEnvInt("PIPELINE_TIMEOUT_SECONDS", 300)),
		FetchTimeout:          time.Second * time.Duration(getEnvInt("IMAGE_FETCH_TIMEOUT_SECONDS", 30)),
		ProcessingLease:       time.Minute * time.Duration(getEnvInt("PROCESSING_LEASE_MINUTES", 10)),
		ReaperInterval:        time.Minute * time.Duration(getEnvInt("REAPER_INTERVAL_MINUTES", 1)),
		EventBufferSize:       getEnvInt("EVENT_BUFFER_SIZE", 64),
	}

	cfg.ImageSourceAllowlist = buildImageSourceAllowlist(cfg.StorageBaseURL, os.Getenv("IMAGE_SOURCE_HOST_ALLOWLIST"))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// buildImageSourceAllowlist merges the storage base URL host with any
// explicitly configured hosts, deduplicated and sorted.
func buildImageSourceAllowlist(storageBaseURL, explicit string) []string {
	set := map[string]struct{}{}
	if u, err := url.Parse(storageBaseURL); err == nil && u.Hostname() != "" {
		set[strings.ToLower(u.Hostname())] = struct{}{}
	}
	for _, host := range splitHosts(explicit) {
		set[strings.ToLower(host)] = struct{}{}
	}
	hosts := make([]string, 0, len(set))
	for host := range set {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

func splitHosts(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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
