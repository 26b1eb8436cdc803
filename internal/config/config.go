package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	MLServiceURL       string
	MLAnalyzePath      string
	MLTimeoutSeconds   int
	MLRetryMaxAttempts int
	MLBreakerEnabled   bool

	UploadMaxBytes   int64
	UploadStagingDir string

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int

	// Empty PostgresDSN or NATSURL disables analysis history.
	PostgresDSN string

	NATSURL     string
	NATSSubject string

	WorkerMetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		MLServiceURL:       mustEnv("ML_SERVICE_URL", "https://your-ml-service.example.com"),
		MLAnalyzePath:      mustEnv("ML_ANALYZE_PATH", "/analyze"),
		MLTimeoutSeconds:   mustEnvInt("ML_TIMEOUT_SECONDS", 60),
		MLRetryMaxAttempts: mustEnvInt("ML_RETRY_MAX_ATTEMPTS", 1),
		MLBreakerEnabled:   mustEnvBool("ML_BREAKER_ENABLED", true),

		UploadMaxBytes:   mustEnvInt64("UPLOAD_MAX_BYTES", 20<<20),
		UploadStagingDir: mustEnv("UPLOAD_STAGING_DIR", "./tmp/uploads"),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 0),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "analyses.completed"),

		WorkerMetricsPort: mustEnv("WORKER_METRICS_PORT", "9090"),
	}
}

// HistoryEnabled reports whether both history backends are configured.
func (c Config) HistoryEnabled() bool {
	return c.PostgresDSN != "" && c.NATSURL != ""
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
