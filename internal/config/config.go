package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

const DefaultDataURL = "https://rolzy-blog-assets.s3.ap-southeast-2.amazonaws.com/Crocodile_Survey_Data_2021_22.xlsx"

type Config struct {
	Server  ServerConfig
	Data    DataConfig
	Worker  WorkerConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	RateLimitRPS    float64
	ShutdownTimeout time.Duration
}

type DataConfig struct {
	URL            string
	MaxRows        int
	FetchTimeout   time.Duration
	PreloadEnabled bool
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:    getEnvFloat("RATE_LIMIT_RPS", 10),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Data: DataConfig{
			URL:            getEnv("DATA_URL", DefaultDataURL),
			MaxRows:        getEnvInt("DATA_MAX_ROWS", 100000),
			FetchTimeout:   getEnvDuration("DATA_FETCH_TIMEOUT", 60*time.Second),
			PreloadEnabled: getEnvBool("PRELOAD_ENABLED", true),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", ":memory:"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive: %g", c.Server.RateLimitRPS)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	u, err := url.Parse(c.Data.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid data url: %q", c.Data.URL)
	}
	if c.Data.MaxRows < 1 {
		return fmt.Errorf("data max rows must be at least 1, got %d", c.Data.MaxRows)
	}
	if c.Data.FetchTimeout < time.Second {
		return fmt.Errorf("data fetch timeout must be at least 1 second")
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", c.Worker.Count)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
