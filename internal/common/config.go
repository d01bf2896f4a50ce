package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Queue    QueueConfig
	OCR      OCRConfig
	Delivery DeliveryConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr   string
	APIKey string
}

// QueueConfig holds queue and worker pool configuration
type QueueConfig struct {
	Capacity       int
	Workers        int
	ProcessTimeout time.Duration
}

// OCRConfig holds recognition engine configuration
type OCRConfig struct {
	Tesseract       string
	TesseractLang   string
	TessdataDir     string
	PSM             int
	OEM             int
	DownloadTimeout time.Duration
}

// DeliveryConfig holds per-environment webhook configuration.
// Staging/production fall back to the shared URL/APIKey when unset.
type DeliveryConfig struct {
	URL           string
	APIKey        string
	StagingURL    string
	StagingKey    string
	ProductionURL string
	ProductionKey string
	Timeout       time.Duration
}

// HistoryConfig holds the completed-job archive configuration.
// An empty path disables the archive.
type HistoryConfig struct {
	DBPath string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:   getEnv("HTTP_ADDR", ":8000"),
			APIKey: getEnv("API_KEY", ""),
		},
		Queue: QueueConfig{
			Capacity:       getEnvAsInt("QUEUE_CAPACITY", 1000),
			Workers:        getEnvAsInt("WORKER_COUNT", 3),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		OCR: OCRConfig{
			Tesseract:       getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:   getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:     getEnv("TESSDATA_PREFIX", ""),
			PSM:             getEnvAsInt("TESSERACT_PSM", 6),
			OEM:             getEnvAsInt("TESSERACT_OEM", 0),
			DownloadTimeout: getEnvAsDuration("DOWNLOAD_TIMEOUT", 20*time.Second),
		},
		Delivery: DeliveryConfig{
			URL:           getEnv("WEBHOOK_URL", "http://localhost:8003/api/ocr/result"),
			APIKey:        getEnv("WEBHOOK_API_KEY", ""),
			StagingURL:    getEnv("WEBHOOK_URL_STAGING", ""),
			StagingKey:    getEnv("WEBHOOK_API_KEY_STAGING", ""),
			ProductionURL: getEnv("WEBHOOK_URL_PRODUCTION", ""),
			ProductionKey: getEnv("WEBHOOK_API_KEY_PRODUCTION", ""),
			Timeout:       getEnvAsDuration("WEBHOOK_TIMEOUT", 30*time.Second),
		},
		History: HistoryConfig{
			DBPath: getEnv("HISTORY_DB_PATH", "./data/history.db"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrValidation)
	}
	if c.Queue.Capacity <= 0 {
		return NewAppError("CONFIG_ERROR", "QUEUE_CAPACITY must be positive", ErrValidation)
	}
	if c.Queue.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "WORKER_COUNT must be positive", ErrValidation)
	}
	if c.Delivery.URL == "" && c.Delivery.StagingURL == "" && c.Delivery.ProductionURL == "" {
		return NewAppError("CONFIG_ERROR", "WEBHOOK_URL is required", ErrValidation)
	}
	return nil
}
