package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Extract ExtractConfig
	OCR     OCRConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LLMConfig holds model-backend configuration
type LLMConfig struct {
	Provider    string // "openai" | "gemini"
	Model       string
	APIKey      string
	BaseURL     string // openai-compatible endpoint, empty for the default
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int // transport-level retry ceiling
}

// ExtractConfig holds the repair-loop knobs
type ExtractConfig struct {
	MaxRepairAttempts int           // schema-repair retries after the first call
	Deadline          time.Duration // bound on the whole orchestration
	PriceTolerance    float64       // relative tolerance for line-item arithmetic
}

// OCRConfig holds document-recognition configuration
type OCRConfig struct {
	Model         string
	FetchTimeout  time.Duration
	MaxDocumentMB int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8000"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		LLM: LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "gemini"),
			Model:       getEnv("LLM_MODEL", "gemini-2.5-flash"),
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", ""),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
			MaxAttempts: getEnvAsInt("LLM_MAX_ATTEMPTS", 3),
		},
		Extract: ExtractConfig{
			MaxRepairAttempts: getEnvAsInt("EXTRACT_MAX_REPAIRS", 2),
			Deadline:          getEnvAsDuration("EXTRACT_DEADLINE", 2*time.Minute),
			PriceTolerance:    getEnvAsFloat64("EXTRACT_PRICE_TOLERANCE", 0.01),
		},
		OCR: OCRConfig{
			Model:         getEnv("OCR_MODEL", "gemini-2.5-flash"),
			FetchTimeout:  getEnvAsDuration("OCR_FETCH_TIMEOUT", 10*time.Second),
			MaxDocumentMB: getEnvAsInt("OCR_MAX_DOCUMENT_MB", 20),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "LLM_API_KEY is required", ErrInvalidInput)
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "gemini" {
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be openai or gemini", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Extract.MaxRepairAttempts < 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_MAX_REPAIRS must be >= 0", ErrInvalidInput)
	}
	return nil
}
