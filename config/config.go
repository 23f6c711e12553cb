package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"latidos/geo"
)

// Config holds all configuration for the lost & found service
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins []string

	// Storage configuration
	StoreBackend string // "memory" or "mysql"
	SeedFile     string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string

	// Gemini configuration
	LLMProvider      string // "gemini" or "stub"
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	AITimeout        time.Duration

	// City the service is bound to
	CityName string
	CityLat  float64
	CityLng  float64

	// RabbitMQ configuration, publishing is disabled when AMQPURL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Rate limiting of the AI endpoints
	RateLimitPerMinute int
	RateLimitBurst     int

	// Sessions
	SessionTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		// Server defaults
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getStringSliceEnv("ALLOWED_ORIGINS", "*"),

		// Storage defaults
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		SeedFile:     getEnv("SEED_FILE", ""),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "3306"),
		DBUser:       getEnv("DB_USER", "server"),
		DBPassword:   getEnv("DB_PASSWORD", "secret_app"),
		DBName:       getEnv("DB_NAME", "latidos"),

		// Gemini defaults
		LLMProvider:      getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		AITimeout:        getDurationEnv("AI_TIMEOUT", 60*time.Second),

		// Iquique, Chile
		CityName: getEnv("CITY_NAME", "Iquique, Chile"),
		CityLat:  getFloatEnv("CITY_LAT", geo.IquiqueCenter.Lat),
		CityLng:  getFloatEnv("CITY_LNG", geo.IquiqueCenter.Lng),

		// RabbitMQ defaults
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPExchange:   getEnv("AMQP_EXCHANGE", "latidos"),
		AMQPRoutingKey: getEnv("AMQP_ROUTING_KEY", "report.created"),

		// Rate limit defaults
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     getIntEnv("RATE_LIMIT_BURST", 10),

		SessionTTL: getDurationEnv("SESSION_TTL", 24*time.Hour),

		// Logging defaults
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return config
}

// UseStub reports whether the deterministic no-network model should back the gateway.
func (c *Config) UseStub() bool {
	return strings.EqualFold(c.LLMProvider, "stub")
}

// getStringSliceEnv gets a comma-separated string environment variable and returns it as a string slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}

	var values []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
