package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	AI       AIConfig
	Cache    CacheConfig
	Wearable WearableConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// RateLimitRPS bounds requests per second per client IP on the
	// diagnosis route.
	RateLimitRPS   int
	RateLimitBurst int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// AIConfig holds settings for the generative AI provider.
type AIConfig struct {
	APIKey  string
	BaseURL string
	// BaselineModel handles simple inputs, AdvancedModel complex ones.
	BaselineModel string
	AdvancedModel string
	// Timeout is the hard deadline for a single provider invocation.
	Timeout time.Duration
}

type CacheConfig struct {
	TTL time.Duration
	// Capacity bounds the number of live entries; least recently used
	// entries are evicted on overflow.
	Capacity int
}

type WearableConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	Enabled      bool
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			Env:            getEnv("ENV", "development"),
			RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 5),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "symptomcheck"),
			Password: getEnv("DB_PASSWORD", "symptomcheck"),
			Database: getEnv("DB_NAME", "symptomcheck"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", "symptomcheck"),
		},
		AI: AIConfig{
			APIKey:        getEnv("AI_API_KEY", ""),
			BaseURL:       getEnv("AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			BaselineModel: getEnv("AI_BASELINE_MODEL", "gemini-1.5-flash"),
			AdvancedModel: getEnv("AI_ADVANCED_MODEL", "gemini-1.5-pro"),
			Timeout:       getEnvDuration("AI_TIMEOUT", 25*time.Second),
		},
		Cache: CacheConfig{
			TTL:      getEnvDuration("CACHE_TTL", 6*time.Hour),
			Capacity: getEnvInt("CACHE_CAPACITY", 4096),
		},
		Wearable: WearableConfig{
			BaseURL:      getEnv("WEARABLE_BASE_URL", "https://api.fitbit.com"),
			ClientID:     getEnv("WEARABLE_CLIENT_ID", ""),
			ClientSecret: getEnv("WEARABLE_CLIENT_SECRET", ""),
			Timeout:      getEnvDuration("WEARABLE_TIMEOUT", 5*time.Second),
			Enabled:      getEnvBool("WEARABLE_ENABLED", true),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}
