package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Notifier Config
	NotifierURL     string        `env:"NOTIFIER_URL"`
	NotifierSecret  string        `env:"NOTIFIER_SECRET"`
	NotifierTimeout time.Duration `env:"NOTIFIER_TIMEOUT" envDefault:"5s"`

	// Окно эскалации: сколько и как часто уведомлять ответственную
	// организацию после активации инцидента
	EscalationWindow   time.Duration `env:"ESCALATION_WINDOW" envDefault:"5m"`
	EscalationInterval time.Duration `env:"ESCALATION_INTERVAL" envDefault:"30s"`

	// Clustering Config
	DuplicateRadiusMeters float64 `env:"DUPLICATE_RADIUS_METERS" envDefault:"50"`
	ActivationThreshold   int     `env:"ACTIVATION_THRESHOLD" envDefault:"3"`

	// Feedback Config
	CloseThreshold    int           `env:"CLOSE_THRESHOLD" envDefault:"5"`
	FeedbackRateLimit time.Duration `env:"FEEDBACK_RATE_LIMIT" envDefault:"1h"`

	// Cache Config
	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"5m"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		NotifierURL:           os.Getenv("NOTIFIER_URL"),
		NotifierSecret:        os.Getenv("NOTIFIER_SECRET"),
		NotifierTimeout:       getEnvAsDuration("NOTIFIER_TIMEOUT", 5*time.Second),
		EscalationWindow:      getEnvAsDuration("ESCALATION_WINDOW", 5*time.Minute),
		EscalationInterval:    getEnvAsDuration("ESCALATION_INTERVAL", 30*time.Second),
		DuplicateRadiusMeters: getEnvAsFloat("DUPLICATE_RADIUS_METERS", 50),
		ActivationThreshold:   getEnvAsInt("ACTIVATION_THRESHOLD", 3),
		CloseThreshold:        getEnvAsInt("CLOSE_THRESHOLD", 5),
		FeedbackRateLimit:     getEnvAsDuration("FEEDBACK_RATE_LIMIT", time.Hour),
		IncidentCacheTTL:      getEnvAsDuration("INCIDENT_CACHE_TTL", 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
