package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	RedisURL    string
	ServerPort  int

	// Cloudflare R2 для архива календарей. Пустые значения отключают архив.
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string

	// Планирование по умолчанию.
	Courts                []string
	MatchdayIntervalDays  int
	RescheduleDeadline    time.Duration
	HealthRefreshInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080" // Порт по умолчанию
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	intervalDays := 7
	if raw := os.Getenv("MATCHDAY_INTERVAL_DAYS"); raw != "" {
		intervalDays, err = strconv.Atoi(raw)
		if err != nil || intervalDays <= 0 {
			return nil, fmt.Errorf("MATCHDAY_INTERVAL_DAYS must be a positive integer, got %q", raw)
		}
	}

	deadline := 24 * time.Hour
	if raw := os.Getenv("RESCHEDULE_DEADLINE"); raw != "" {
		deadline, err = time.ParseDuration(raw)
		if err != nil || deadline <= 0 {
			return nil, fmt.Errorf("RESCHEDULE_DEADLINE must be a positive duration, got %q", raw)
		}
	}

	healthInterval := time.Minute
	if raw := os.Getenv("HEALTH_REFRESH_INTERVAL"); raw != "" {
		healthInterval, err = time.ParseDuration(raw)
		if err != nil || healthInterval <= 0 {
			return nil, fmt.Errorf("HEALTH_REFRESH_INTERVAL must be a positive duration, got %q", raw)
		}
	}

	var courts []string
	if raw := os.Getenv("COURTS"); raw != "" {
		for _, court := range strings.Split(raw, ",") {
			if court = strings.TrimSpace(court); court != "" {
				courts = append(courts, court)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		RedisURL:              os.Getenv("REDIS_URL"),
		ServerPort:            port,
		R2AccountID:           os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:         os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:     os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:          os.Getenv("R2_BUCKET_NAME"),
		R2PublicBaseURL:       os.Getenv("R2_PUBLIC_BASE_URL"),
		Courts:                courts,
		MatchdayIntervalDays:  intervalDays,
		RescheduleDeadline:    deadline,
		HealthRefreshInterval: healthInterval,
	}

	return cfg, nil
}

// R2Configured сообщает, заданы ли все параметры объектного хранилища.
func (c *Config) R2Configured() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicBaseURL != ""
}
