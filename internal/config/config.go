// Пакет config — загрузка и валидация конфигурации Price Portal
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Price Portal.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- PostgreSQL ---

	// Хост PostgreSQL
	DBHost string
	// Порт PostgreSQL
	DBPort int
	// Имя базы данных
	DBName string
	// Имя пользователя PostgreSQL
	DBUser string
	// Пароль пользователя PostgreSQL
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- LINE Login ---

	// Channel ID приложения LINE Login (audience токенов)
	LineChannelID string
	// Issuer ID-токенов LINE
	LineIssuer string
	// URL JWKS endpoint LINE
	LineJWKSURL string
	// Допустимое расхождение часов при валидации JWT
	JWTLeeway time.Duration

	// --- Telegram ---

	// Токен бота Telegram (пусто — пересылка изображений отключена)
	TelegramBotToken string
	// Базовый URL Telegram Bot API
	TelegramAPIBaseURL string

	// --- Хранилище файлов ---

	// Каталог хранения загруженных изображений
	StorageDataDir string
	// Публичный базовый URL для раздачи файлов
	StoragePublicBaseURL string

	// --- Кэши публичных справочников ---

	// Максимальное число записей в кэше
	CacheSize int
	// TTL кэша списка филиалов
	BranchesCacheTTL time.Duration
	// TTL кэша списка объявлений
	AnnouncementsCacheTTL time.Duration

	// --- Мониторинг и graceful shutdown ---

	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы сервиса в метриках topologymetrics
	DephealthGroup string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// --- Окно неактивности на дашборде ---

	// Порог неактивности пользователей в днях
	InactiveDays int
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// PP_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("PP_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("PP_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PP_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// PP_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("PP_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("PP_LOG_LEVEL: %w", err)
	}

	// PP_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("PP_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("PP_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- PostgreSQL ---

	// PP_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("PP_DB_HOST")
	if err != nil {
		return nil, err
	}

	// PP_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("PP_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("PP_DB_PORT: %w", err)
	}

	// PP_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("PP_DB_NAME")
	if err != nil {
		return nil, err
	}

	// PP_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("PP_DB_USER")
	if err != nil {
		return nil, err
	}

	// PP_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("PP_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// PP_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("PP_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("PP_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- LINE Login ---

	// PP_LINE_CHANNEL_ID — обязательный
	cfg.LineChannelID, err = getEnvRequired("PP_LINE_CHANNEL_ID")
	if err != nil {
		return nil, err
	}

	// PP_LINE_ISSUER — issuer ID-токенов (по умолчанию https://access.line.me)
	cfg.LineIssuer = strings.TrimRight(getEnvDefault("PP_LINE_ISSUER", "https://access.line.me"), "/")

	// PP_LINE_JWKS_URL — JWKS endpoint LINE (по умолчанию боевой)
	cfg.LineJWKSURL = getEnvDefault("PP_LINE_JWKS_URL", "https://api.line.me/oauth2/v2.1/certs")

	// PP_JWT_LEEWAY — расхождение часов при валидации (по умолчанию 30s)
	cfg.JWTLeeway, err = getEnvDuration("PP_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PP_JWT_LEEWAY: %w", err)
	}

	// --- Telegram ---

	// PP_TELEGRAM_BOT_TOKEN — опциональный, без него пересылка отключена
	cfg.TelegramBotToken = getEnvDefault("PP_TELEGRAM_BOT_TOKEN", "")

	// PP_TELEGRAM_API_BASE_URL — базовый URL Bot API
	cfg.TelegramAPIBaseURL = strings.TrimRight(
		getEnvDefault("PP_TELEGRAM_API_BASE_URL", "https://api.telegram.org"), "/")

	// --- Хранилище файлов ---

	// PP_STORAGE_DATA_DIR — каталог хранения (по умолчанию ./data/uploads)
	cfg.StorageDataDir = getEnvDefault("PP_STORAGE_DATA_DIR", "./data/uploads")

	// PP_STORAGE_PUBLIC_BASE_URL — обязательный: по нему строятся ссылки
	// на изображения в Telegram-уведомлениях
	cfg.StoragePublicBaseURL, err = getEnvRequired("PP_STORAGE_PUBLIC_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.StoragePublicBaseURL = strings.TrimRight(cfg.StoragePublicBaseURL, "/")

	// --- Кэши публичных справочников ---

	// PP_CACHE_SIZE — размер кэша (по умолчанию 128)
	cfg.CacheSize, err = getEnvInt("PP_CACHE_SIZE", 128)
	if err != nil {
		return nil, fmt.Errorf("PP_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("PP_CACHE_SIZE: значение %d должно быть положительным", cfg.CacheSize)
	}

	// PP_BRANCHES_CACHE_TTL — TTL кэша филиалов (по умолчанию 1h)
	cfg.BranchesCacheTTL, err = getEnvDuration("PP_BRANCHES_CACHE_TTL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("PP_BRANCHES_CACHE_TTL: %w", err)
	}

	// PP_ANNOUNCEMENTS_CACHE_TTL — TTL кэша объявлений (по умолчанию 10m)
	cfg.AnnouncementsCacheTTL, err = getEnvDuration("PP_ANNOUNCEMENTS_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("PP_ANNOUNCEMENTS_CACHE_TTL: %w", err)
	}

	// --- Мониторинг и graceful shutdown ---

	// PP_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("PP_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PP_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// PP_DEPHEALTH_GROUP — имя группы сервиса в метриках (по умолчанию price-portal)
	cfg.DephealthGroup = getEnvDefault("PP_DEPHEALTH_GROUP", "price-portal")

	// PP_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("PP_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("PP_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Окно неактивности ---

	// PP_INACTIVE_DAYS — порог неактивности в днях (по умолчанию 30)
	cfg.InactiveDays, err = getEnvInt("PP_INACTIVE_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("PP_INACTIVE_DAYS: %w", err)
	}
	if cfg.InactiveDays < 1 {
		return nil, fmt.Errorf("PP_INACTIVE_DAYS: значение %d должно быть положительным", cfg.InactiveDays)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL.
// Используется для лейблов host/port в метриках dephealth.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// TelegramEnabled сообщает, настроена ли пересылка изображений в Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
