// Пакет config — загрузка и валидация конфигурации Movie Catalog
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Movie Catalog.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- HTTP API ---

	// Единственный origin, которому разрешён CORS (кроме /api/health)
	CORSAllowedOrigin string
	// Лимит запросов в минуту с одного IP (0 — без ограничения)
	RateLimitRPM int

	// --- Файловое хранилище ---

	// Директория загруженных файлов
	UploadDir string
	// Максимальный размер загружаемого файла в байтах
	UploadMaxSize int64
	// Период очистки брошенных временных файлов
	UploadJanitorInterval time.Duration
	// Возраст временного файла, после которого он удаляется
	UploadTmpMaxAge time.Duration

	// --- Фоновые задачи ---

	// Включён ли генератор фильмов
	GeneratorEnabled bool
	// Период генерации фильмов
	GeneratorInterval time.Duration
	// Заполнять ли пустую таблицу демонстрационными записями при старте
	SeedEnabled bool

	// --- NATS (опционально) ---

	// URL NATS; пустая строка — публикация в NATS отключена
	NATSURL string
	// Префикс subject'ов NATS
	NATSSubjectPrefix string

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// MC_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("MC_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("MC_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("MC_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// MC_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("MC_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("MC_LOG_LEVEL: %w", err)
	}

	// MC_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("MC_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("MC_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("MC_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("MC_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("MC_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("MC_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("MC_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("MC_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("MC_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("MC_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("MC_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("MC_DB_SSL_MODE", "disable")
	switch cfg.DBSSLMode {
	case "disable", "require", "verify-ca", "verify-full":
	default:
		return nil, fmt.Errorf("MC_DB_SSL_MODE: недопустимое значение %q", cfg.DBSSLMode)
	}

	// --- HTTP API ---

	// MC_CORS_ALLOWED_ORIGIN — origin фронтенда (по умолчанию http://localhost:3000)
	cfg.CORSAllowedOrigin = getEnvDefault("MC_CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg.RateLimitRPM, err = getEnvInt("MC_RATE_LIMIT_RPM", 600)
	if err != nil {
		return nil, fmt.Errorf("MC_RATE_LIMIT_RPM: %w", err)
	}
	if cfg.RateLimitRPM < 0 {
		return nil, fmt.Errorf("MC_RATE_LIMIT_RPM: значение не может быть отрицательным")
	}

	// --- Файловое хранилище ---

	cfg.UploadDir = getEnvDefault("MC_UPLOAD_DIR", "./uploads")

	// MC_UPLOAD_MAX_SIZE — лимит размера файла (по умолчанию 32 MB)
	cfg.UploadMaxSize, err = getEnvInt64("MC_UPLOAD_MAX_SIZE", 32<<20)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_MAX_SIZE: %w", err)
	}
	if cfg.UploadMaxSize <= 0 {
		return nil, fmt.Errorf("MC_UPLOAD_MAX_SIZE: значение должно быть > 0")
	}
	cfg.UploadJanitorInterval, err = getEnvDurationPositive("MC_UPLOAD_JANITOR_INTERVAL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_JANITOR_INTERVAL: %w", err)
	}
	cfg.UploadTmpMaxAge, err = getEnvDurationPositive("MC_UPLOAD_TMP_MAX_AGE", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("MC_UPLOAD_TMP_MAX_AGE: %w", err)
	}

	// --- Фоновые задачи ---

	cfg.GeneratorEnabled, err = getEnvBool("MC_GENERATOR_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("MC_GENERATOR_ENABLED: %w", err)
	}
	cfg.GeneratorInterval, err = getEnvDurationPositive("MC_GENERATOR_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_GENERATOR_INTERVAL: %w", err)
	}
	cfg.SeedEnabled, err = getEnvBool("MC_SEED_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("MC_SEED_ENABLED: %w", err)
	}

	// --- NATS ---

	cfg.NATSURL = os.Getenv("MC_NATS_URL")
	cfg.NATSSubjectPrefix = getEnvDefault("MC_NATS_SUBJECT_PREFIX", "moviecatalog")

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("MC_DEPHEALTH_GROUP", "movie-catalog")
	cfg.DephealthCheckInterval, err = getEnvDurationPositive("MC_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("MC_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("MC_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL с указанной схемой (postgres, pgx5).
// Пароль экранируется.
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
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

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
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

// getEnvDurationPositive — как getEnvDuration, но значение должно быть > 0
// (используется для периодов тикеров).
func getEnvDurationPositive(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := getEnvDuration(key, defaultVal)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
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
