package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	// Основные настройки приложения
	App AppConfigStruct `json:"app"`

	// База данных (история изменений)
	Database DatabaseConfig `json:"database"`

	// Redis
	Redis RedisConfig `json:"redis"`

	// Davo Delivery API
	Davo DavoConfig `json:"davo"`

	// Сессии панели
	Session SessionConfig `json:"session"`

	// CORS
	CORS CORSConfig `json:"cors"`

	// Безопасность
	Security SecurityConfig `json:"security"`

	// Логирование
	Logging LoggingConfig `json:"logging"`

	// Выгрузка отчетов
	Export ExportConfig `json:"export"`

	// Внешние сервисы
	External ExternalConfig `json:"external"`
}

type AppConfigStruct struct {
	Env     string `json:"env"`
	Port    string `json:"port"`
	Host    string `json:"host"`
	Version string `json:"version"`
	Debug   bool   `json:"debug"`
}

type DatabaseConfig struct {
	Enabled         bool          `json:"enabled"`
	Host            string        `json:"host"`
	Port            string        `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	Name            string        `json:"name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

type RedisConfig struct {
	Enabled  bool          `json:"enabled"`
	Host     string        `json:"host"`
	Port     string        `json:"port"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	URL      string        `json:"url"`
	Timeout  time.Duration `json:"timeout"`
	MaxConns int           `json:"max_connections"`
}

type DavoConfig struct {
	APIURL         string        `json:"api_url"`
	Timeout        time.Duration `json:"timeout"`
	MaxRetries     int           `json:"max_retries"`
	AcceptLanguage string        `json:"accept_language"`
	PageSize       int           `json:"page_size"`
}

type SessionConfig struct {
	TTL          time.Duration `json:"ttl"`
	PanelIdleTTL time.Duration `json:"panel_idle_ttl"`
	PanelSweep   string        `json:"panel_sweep"`
}

type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

type SecurityConfig struct {
	LoginRateLimit    int           `json:"login_rate_limit"`
	LoginRateWindow   time.Duration `json:"login_rate_window"`
	RateLimitRequests int           `json:"rate_limit_requests"`
	RateLimitWindow   time.Duration `json:"rate_limit_window"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	File   string `json:"file"`
}

type ExportConfig struct {
	PDFFontPath string `json:"pdf_font_path"`
}

type ExternalConfig struct {
	// Telegram
	TelegramBotToken string `json:"telegram_bot_token"`
	TelegramChatID   string `json:"telegram_chat_id"`

	// Сводка по аптекам по расписанию
	SummaryCron     string `json:"summary_cron"`
	ServiceLogin    string `json:"service_login"`
	ServicePassword string `json:"service_password"`
}

var GlobalConfig *Config

// LoadConfig загружает конфигурацию из переменных окружения
func LoadConfig() (*Config, error) {
	// Загружаем .env файл если он существует
	if err := godotenv.Load(); err != nil {
		logrus.Warnf(".env file not found or could not be loaded: %v", err)
	}

	config := &Config{
		App: AppConfigStruct{
			Env:     getEnv("APP_ENV", "development"),
			Port:    getEnv("APP_PORT", "8080"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Version: getEnv("API_VERSION", "v1"),
			Debug:   getEnvBool("DEBUG_MODE", false),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", true),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "davo_admin"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			URL:      getEnv("REDIS_URL", ""),
			Timeout:  getEnvDuration("REDIS_TIMEOUT", 5*time.Second),
			MaxConns: getEnvInt("REDIS_MAX_CONNECTIONS", 10),
		},
		Davo: DavoConfig{
			APIURL:         getEnv("DAVO_API_URL", "https://api.davodelivery.uz/api"),
			Timeout:        getEnvDuration("DAVO_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvInt("DAVO_MAX_RETRIES", 0),
			AcceptLanguage: getEnv("DAVO_ACCEPT_LANGUAGE", "ru,en-US;q=0.9,en;q=0.8"),
			PageSize:       getEnvInt("DAVO_PAGE_SIZE", 100),
		},
		Session: SessionConfig{
			TTL:          getEnvDuration("SESSION_TTL", 24*time.Hour),
			PanelIdleTTL: getEnvDuration("SESSION_PANEL_IDLE_TTL", 2*time.Hour),
			PanelSweep:   getEnv("SESSION_PANEL_SWEEP_CRON", "0 */10 * * * *"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"}),
			AllowedHeaders:   getEnvSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Session-ID", "Accept", "Accept-Language", "Origin"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
		},
		Security: SecurityConfig{
			LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 5),
			LoginRateWindow:   getEnvDuration("LOGIN_RATE_WINDOW", 1*time.Minute),
			RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			File:   getEnv("LOG_FILE", ""),
		},
		Export: ExportConfig{
			PDFFontPath: getEnv("PDF_FONT_PATH", ""),
		},
		External: ExternalConfig{
			TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
			SummaryCron:      getEnv("SUMMARY_CRON", ""),
			ServiceLogin:     getEnv("DAVO_SERVICE_LOGIN", ""),
			ServicePassword:  getEnv("DAVO_SERVICE_PASSWORD", ""),
		},
	}

	// Валидация критически важных настроек
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	GlobalConfig = config
	return config, nil
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Davo.APIURL == "" {
		return fmt.Errorf("DAVO_API_URL cannot be empty")
	}
	if !strings.HasPrefix(c.Davo.APIURL, "http://") && !strings.HasPrefix(c.Davo.APIURL, "https://") {
		return fmt.Errorf("DAVO_API_URL must start with http:// or https://")
	}
	if c.Davo.PageSize <= 0 {
		return fmt.Errorf("DAVO_PAGE_SIZE must be positive")
	}
	if c.Davo.MaxRetries < 0 {
		return fmt.Errorf("DAVO_MAX_RETRIES cannot be negative")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Session.PanelIdleTTL <= 0 {
		return fmt.Errorf("SESSION_PANEL_IDLE_TTL must be positive")
	}
	if c.Session.PanelSweep == "" {
		return fmt.Errorf("SESSION_PANEL_SWEEP_CRON cannot be empty")
	}

	if c.Database.Enabled {
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME cannot be empty")
		}
		if c.Database.User == "" {
			return fmt.Errorf("DB_USER cannot be empty")
		}
	}

	// Сводка по расписанию требует сервисную учетную запись и Telegram
	if c.External.SummaryCron != "" {
		if c.External.ServiceLogin == "" || c.External.ServicePassword == "" {
			return fmt.Errorf("DAVO_SERVICE_LOGIN and DAVO_SERVICE_PASSWORD are required when SUMMARY_CRON is set")
		}
		if c.External.TelegramBotToken == "" || c.External.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required when SUMMARY_CRON is set")
		}
	}

	if c.IsProduction() && c.Database.Enabled && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}

	return nil
}

// GetConfig возвращает текущую конфигурацию
func GetConfig() *Config {
	if GlobalConfig == nil {
		logrus.Fatal("Config not loaded. Call LoadConfig() first.")
	}
	return GlobalConfig
}

// Вспомогательные функции для получения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.Warnf("Invalid boolean value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration value for %s: %s, using default: %v", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsProduction проверяет, запущено ли приложение в продакшене
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// GetDatabaseDSN возвращает строку подключения к БД
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Name, c.Database.SSLMode)
}

// GetAdminDSN возвращает строку подключения к служебной БД postgres
func (c *Config) GetAdminDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.SSLMode)
}

// GetRedisAddr возвращает адрес Redis
func (c *Config) GetRedisAddr() string {
	if c.Redis.URL != "" {
		return c.Redis.URL
	}
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// TelegramEnabled проверяет, настроены ли уведомления в Telegram
func (c *Config) TelegramEnabled() bool {
	return c.External.TelegramBotToken != "" && c.External.TelegramChatID != ""
}

// LogConfig выводит конфигурацию в лог (без секретных данных)
func (c *Config) LogConfig(logger *logrus.Logger) {
	logger.Infof("=== Application Configuration ===")
	logger.Infof("Environment: %s", c.App.Env)
	logger.Infof("Port: %s", c.App.Port)
	logger.Infof("Database: enabled=%t %s:%s/%s", c.Database.Enabled, c.Database.Host, c.Database.Port, c.Database.Name)
	logger.Infof("Redis: enabled=%t %s", c.Redis.Enabled, c.GetRedisAddr())
	logger.Infof("Davo API URL: %s", c.Davo.APIURL)
	logger.Infof("Davo retries: %d", c.Davo.MaxRetries)
	logger.Infof("Session TTL: %v, panel idle TTL: %v", c.Session.TTL, c.Session.PanelIdleTTL)
	logger.Infof("Telegram: %t", c.TelegramEnabled())
	logger.Infof("Summary cron: %q", c.External.SummaryCron)
	logger.Infof("Log Level: %s", c.Logging.Level)
	logger.Infof("Debug Mode: %t", c.App.Debug)
	logger.Infof("================================")
}
