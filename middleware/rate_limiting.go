package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"davo_admin/database"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RateLimitConfig конфигурация rate limiting
type RateLimitConfig struct {
	Requests     int                       // Количество запросов
	Window       time.Duration             // Временное окно
	Prefix       string                    // Префикс ключа
	KeyGenerator func(*gin.Context) string // Генератор ключей
}

// DefaultKeyGenerator генерирует ключ на основе IP адреса
func DefaultKeyGenerator(c *gin.Context) string {
	return c.ClientIP()
}

// SessionKeyGenerator генерирует ключ на основе сессии
func SessionKeyGenerator(c *gin.Context) string {
	if id := ExtractSessionID(c); id != "" {
		return "session:" + id
	}
	return c.ClientIP()
}

// RateLimit создает middleware для ограничения частоты запросов.
// Без Redis ограничение не применяется.
func RateLimit(client *redis.Client, config RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || config.Requests <= 0 {
			c.Next()
			return
		}

		key := config.Prefix + ":" + config.KeyGenerator(c)
		allowed, reset, err := database.RateLimitCheck(c.Request.Context(), client, key, int64(config.Requests), config.Window)
		if err != nil {
			// В случае ошибки Redis пропускаем запрос
			logger.WithError(err).Warn("Rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(reset).Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(reset.Seconds()))))
			AbortWithError(c, http.StatusTooManyRequests, CodeRateLimited)
			return
		}

		c.Next()
	}
}

// AuthRateLimit ограничение для авторизации
func AuthRateLimit(client *redis.Client, requests int, window time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Requests:     requests,
		Window:       window,
		Prefix:       "login",
		KeyGenerator: DefaultKeyGenerator,
	}, logger)
}

// APIRateLimit ограничение для API панели
func APIRateLimit(client *redis.Client, requests int, window time.Duration, logger *logrus.Logger) gin.HandlerFunc {
	return RateLimit(client, RateLimitConfig{
		Requests:     requests,
		Window:       window,
		Prefix:       "api",
		KeyGenerator: SessionKeyGenerator,
	}, logger)
}
