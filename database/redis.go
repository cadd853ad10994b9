package database

import (
	"context"
	"fmt"
	"time"

	"davo_admin/config"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

var Redis *redis.Client

// InitRedis инициализирует подключение к Redis
func InitRedis(cfg *config.Config, log *logrus.Logger) error {
	timeout := cfg.Redis.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.MaxConns,
		MinIdleConns: 5,
		DialTimeout:  timeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  300 * time.Second,
	})

	// Проверяем подключение
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("не удалось подключиться к Redis: %w", err)
	}

	Redis = client
	log.Info("✅ Успешно подключено к Redis")
	return nil
}

// GetRedis возвращает экземпляр Redis клиента, nil если Redis не подключен
func GetRedis() *redis.Client {
	return Redis
}

// CloseRedis закрывает подключение к Redis
func CloseRedis() error {
	if Redis == nil {
		return nil
	}
	return Redis.Close()
}

// RateLimitCheck увеличивает счетчик действия и проверяет лимит в фиксированном окне.
// TTL ставится только при первом обращении в окне, поэтому отклоненные
// запросы не продлевают блокировку. Возвращает время до сброса окна.
func RateLimitCheck(ctx context.Context, client *redis.Client, key string, limit int64, window time.Duration) (bool, time.Duration, error) {
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe := client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := incr.Val()
	reset := ttl.Val()
	// Первое обращение или ключ без TTL
	if count == 1 || reset < 0 {
		if err := client.Expire(ctx, key, window).Err(); err != nil {
			return false, 0, err
		}
		reset = window
	}

	return count <= limit, reset, nil
}
