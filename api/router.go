package api

import (
	"net/http"
	"time"

	"davo_admin/config"
	"davo_admin/middleware"
	"davo_admin/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Dependencies зависимости HTTP слоя
type Dependencies struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Redis    *redis.Client // nil, если Redis отключен
	Sessions *services.SessionService
	Markets  *services.MarketService
	Export   *services.ExportService
}

// SetupRouter настраивает Gin router со всеми маршрутами панели
func SetupRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))

	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	r.Use(cors.New(corsConfig))

	// Базовые роуты
	r.GET("/ping", func(c *gin.Context) {
		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "pong",
			"redis":   redisStatus,
		})
	})

	authMiddleware := middleware.NewAuthMiddleware(deps.Sessions)

	public := r.Group("/api")
	protected := r.Group("/api")
	protected.Use(authMiddleware.RequireAuth())
	protected.Use(middleware.APIRateLimit(deps.Redis, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow, deps.Logger))

	loginLimiter := middleware.AuthRateLimit(deps.Redis, cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow, deps.Logger)
	NewAuthAPI(deps.Sessions, deps.Logger).RegisterRoutes(public, protected, loginLimiter)
	NewMarketsAPI(deps.Markets, deps.Export, deps.Logger).RegisterRoutes(protected)

	return r
}
