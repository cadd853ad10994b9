package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"davo_admin/api"
	"davo_admin/config"
	"davo_admin/database"
	"davo_admin/services"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// initDB инициализирует подключение к базе данных истории изменений
func initDB(cfg *config.Config, logger *logrus.Logger) *gorm.DB {
	if !cfg.Database.Enabled {
		logger.Warn("⚠️  База данных отключена, история изменений не сохраняется")
		return nil
	}

	logger.Info("🔧 Инициализация базы данных...")

	// Создаем базу данных, если она не существует
	if err := database.CreateDatabaseIfNotExists(cfg, logger); err != nil {
		logger.Fatalf("❌ Ошибка при создании базы данных: %v", err)
	}

	// Подключаемся к базе данных
	if err := database.ConnectDatabase(cfg, logger); err != nil {
		logger.Fatalf("❌ Ошибка подключения к базе данных: %v", err)
	}

	logger.Info("✅ База данных успешно инициализирована")
	return database.GetDB()
}

// initSessionStorage выбирает хранилище сессий: Redis или память процесса
func initSessionStorage(cfg *config.Config, logger *logrus.Logger) services.SessionStorage {
	if cfg.Redis.Enabled {
		if err := database.InitRedis(cfg, logger); err != nil {
			logger.Warnf("⚠️  Redis недоступен, сессии хранятся в памяти: %v", err)
		} else {
			return services.NewRedisSessionStorage(database.GetRedis())
		}
	}
	return services.NewMemorySessionStorage()
}

// initNotifier настраивает уведомления в Telegram
func initNotifier(cfg *config.Config, db *gorm.DB, logger *logrus.Logger) services.Notifier {
	if !cfg.TelegramEnabled() {
		logger.Info("Telegram не настроен, уведомления отключены")
		return services.NoopNotifier{}
	}

	client, err := services.NewTelegramClient(cfg.External.TelegramBotToken, logger)
	if err != nil {
		logger.Warnf("⚠️  Ошибка инициализации Telegram: %v", err)
		return services.NoopNotifier{}
	}
	return services.NewNotificationService(db, client, cfg.External.TelegramChatID, logger)
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	logger := config.NewLogger(cfg.Logging)
	cfg.LogConfig(logger)

	db := initDB(cfg, logger)
	storage := initSessionStorage(cfg, logger)
	defer database.CloseRedis()

	client := services.NewDavoClient(cfg.Davo.APIURL, cfg.Davo.Timeout, logger)
	client.AcceptLanguage = cfg.Davo.AcceptLanguage
	client.PageSize = cfg.Davo.PageSize
	client.Retry.MaxRetries = cfg.Davo.MaxRetries

	panels := services.NewPanelRegistry(client, cfg.Davo.PageSize, logger)
	sessions := services.NewSessionService(client, storage, panels, cfg.Session.TTL, logger)
	notifier := initNotifier(cfg, db, logger)

	var history *services.ChangeHistoryService
	if db != nil {
		history = services.NewChangeHistoryService(db)
	}
	markets := services.NewMarketService(client, panels, history, notifier, logger)

	sweeper := services.NewPanelSweeper(panels, cfg.Session.PanelIdleTTL, cfg.Session.PanelSweep, logger)
	if err := sweeper.Start(); err != nil {
		logger.Fatalf("❌ Ошибка запуска очистки панелей: %v", err)
	}
	defer sweeper.Stop()

	if cfg.External.SummaryCron != "" {
		scheduler := services.NewSummaryScheduler(client, notifier,
			cfg.External.ServiceLogin, cfg.External.ServicePassword,
			cfg.Davo.PageSize, cfg.External.SummaryCron, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatalf("❌ Ошибка запуска планировщика сводки: %v", err)
		}
		defer scheduler.Stop()
	}

	router := api.SetupRouter(api.Dependencies{
		Config:   cfg,
		Logger:   logger,
		Redis:    database.GetRedis(),
		Sessions: sessions,
		Markets:  markets,
		Export:   services.NewExportService(logger, cfg.Export.PDFFontPath),
	})

	srv := &http.Server{
		Addr:    cfg.App.Host + ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		logger.Infof("🚀 Сервер запущен на порту %s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("❌ Ошибка сервера: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Остановка сервера...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Ошибка остановки сервера: %v", err)
	}
}
