package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// summaryTimeout ограничение на один запуск сводки
const summaryTimeout = 5 * time.Minute

// SummaryScheduler периодически отправляет сводку по покрытию аптек
type SummaryScheduler struct {
	api      MarketAPI
	notifier Notifier
	login    string
	password string
	pageSize int
	cronExpr string
	cron     *cron.Cron
	logger   *logrus.Logger
	now      func() time.Time
}

// NewSummaryScheduler создает планировщик сводки. Выражение cron с секундами.
func NewSummaryScheduler(api MarketAPI, notifier Notifier, login, password string, pageSize int, cronExpr string, logger *logrus.Logger) *SummaryScheduler {
	return &SummaryScheduler{
		api:      api,
		notifier: notifier,
		login:    login,
		password: password,
		pageSize: pageSize,
		cronExpr: cronExpr,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		now:      time.Now,
	}
}

// Start запускает планировщик
func (s *SummaryScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), summaryTimeout)
		defer cancel()

		if err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).Error("Ошибка отправки сводки по аптекам")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.WithField("cron", s.cronExpr).Info("📅 Планировщик сводки запущен")
	return nil
}

// Stop останавливает планировщик и ждет завершения текущего запуска
func (s *SummaryScheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Планировщик сводки остановлен")
}

// RunOnce собирает полный список аптек и отправляет сводку
func (s *SummaryScheduler) RunOnce(ctx context.Context) error {
	payload, err := s.api.Login(ctx, s.login, s.password)
	if err != nil {
		return fmt.Errorf("ошибка авторизации сервисной учетной записи: %w", err)
	}

	panel := NewMarketPanel(s.api, s.pageSize, s.logger)
	defer panel.Close()

	if err := panel.Load(ctx, payload.Token.Token, nil); err != nil {
		return fmt.Errorf("ошибка загрузки списка аптек: %w", err)
	}

	stats := ComputeStats(panel.Snapshot(), s.now())
	if err := s.notifier.NotifySummary(stats); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"total":   stats.Total,
		"trained": stats.Trained,
	}).Info("Сводка по аптекам отправлена")
	return nil
}
