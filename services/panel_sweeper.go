package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PanelSweeper периодически освобождает панели неактивных сессий
type PanelSweeper struct {
	panels   *PanelRegistry
	maxIdle  time.Duration
	cronExpr string
	cron     *cron.Cron
	logger   *logrus.Logger
}

// NewPanelSweeper создает очистку панелей. Выражение cron с секундами.
func NewPanelSweeper(panels *PanelRegistry, maxIdle time.Duration, cronExpr string, logger *logrus.Logger) *PanelSweeper {
	return &PanelSweeper{
		panels:   panels,
		maxIdle:  maxIdle,
		cronExpr: cronExpr,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
	}
}

// Start запускает очистку
func (s *PanelSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.cronExpr, func() { s.RunOnce() }); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"cron":     s.cronExpr,
		"max_idle": s.maxIdle.String(),
	}).Info("🧹 Очистка неактивных панелей запущена")
	return nil
}

// Stop останавливает очистку
func (s *PanelSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce удаляет панели, простаивающие дольше maxIdle
func (s *PanelSweeper) RunOnce() int {
	evicted := s.panels.EvictIdle(s.maxIdle)
	if evicted > 0 {
		s.logger.WithFields(logrus.Fields{
			"evicted": evicted,
			"left":    s.panels.Len(),
		}).Info("Неактивные панели освобождены")
	}
	return evicted
}
