package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"davo_admin/models"

	"github.com/sirupsen/logrus"
)

var (
	// ErrForbidden действие недоступно роли
	ErrForbidden = errors.New("недостаточно прав")
	// ErrMarketNotFound аптеки нет в загруженном списке
	ErrMarketNotFound = errors.New("аптека не найдена")
	// ErrNoChange новое значение совпадает с текущим
	ErrNoChange = errors.New("значение не изменилось")
)

// MarketService операции панели над списком аптек
type MarketService struct {
	panels   *PanelRegistry
	api      MarketAPI
	history  *ChangeHistoryService
	notifier Notifier
	logger   *logrus.Logger
	now      func() time.Time
}

// NewMarketService создает сервис аптек. history может быть nil, если БД отключена.
func NewMarketService(api MarketAPI, panels *PanelRegistry, history *ChangeHistoryService, notifier Notifier, logger *logrus.Logger) *MarketService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &MarketService{
		panels:   panels,
		api:      api,
		history:  history,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// List возвращает видимый список для условий отбора
func (s *MarketService) List(ctx context.Context, session *models.Session, filter models.MarketFilter) ([]models.Market, error) {
	filter = filter.ForRole(session.Role)

	panel := s.panels.Get(session.ID)
	if err := panel.EnsureLoaded(ctx, session.Token, filter.Active); err != nil {
		return nil, err
	}

	visible := panel.Visible(filter)
	if session.Role != models.RoleAdmin {
		for i := range visible {
			visible[i] = visible[i].AgentView()
		}
	}
	return visible, nil
}

// Refresh принудительно перезагружает список с текущим фильтром активности
func (s *MarketService) Refresh(ctx context.Context, session *models.Session, active *bool) error {
	return s.panels.Get(session.ID).Load(ctx, session.Token, active)
}

// Stats сводка по видимому списку
func (s *MarketService) Stats(ctx context.Context, session *models.Session, filter models.MarketFilter) (models.MarketStats, error) {
	visible, err := s.List(ctx, session, filter)
	if err != nil {
		return models.MarketStats{}, err
	}
	return ComputeStats(visible, s.now()), nil
}

// Get возвращает карточку аптеки
func (s *MarketService) Get(ctx context.Context, session *models.Session, id int64) (models.Market, error) {
	panel, err := s.loadedPanel(ctx, session)
	if err != nil {
		return models.Market{}, err
	}

	market, ok, err := panel.Find(ctx, session.Token, id)
	if err != nil {
		return models.Market{}, err
	}
	if !ok {
		return models.Market{}, ErrMarketNotFound
	}
	if session.Role != models.RoleAdmin {
		return market.AgentView(), nil
	}
	return market, nil
}

// loadedPanel панель сессии с загруженным набором
func (s *MarketService) loadedPanel(ctx context.Context, session *models.Session) (*MarketPanel, error) {
	panel := s.panels.Get(session.ID)
	if err := panel.Ready(ctx, session.Token); err != nil {
		return nil, err
	}
	return panel, nil
}

// UpdateField изменяет обучение или фирменный пакет аптеки.
// Без комментария запрос в API не отправляется.
func (s *MarketService) UpdateField(ctx context.Context, session *models.Session, id int64, field models.EditableField, value bool, comment string) (models.Market, error) {
	if !session.Role.CanEdit() {
		return models.Market{}, ErrForbidden
	}
	if !field.IsValid() {
		return models.Market{}, fmt.Errorf("поле %q недоступно для редактирования", field)
	}
	if err := ValidateComment(comment); err != nil {
		return models.Market{}, err
	}

	panel, err := s.loadedPanel(ctx, session)
	if err != nil {
		return models.Market{}, err
	}
	current, ok, err := panel.Find(ctx, session.Token, id)
	if err != nil {
		return models.Market{}, err
	}
	if !ok {
		return models.Market{}, ErrMarketNotFound
	}
	oldValue, err := current.FieldValue(field)
	if err != nil {
		return models.Market{}, err
	}
	if oldValue == value {
		return models.Market{}, ErrNoChange
	}

	logFields := logrus.Fields{
		"market_id": id,
		"field":     field,
		"value":     value,
		"user":      session.Username,
	}

	if _, err := s.api.UpdateMarketField(ctx, session.Token, id, field, value); err != nil {
		s.logger.WithFields(logFields).WithError(err).Error("Не удалось изменить аптеку в Davo API")
		return models.Market{}, err
	}

	panel.Apply(id, field, value)
	updated, _ := current.WithField(field, value)

	record := models.ChangeRecord{
		MarketID:  id,
		Field:     field,
		Timestamp: s.now(),
		User:      session.Username,
		Comment:   comment,
		OldValue:  oldValue,
		NewValue:  value,
	}
	if s.history != nil {
		if err := s.history.Record(&record); err != nil {
			s.logger.WithFields(logFields).WithError(err).Warn("Не удалось сохранить историю изменений")
		}
	}
	if err := s.notifier.NotifyFieldChange(updated, record); err != nil {
		s.logger.WithFields(logFields).WithError(err).Warn("Не удалось отправить уведомление")
	}

	s.logger.WithFields(logFields).Info("Аптека обновлена")
	return updated, nil
}

// History история изменений аптеки
func (s *MarketService) History(session *models.Session, id int64) ([]models.ChangeRecord, error) {
	if !session.Role.CanViewHistory() {
		return nil, ErrForbidden
	}
	if s.history == nil {
		return []models.ChangeRecord{}, nil
	}
	return s.history.ListByMarket(id)
}
