package services

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"davo_admin/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Notifier уведомления о событиях панели
type Notifier interface {
	NotifyFieldChange(market models.Market, record models.ChangeRecord) error
	NotifySummary(stats models.MarketStats) error
}

// NoopNotifier уведомления отключены
type NoopNotifier struct{}

func (NoopNotifier) NotifyFieldChange(models.Market, models.ChangeRecord) error { return nil }
func (NoopNotifier) NotifySummary(models.MarketStats) error                     { return nil }

var fieldChangeTemplate = template.Must(template.New("field_change").Parse(
	`<b>{{.Field}}</b>: {{.Market.Name}} ({{.Market.Code}})
{{.Old}} → {{.New}}
Кто: {{.Record.User}}
Комментарий: {{.Record.Comment}}`))

var summaryTemplate = template.Must(template.New("summary").Parse(
	`<b>Сводка по аптекам</b> на {{.Date}}
Всего: {{.Stats.Total}}, активных: {{.Stats.Active}}
Обучение: {{.Stats.Trained}} ({{.Stats.TrainingPercent}}%)
Фирменный пакет: {{.Stats.WithBrandedPacket}} ({{.Stats.BrandedPacketPct}}%)
Telegram бот: {{.Stats.WithTelegramBot}} ({{.Stats.TelegramBotPercent}}%)`))

// NotificationService отправляет уведомления в Telegram и пишет лог отправки
type NotificationService struct {
	DB     *gorm.DB
	sender MessageSender
	chatID string
	logger *logrus.Logger
}

// NewNotificationService создает новый экземпляр NotificationService.
// db может быть nil, тогда лог отправки не сохраняется.
func NewNotificationService(db *gorm.DB, sender MessageSender, chatID string, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		DB:     db,
		sender: sender,
		chatID: chatID,
		logger: logger,
	}
}

// NotifyFieldChange уведомляет об изменении обучения или фирменного пакета
func (s *NotificationService) NotifyFieldChange(market models.Market, record models.ChangeRecord) error {
	data := map[string]interface{}{
		"Field":  fieldTitle(record.Field),
		"Market": market,
		"Record": record,
		"Old":    yesNo(record.OldValue),
		"New":    yesNo(record.NewValue),
	}

	message, err := render(fieldChangeTemplate, data)
	if err != nil {
		return err
	}

	marketID := market.ID
	return s.send(models.NotificationTypeFieldChange, message, &marketID)
}

// NotifySummary отправляет сводку по покрытию аптек
func (s *NotificationService) NotifySummary(stats models.MarketStats) error {
	data := map[string]interface{}{
		"Stats": stats,
		"Date":  stats.GeneratedAt.Format("02.01.2006 15:04"),
	}

	message, err := render(summaryTemplate, data)
	if err != nil {
		return err
	}
	return s.send(models.NotificationTypeSummary, message, nil)
}

// send отправляет сообщение и сохраняет лог
func (s *NotificationService) send(notificationType, message string, marketID *int64) error {
	notificationLog := models.NotificationLog{
		Type:      notificationType,
		Channel:   "telegram",
		Recipient: s.chatID,
		Message:   message,
		MarketID:  marketID,
	}

	externalID, err := s.sender.SendMessage(s.chatID, message)
	if err != nil {
		notificationLog.Status = models.NotificationStatusFailed
		notificationLog.ErrorMessage = err.Error()
		s.logger.WithFields(logrus.Fields{
			"type":  notificationType,
			"error": err.Error(),
		}).Warn("Ошибка отправки уведомления")
	} else {
		notificationLog.Status = models.NotificationStatusSent
		notificationLog.ExternalID = externalID
		now := time.Now()
		notificationLog.SentAt = &now
	}

	if s.DB != nil {
		if dbErr := s.DB.Create(&notificationLog).Error; dbErr != nil {
			s.logger.WithError(dbErr).Warn("Не удалось сохранить лог уведомления")
		}
	}

	return err
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("ошибка рендеринга шаблона %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func fieldTitle(field models.EditableField) string {
	switch field {
	case models.FieldTraining:
		return "Обучение"
	case models.FieldBrandedPacket:
		return "Фирменный пакет"
	}
	return string(field)
}

func yesNo(v bool) string {
	if v {
		return "Да"
	}
	return "Нет"
}
