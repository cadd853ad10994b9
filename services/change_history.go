package services

import (
	"fmt"
	"time"

	"davo_admin/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChangeHistoryService сервис истории изменений аптек
type ChangeHistoryService struct {
	db *gorm.DB
}

// NewChangeHistoryService создает сервис истории изменений
func NewChangeHistoryService(db *gorm.DB) *ChangeHistoryService {
	return &ChangeHistoryService{db: db}
}

// Record сохраняет запись об изменении поля
func (s *ChangeHistoryService) Record(record *models.ChangeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := ValidateComment(record.Comment); err != nil {
		return err
	}

	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("ошибка сохранения истории изменений: %w", err)
	}
	return nil
}

// ListByMarket возвращает историю изменений аптеки, новые записи первыми
func (s *ChangeHistoryService) ListByMarket(marketID int64) ([]models.ChangeRecord, error) {
	records := []models.ChangeRecord{}
	err := s.db.Where("market_id = ?", marketID).
		Order("timestamp DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка получения истории изменений: %w", err)
	}
	return records, nil
}
