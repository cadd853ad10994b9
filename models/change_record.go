package models

import "time"

// ChangeRecord запись аудита об изменении поля аптеки
type ChangeRecord struct {
	ID        string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MarketID  int64         `json:"marketId" gorm:"not null;index"`
	Field     EditableField `json:"field" gorm:"not null;type:varchar(32)"`
	Timestamp time.Time     `json:"timestamp" gorm:"not null;index"`
	User      string        `json:"user" gorm:"not null;type:varchar(100)"`
	Comment   string        `json:"comment" gorm:"type:text;not null"`
	OldValue  bool          `json:"oldValue"`
	NewValue  bool          `json:"newValue"`
}

// TableName задает имя таблицы для модели ChangeRecord
func (ChangeRecord) TableName() string {
	return "change_records"
}
