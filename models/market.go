package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Market аптека (магазин) из Davo Delivery API
type Market struct {
	ID            int64        `json:"id"`
	Code          string       `json:"code"`
	Name          string       `json:"name"`
	Slug          string       `json:"slug,omitempty"`
	Address       string       `json:"address"`
	Landmark      *string      `json:"landmark"`
	Phone         *string      `json:"phone"`
	Active        bool         `json:"active"`
	Training      bool         `json:"training"`
	BrandedPacket bool         `json:"brandedPacket"`
	Lead          *Lead        `json:"lead"`
	MarketChats   []MarketChat `json:"marketChats"`
	CreationDate  string       `json:"creationDate,omitempty"`
	ModifiedDate  string       `json:"modifiedDate,omitempty"`
}

// Lead ответственное лицо аптеки: контакты, юридические и банковские реквизиты.
// Все поля кроме ID необязательны.
type Lead struct {
	ID               int64   `json:"id"`
	Name             *string `json:"name"`
	Phone            *string `json:"phone"`
	Status           *string `json:"status"`
	Stir             *string `json:"stir"`
	AdditionalPhone  *string `json:"additionalPhone"`
	JuridicalName    *string `json:"juridicalName"`
	JuridicalAddress *string `json:"juridicalAddress"`
	BankName         *string `json:"bankName"`
	Mfo              *string `json:"mfo"`
	BankAccount      *string `json:"bankAccount"`
}

// MarketChat привязка аптеки к чату Telegram бота
type MarketChat struct {
	ID     int64  `json:"id"`
	ChatID int64  `json:"chatId,omitempty"`
	Title  string `json:"title,omitempty"`
}

// HasTelegramBot проверяет, подключен ли Telegram бот к аптеке
func (m Market) HasTelegramBot() bool {
	return len(m.MarketChats) > 0
}

// LeadPhone возвращает телефон ответственного или nil
func (m Market) LeadPhone() *string {
	if m.Lead == nil {
		return nil
	}
	return m.Lead.Phone
}

// FieldValue возвращает значение редактируемого поля
func (m Market) FieldValue(field EditableField) (bool, error) {
	switch field {
	case FieldTraining:
		return m.Training, nil
	case FieldBrandedPacket:
		return m.BrandedPacket, nil
	}
	return false, fmt.Errorf("неизвестное поле: %q", field)
}

// WithField возвращает копию аптеки с измененным полем
func (m Market) WithField(field EditableField, value bool) (Market, error) {
	switch field {
	case FieldTraining:
		m.Training = value
	case FieldBrandedPacket:
		m.BrandedPacket = value
	default:
		return m, fmt.Errorf("неизвестное поле: %q", field)
	}
	return m, nil
}

// AgentView скрывает юридические и банковские данные ответственного
func (m Market) AgentView() Market {
	if m.Lead != nil {
		m.Lead = &Lead{
			ID:     m.Lead.ID,
			Name:   m.Lead.Name,
			Phone:  m.Lead.Phone,
			Status: m.Lead.Status,
		}
	}
	return m
}

// EditableField поле аптеки, которое можно изменить из панели
type EditableField string

const (
	FieldTraining      EditableField = "training"
	FieldBrandedPacket EditableField = "brandedPacket"
)

// EditableFields все редактируемые поля
var EditableFields = []EditableField{FieldTraining, FieldBrandedPacket}

// IsValid проверяет, что поле можно редактировать
func (f EditableField) IsValid() bool {
	for _, editable := range EditableFields {
		if f == editable {
			return true
		}
	}
	return false
}

// ParseEditableField разбирает имя поля из запроса
func ParseEditableField(s string) (EditableField, error) {
	f := EditableField(s)
	if !f.IsValid() {
		return "", fmt.Errorf("поле %q недоступно для редактирования", s)
	}
	return f, nil
}

// MarketFilter набор условий отбора списка аптек.
// nil в трех-значном условии означает «без ограничения».
type MarketFilter struct {
	Active        *bool  `json:"active"`
	TelegramBot   *bool  `json:"telegramBot"`
	BrandedPacket *bool  `json:"brandedPacket"`
	Training      *bool  `json:"training"`
	SearchQuery   string `json:"searchQuery"`
}

// ForRole оставляет только условия, доступные роли.
// В панели администратора есть поиск и фильтр активности.
func (f MarketFilter) ForRole(role Role) MarketFilter {
	if role == RoleAdmin {
		return MarketFilter{Active: f.Active, SearchQuery: f.SearchQuery}
	}
	return f
}

// MarketListResult страница списка аптек из API
type MarketListResult struct {
	List  []Market `json:"list"`
	Total int64    `json:"total"`
}

// MarketStats сводка по покрытию аптек
type MarketStats struct {
	Total              int             `json:"total"`
	Active             int             `json:"active"`
	Trained            int             `json:"trained"`
	WithBrandedPacket  int             `json:"withBrandedPacket"`
	WithTelegramBot    int             `json:"withTelegramBot"`
	TrainingPercent    decimal.Decimal `json:"trainingPercent"`
	BrandedPacketPct   decimal.Decimal `json:"brandedPacketPercent"`
	TelegramBotPercent decimal.Decimal `json:"telegramBotPercent"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

// BoolPtr вспомогательная функция для трех-значных условий
func BoolPtr(b bool) *bool {
	return &b
}

// StringPtr вспомогательная функция для необязательных строк
func StringPtr(s string) *string {
	return &s
}
