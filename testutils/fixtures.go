package testutils

import (
	"fmt"

	"davo_admin/models"
)

// AloeBetaMarkets две аптеки: активная без обучения и неактивная с обучением
func AloeBetaMarkets() []models.Market {
	return []models.Market{
		{ID: 1, Code: "A-001", Name: "Aloe", Address: "Чиланзар 1", Active: true, Training: false},
		{ID: 2, Code: "B-002", Name: "Beta", Address: "Юнусабад 7", Active: false, Training: true},
	}
}

// CreateTestMarket создает аптеку с ответственным и Telegram чатом
func CreateTestMarket(id int64, name string) models.Market {
	return models.Market{
		ID:            id,
		Code:          "M-" + name,
		Name:          name,
		Slug:          "market-" + name,
		Address:       "Ташкент, " + name,
		Landmark:      models.StringPtr("метро Чиланзар"),
		Phone:         models.StringPtr("+998901112233"),
		Active:        true,
		Training:      false,
		BrandedPacket: false,
		Lead: &models.Lead{
			ID:            id * 10,
			Name:          models.StringPtr("Ответственный " + name),
			Phone:         models.StringPtr("+998907654321"),
			Status:        models.StringPtr("ACTIVE"),
			Stir:          models.StringPtr("301234567"),
			JuridicalName: models.StringPtr("ООО " + name),
			BankName:      models.StringPtr("Капиталбанк"),
			Mfo:           models.StringPtr("01088"),
			BankAccount:   models.StringPtr("20208000900100001010"),
		},
		MarketChats:  []models.MarketChat{{ID: id, ChatID: -1000 - id, Title: name}},
		CreationDate: "2024-03-01T09:00:00",
	}
}

// CreateTestMarkets создает count аптек с последовательными ID
func CreateTestMarkets(count int) []models.Market {
	markets := make([]models.Market, 0, count)
	for i := 1; i <= count; i++ {
		m := CreateTestMarket(int64(i), fmt.Sprintf("Apteka%03d", i))
		m.Training = i%2 == 0
		m.Active = i%3 != 0
		markets = append(markets, m)
	}
	return markets
}
