package services

import (
	"testing"

	"davo_admin/models"
	"davo_admin/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketIDs(markets []models.Market) []int64 {
	ids := make([]int64, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestFilterMarkets_Scenarios(t *testing.T) {
	records := testutils.AloeBetaMarkets()

	t.Run("Только активные", func(t *testing.T) {
		visible := FilterMarkets(records, models.MarketFilter{Active: models.BoolPtr(true)})
		assert.Equal(t, []int64{1}, marketIDs(visible))
	})

	t.Run("Поиск без учета регистра", func(t *testing.T) {
		visible := FilterMarkets(records, models.MarketFilter{SearchQuery: "bet"})
		assert.Equal(t, []int64{2}, marketIDs(visible))

		visible = FilterMarkets(records, models.MarketFilter{SearchQuery: "ALOE"})
		assert.Equal(t, []int64{1}, marketIDs(visible))
	})

	t.Run("Пустой поиск не ограничивает", func(t *testing.T) {
		visible := FilterMarkets(records, models.MarketFilter{SearchQuery: ""})
		assert.Equal(t, []int64{1, 2}, marketIDs(visible))
	})

	t.Run("Обучение false", func(t *testing.T) {
		visible := FilterMarkets(records, models.MarketFilter{Training: models.BoolPtr(false)})
		assert.Equal(t, []int64{1}, marketIDs(visible))
	})

	t.Run("Условия объединяются через И", func(t *testing.T) {
		visible := FilterMarkets(records, models.MarketFilter{
			Active:   models.BoolPtr(true),
			Training: models.BoolPtr(true),
		})
		assert.Empty(t, visible)
		assert.NotNil(t, visible)
	})
}

func TestFilterMarkets_AllUnsetIsIdentity(t *testing.T) {
	records := testutils.CreateTestMarkets(10)

	visible := FilterMarkets(records, models.MarketFilter{})
	assert.Equal(t, records, visible)

	// Результат не разделяет память с входом
	visible[0].Name = "changed"
	assert.NotEqual(t, "changed", records[0].Name)
}

func TestFilterMarkets_SubsetAndOrder(t *testing.T) {
	records := testutils.CreateTestMarkets(12)
	filters := []models.MarketFilter{
		{Active: models.BoolPtr(true)},
		{Active: models.BoolPtr(false), Training: models.BoolPtr(true)},
		{BrandedPacket: models.BoolPtr(false)},
		{TelegramBot: models.BoolPtr(true), SearchQuery: "apteka00"},
		{SearchQuery: "+99890765"},
	}

	for _, filter := range filters {
		visible := FilterMarkets(records, filter)
		require.LessOrEqual(t, len(visible), len(records))

		// Порядок сохраняется: ID возрастают как во входе
		ids := marketIDs(visible)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i])
		}

		// Применение фильтра к результату ничего не меняет
		assert.Equal(t, visible, FilterMarkets(visible, filter))
	}
}

func TestFilterMarkets_SearchFields(t *testing.T) {
	market := testutils.CreateTestMarket(7, "Shifo")
	market.Landmark = models.StringPtr("Рядом с Корзинкой")
	records := []models.Market{market}

	cases := map[string]string{
		"название":               "shifo",
		"адрес":                  "ташкент",
		"телефон аптеки":         "1112233",
		"телефон ответственного": "7654321",
		"ориентир":               "корзинкой",
		"код":                    "m-shifo",
	}
	for name, query := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Len(t, FilterMarkets(records, models.MarketFilter{SearchQuery: query}), 1)
		})
	}

	assert.Empty(t, FilterMarkets(records, models.MarketFilter{SearchQuery: "несуществующий"}))
}

func TestFilterMarkets_MissingOptionalFields(t *testing.T) {
	records := []models.Market{{ID: 1, Name: "Без контактов", Active: true}}

	assert.Len(t, FilterMarkets(records, models.MarketFilter{SearchQuery: "контакт"}), 1)
	assert.Empty(t, FilterMarkets(records, models.MarketFilter{SearchQuery: "+998"}))
	assert.Len(t, FilterMarkets(records, models.MarketFilter{TelegramBot: models.BoolPtr(false)}), 1)
	assert.Empty(t, FilterMarkets(records, models.MarketFilter{TelegramBot: models.BoolPtr(true)}))
}

func TestFilterMarkets_EmptyInput(t *testing.T) {
	visible := FilterMarkets(nil, models.MarketFilter{Active: models.BoolPtr(true)})
	assert.NotNil(t, visible)
	assert.Empty(t, visible)
}
