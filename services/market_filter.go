package services

import (
	"strings"

	"davo_admin/models"
)

// FilterMarkets возвращает аптеки, удовлетворяющие всем заданным условиям,
// в исходном порядке. Входной срез не изменяется и не разделяется с результатом.
func FilterMarkets(records []models.Market, filter models.MarketFilter) []models.Market {
	query := strings.ToLower(filter.SearchQuery)

	visible := make([]models.Market, 0, len(records))
	for _, m := range records {
		if !matchTriState(filter.Active, m.Active) ||
			!matchTriState(filter.TelegramBot, m.HasTelegramBot()) ||
			!matchTriState(filter.BrandedPacket, m.BrandedPacket) ||
			!matchTriState(filter.Training, m.Training) {
			continue
		}
		if query != "" && !matchesSearch(m, query) {
			continue
		}
		visible = append(visible, m)
	}
	return visible
}

// matchTriState: nil условие подходит для любой записи
func matchTriState(expected *bool, actual bool) bool {
	return expected == nil || *expected == actual
}

// matchesSearch ищет подстроку без учета регистра в любом из полей поиска.
// query уже приведен к нижнему регистру.
func matchesSearch(m models.Market, query string) bool {
	fields := []*string{&m.Name, &m.Address, m.Phone, m.LeadPhone(), m.Landmark, &m.Code}
	for _, f := range fields {
		if f != nil && strings.Contains(strings.ToLower(*f), query) {
			return true
		}
	}
	return false
}
