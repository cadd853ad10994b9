package services

import (
	"time"

	"davo_admin/models"

	"github.com/shopspring/decimal"
)

// ComputeStats считает покрытие аптек обучением, фирменным пакетом и ботом
func ComputeStats(records []models.Market, now time.Time) models.MarketStats {
	stats := models.MarketStats{Total: len(records), GeneratedAt: now}
	for _, m := range records {
		if m.Active {
			stats.Active++
		}
		if m.Training {
			stats.Trained++
		}
		if m.BrandedPacket {
			stats.WithBrandedPacket++
		}
		if m.HasTelegramBot() {
			stats.WithTelegramBot++
		}
	}

	stats.TrainingPercent = percent(stats.Trained, stats.Total)
	stats.BrandedPacketPct = percent(stats.WithBrandedPacket, stats.Total)
	stats.TelegramBotPercent = percent(stats.WithTelegramBot, stats.Total)
	return stats
}

func percent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(int64(total)), 2)
}
