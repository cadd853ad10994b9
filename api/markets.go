package api

import (
	"fmt"
	"net/http"
	"time"

	"davo_admin/middleware"
	"davo_admin/models"
	"davo_admin/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// MarketListQuery условия отбора списка аптек в строке запроса
type MarketListQuery struct {
	Active        string `form:"active" binding:"omitempty,oneof=true false"`
	TelegramBot   string `form:"telegramBot" binding:"omitempty,oneof=true false"`
	BrandedPacket string `form:"brandedPacket" binding:"omitempty,oneof=true false"`
	Training      string `form:"training" binding:"omitempty,oneof=true false"`
	Search        string `form:"search" binding:"max=200"`
}

// UpdateFieldRequest тело запроса изменения поля аптеки
type UpdateFieldRequest struct {
	Field   string `json:"field" binding:"required,oneof=training brandedPacket"`
	Value   *bool  `json:"value" binding:"required"`
	Comment string `json:"comment" binding:"max=1000"`
}

// MarketsAPI предоставляет API для работы со списком аптек
type MarketsAPI struct {
	markets *services.MarketService
	export  *services.ExportService
	logger  *logrus.Logger
}

// NewMarketsAPI создает новый экземпляр MarketsAPI
func NewMarketsAPI(markets *services.MarketService, export *services.ExportService, logger *logrus.Logger) *MarketsAPI {
	return &MarketsAPI{
		markets: markets,
		export:  export,
		logger:  logger,
	}
}

// RegisterRoutes регистрирует маршруты API аптек
func (ma *MarketsAPI) RegisterRoutes(router *gin.RouterGroup) {
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	markets := router.Group("/markets")
	{
		markets.GET("", ma.GetMarkets)
		markets.POST("/refresh", ma.RefreshMarkets)
		markets.GET("/stats", ma.GetStats)
		markets.GET("/export", adminOnly, ma.ExportMarkets)
		markets.GET("/:id", ma.GetMarket)
		markets.PATCH("/:id", adminOnly, ma.UpdateMarketField)
		markets.GET("/:id/history", adminOnly, ma.GetMarketHistory)
	}
}

// GetMarkets возвращает видимый список аптек
func (ma *MarketsAPI) GetMarkets(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	list, err := ma.markets.List(c.Request.Context(), session, filter)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}

	respondSuccess(c, gin.H{
		"list":   list,
		"total":  len(list),
		"filter": filter.ForRole(session.Role),
	})
}

// RefreshMarkets принудительно перезагружает список из Davo API
func (ma *MarketsAPI) RefreshMarkets(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	if err := ma.markets.Refresh(c.Request.Context(), session, filter.Active); err != nil {
		respondError(c, ma.logger, err)
		return
	}

	list, err := ma.markets.List(c.Request.Context(), session, filter)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}
	respondSuccess(c, gin.H{"list": list, "total": len(list)})
}

// GetStats возвращает сводку по видимому списку
func (ma *MarketsAPI) GetStats(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	stats, err := ma.markets.Stats(c.Request.Context(), session, filter)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}
	respondSuccess(c, stats)
}

// ExportMarkets выгружает видимый список в xlsx или pdf
func (ma *MarketsAPI) ExportMarkets(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, middleware.CodeValidation)
		return
	}
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	list, err := ma.markets.List(c.Request.Context(), session, filter)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}

	data, err := ma.export.Export(list, format)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}

	filename := fmt.Sprintf("markets_%s.%s", time.Now().Format("20060102_150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, format.ContentType(), data)
}

// GetMarket возвращает карточку аптеки
func (ma *MarketsAPI) GetMarket(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	id, ok := parseMarketID(c)
	if !ok {
		return
	}

	market, err := ma.markets.Get(c.Request.Context(), session, id)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}
	respondSuccess(c, market)
}

// UpdateMarketField изменяет обучение или фирменный пакет аптеки
func (ma *MarketsAPI) UpdateMarketField(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	id, ok := parseMarketID(c)
	if !ok {
		return
	}

	var req UpdateFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, err)
		return
	}

	field, err := models.ParseEditableField(req.Field)
	if err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, middleware.CodeValidation)
		return
	}

	market, err := ma.markets.UpdateField(c.Request.Context(), session, id, field, *req.Value, req.Comment)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}
	respondSuccess(c, market)
}

// GetMarketHistory возвращает историю изменений аптеки
func (ma *MarketsAPI) GetMarketHistory(c *gin.Context) {
	session, _ := middleware.GetCurrentSession(c)
	id, ok := parseMarketID(c)
	if !ok {
		return
	}

	history, err := ma.markets.History(session, id)
	if err != nil {
		respondError(c, ma.logger, err)
		return
	}
	respondSuccess(c, history)
}

// bindFilter разбирает условия отбора из строки запроса
func bindFilter(c *gin.Context) (models.MarketFilter, bool) {
	var query MarketListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondValidation(c, err)
		return models.MarketFilter{}, false
	}

	filter := models.MarketFilter{SearchQuery: query.Search}
	targets := []struct {
		raw string
		dst **bool
	}{
		{query.Active, &filter.Active},
		{query.TelegramBot, &filter.TelegramBot},
		{query.BrandedPacket, &filter.BrandedPacket},
		{query.Training, &filter.Training},
	}
	for _, t := range targets {
		v, err := parseTriState(t.raw)
		if err != nil {
			respondValidation(c, err)
			return models.MarketFilter{}, false
		}
		*t.dst = v
	}
	return filter, true
}
