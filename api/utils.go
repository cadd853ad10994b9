package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"davo_admin/config"
	"davo_admin/middleware"
	"davo_admin/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// respondSuccess отправляет успешный ответ
func respondSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

// respondValidation отправляет ошибку валидации с перечнем полей
func respondValidation(c *gin.Context, err error) {
	body := gin.H{
		"status": "error",
		"error":  middleware.Message(middleware.RequestLanguage(c), middleware.CodeValidation),
		"code":   middleware.CodeValidation,
	}
	if fields := processValidationErrors(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// processValidationErrors поле -> нарушенное правило
func processValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// respondError переводит ошибку сервиса в HTTP ответ
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrCommentRequired):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"status": "error",
			"error":  middleware.Message(middleware.RequestLanguage(c), middleware.CodeCommentRequired),
			"code":   middleware.CodeCommentRequired,
			"field":  "comment",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		middleware.AbortWithError(c, http.StatusUnauthorized, middleware.CodeUnauthorized)
	case errors.Is(err, services.ErrRoleNotAllowed):
		middleware.AbortWithError(c, http.StatusForbidden, middleware.CodeRoleNotAllowed)
	case errors.Is(err, services.ErrForbidden):
		middleware.AbortWithError(c, http.StatusForbidden, middleware.CodeForbidden)
	case errors.Is(err, services.ErrMarketNotFound):
		middleware.AbortWithError(c, http.StatusNotFound, middleware.CodeNotFound)
	case errors.Is(err, services.ErrNoChange):
		middleware.AbortWithError(c, http.StatusConflict, middleware.CodeNoChange)
	case errors.Is(err, services.ErrLoadSuperseded), errors.Is(err, context.Canceled):
		middleware.AbortWithError(c, http.StatusConflict, middleware.CodeSuperseded)
	case errors.Is(err, services.ErrUpstream):
		logger.WithError(err).Warn("Ошибка Davo API")
		middleware.AbortWithError(c, http.StatusBadGateway, middleware.CodeUpstream)
	default:
		config.LogError(logger, "api", c.HandlerName(), c.FullPath(), nil, err)
		middleware.AbortWithError(c, http.StatusInternalServerError, middleware.CodeInternal)
	}
}

// parseTriState разбирает трех-значное условие: пусто, true или false
func parseTriState(raw string) (*bool, error) {
	switch raw {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("некорректное значение условия: %q", raw)
}

// parseMarketID разбирает ID аптеки из пути
func parseMarketID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, middleware.CodeValidation)
		return 0, false
	}
	return id, true
}
