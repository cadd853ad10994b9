package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"davo_admin/models"

	"github.com/sirupsen/logrus"
)

// ErrUpstream ошибка ответа Davo Delivery API
var ErrUpstream = errors.New("ошибка Davo API")

// APIError неуспешный ответ Davo Delivery API
type APIError struct {
	Op     string
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: неуспешный ответ, статус: %d", e.Op, e.Status)
}

func (e *APIError) Unwrap() error {
	return ErrUpstream
}

// MarketAPI операции Davo Delivery API, которые использует панель
type MarketAPI interface {
	Login(ctx context.Context, login, password string) (*LoginPayload, error)
	ListMarkets(ctx context.Context, token string, req ListMarketsRequest) (*models.MarketListResult, error)
	UpdateMarketField(ctx context.Context, token string, marketID int64, field models.EditableField, value bool) (*models.Market, error)
}

// DavoClient клиент для работы с Davo Delivery API
type DavoClient struct {
	BaseURL        string
	AcceptLanguage string
	PageSize       int
	HTTPClient     *http.Client
	Retry          RetryConfig
	Logger         *logrus.Logger
}

// RetryConfig конфигурация для retry механизма
type RetryConfig struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []int // HTTP статус коды для повтора
}

// LoginRequest тело запроса авторизации
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// LoginUser пользователь из ответа авторизации
type LoginUser struct {
	ID          int64              `json:"id"`
	Username    string             `json:"username"`
	Phone       string             `json:"phone"`
	Authorities []models.Authority `json:"authorities"`
}

// LoginToken токен из ответа авторизации
type LoginToken struct {
	Token              string  `json:"token"`
	ActivationRequired bool    `json:"activationRequired"`
	ExpiresAt          *string `json:"expiresAt"`
	ExpiresIn          *string `json:"expiresIn"`
}

// LoginPayload полезная нагрузка ответа авторизации
type LoginPayload struct {
	User  LoginUser  `json:"user"`
	Token LoginToken `json:"token"`
}

// ListMarketsRequest тело запроса списка аптек. Active == nil запрашивает оба состояния.
type ListMarketsRequest struct {
	SearchKey string `json:"searchKey"`
	Page      int    `json:"page"`
	Size      int    `json:"size"`
	Active    *bool  `json:"active"`
}

type envelope[T any] struct {
	Payload *T     `json:"payload"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
}

// NewDavoClient создает новый клиент для Davo Delivery API
func NewDavoClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *DavoClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard) // Пустой логгер если не передан
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &DavoClient{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		AcceptLanguage: "ru,en-US;q=0.9,en;q=0.8",
		PageSize:       100,
		HTTPClient:     client,
		Retry:          GetDefaultRetryConfig(),
		Logger:         logger,
	}
}

// GetDefaultRetryConfig возвращает стандартную конфигурацию retry (без повторов)
func GetDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    0,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []int{
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
			http.StatusTooManyRequests,
		},
	}
}

// Login авторизуется в Davo Delivery API
func (c *DavoClient) Login(ctx context.Context, login, password string) (*LoginPayload, error) {
	var env envelope[LoginPayload]
	if err := c.do(ctx, "login", http.MethodPost, "/auth/admin-login", "", LoginRequest{Login: login, Password: password}, &env); err != nil {
		return nil, err
	}

	if env.Payload == nil || env.Payload.Token.Token == "" {
		return nil, fmt.Errorf("login: пустой токен в ответе: %w", ErrUpstream)
	}

	c.Logger.WithField("username", env.Payload.User.Username).Info("Успешная авторизация в Davo API")
	return env.Payload, nil
}

// ListMarkets получает страницу списка аптек
func (c *DavoClient) ListMarkets(ctx context.Context, token string, req ListMarketsRequest) (*models.MarketListResult, error) {
	if req.Size <= 0 {
		req.Size = c.PageSize
	}

	var env envelope[models.MarketListResult]
	if err := c.do(ctx, "list markets", http.MethodPost, "/market/list", token, req, &env); err != nil {
		return nil, err
	}

	result := &models.MarketListResult{List: []models.Market{}}
	if env.Payload != nil {
		result.Total = env.Payload.Total
		if env.Payload.List != nil {
			result.List = env.Payload.List
		}
	}

	c.Logger.WithFields(logrus.Fields{
		"count":  len(result.List),
		"total":  result.Total,
		"active": formatTriState(req.Active),
	}).Debug("Получен список аптек")
	return result, nil
}

// UpdateMarketField меняет одно булево поле аптеки
func (c *DavoClient) UpdateMarketField(ctx context.Context, token string, marketID int64, field models.EditableField, value bool) (*models.Market, error) {
	if !field.IsValid() {
		return nil, fmt.Errorf("поле %q недоступно для редактирования", field)
	}

	body := map[string]bool{string(field): value}
	path := "/market/" + strconv.FormatInt(marketID, 10)

	var market models.Market
	if err := c.do(ctx, "update market", http.MethodPatch, path, token, body, &market); err != nil {
		return nil, err
	}

	c.Logger.WithFields(logrus.Fields{
		"market_id": marketID,
		"field":     field,
		"value":     value,
	}).Info("Поле аптеки обновлено в Davo API")
	return &market, nil
}

// do выполняет JSON запрос и декодирует ответ в out
func (c *DavoClient) do(ctx context.Context, op, method, path, token string, in, out interface{}) error {
	jsonData, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: ошибка сериализации запроса: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("%s: ошибка создания запроса: %w", op, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", c.AcceptLanguage)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.CallWithRetry(req, c.Retry)
	if err != nil {
		return fmt.Errorf("%s: ошибка выполнения запроса: %w: %w", op, err, ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &APIError{Op: op, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: ошибка декодирования ответа: %v: %w", op, err, ErrUpstream)
	}
	return nil
}

// CallWithRetry выполняет HTTP запрос с retry механизмом
func (c *DavoClient) CallWithRetry(req *http.Request, config RetryConfig) (*http.Response, error) {
	var lastErr error
	var resp *http.Response

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		// Клонируем запрос для повторного использования
		reqClone := req.Clone(req.Context())

		// Восстанавливаем тело запроса если оно есть
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("ошибка восстановления тела запроса: %w", err)
			}
			reqClone.Body = body
		}

		resp, lastErr = c.HTTPClient.Do(reqClone)

		if lastErr == nil && !c.shouldRetry(resp.StatusCode, config.RetryableErrors) {
			return resp, nil
		}

		// Последняя попытка: отдаем ответ как есть
		if attempt == config.MaxRetries {
			break
		}

		// Закрываем тело ответа перед повтором
		if resp != nil {
			resp.Body.Close()
		}

		delay := c.calculateDelay(attempt, config)

		c.Logger.WithFields(logrus.Fields{
			"url":     req.URL.String(),
			"delay":   delay.String(),
			"attempt": attempt + 1,
			"max":     config.MaxRetries + 1,
		}).Warnf("Повтор запроса, причина: %v", lastErr)

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("все попытки исчерпаны, последняя ошибка: %w", lastErr)
	}

	return resp, nil
}

// shouldRetry определяет, нужно ли повторить запрос
func (c *DavoClient) shouldRetry(statusCode int, retryableErrors []int) bool {
	for _, code := range retryableErrors {
		if statusCode == code {
			return true
		}
	}
	return false
}

// calculateDelay вычисляет задержку для retry с экспоненциальным backoff
func (c *DavoClient) calculateDelay(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt))

	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	return time.Duration(delay)
}

func formatTriState(v *bool) string {
	if v == nil {
		return "any"
	}
	return strconv.FormatBool(*v)
}
