package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"davo_admin/models"
)

// MockDavoClient мок клиент для тестирования
// Реализует интерфейс MarketAPI
type MockDavoClient struct {
	mu sync.Mutex

	// Настройки мока
	ShouldFailLogin  bool
	ShouldFailList   bool
	ShouldFailUpdate bool
	ListDelay        time.Duration

	// Данные для возврата
	LoginResponse *LoginPayload
	Markets       []models.Market

	// Счетчики вызовов
	LoginCallCount  int
	ListCallCount   int
	UpdateCallCount int

	// Логи вызовов
	ListCalls   []ListCall
	UpdateCalls []UpdateCall
}

// Структуры для логирования вызовов
type ListCall struct {
	Token   string
	Request ListMarketsRequest
	Time    time.Time
}

type UpdateCall struct {
	Token    string
	MarketID int64
	Field    models.EditableField
	Value    bool
	Time     time.Time
}

// NewMockDavoClient создает новый мок клиент
func NewMockDavoClient(markets []models.Market) *MockDavoClient {
	return &MockDavoClient{
		LoginResponse: &LoginPayload{
			User: LoginUser{
				ID:          1,
				Username:    "admin",
				Authorities: []models.Authority{{Authority: string(models.RoleAdmin)}},
			},
			Token: LoginToken{Token: "mock_token_123"},
		},
		Markets: markets,
	}
}

// Login мок авторизации
func (m *MockDavoClient) Login(ctx context.Context, login, password string) (*LoginPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoginCallCount++
	if m.ShouldFailLogin {
		return nil, &APIError{Op: "login", Status: 401}
	}

	response := *m.LoginResponse
	if response.User.Username == "" {
		response.User.Username = login
	}
	return &response, nil
}

// ListMarkets мок списка аптек, учитывает фильтр активности как сервер
func (m *MockDavoClient) ListMarkets(ctx context.Context, token string, req ListMarketsRequest) (*models.MarketListResult, error) {
	m.mu.Lock()
	m.ListCallCount++
	m.ListCalls = append(m.ListCalls, ListCall{Token: token, Request: req, Time: time.Now()})
	delay := m.ListDelay
	fail := m.ShouldFailList
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if fail {
		return nil, &APIError{Op: "list markets", Status: 500}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := []models.Market{}
	for _, market := range m.Markets {
		if req.Active != nil && market.Active != *req.Active {
			continue
		}
		list = append(list, market)
	}

	total := int64(len(list))
	if req.Size > 0 {
		start := req.Page * req.Size
		if start > len(list) {
			start = len(list)
		}
		end := start + req.Size
		if end > len(list) {
			end = len(list)
		}
		list = list[start:end]
	}
	return &models.MarketListResult{List: list, Total: total}, nil
}

// UpdateMarketField мок обновления поля
func (m *MockDavoClient) UpdateMarketField(ctx context.Context, token string, marketID int64, field models.EditableField, value bool) (*models.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCallCount++
	m.UpdateCalls = append(m.UpdateCalls, UpdateCall{
		Token:    token,
		MarketID: marketID,
		Field:    field,
		Value:    value,
		Time:     time.Now(),
	})

	if m.ShouldFailUpdate {
		return nil, &APIError{Op: "update market", Status: 500}
	}

	for i, market := range m.Markets {
		if market.ID != marketID {
			continue
		}
		updated, err := market.WithField(field, value)
		if err != nil {
			return nil, err
		}
		m.Markets[i] = updated
		return &updated, nil
	}
	return nil, &APIError{Op: fmt.Sprintf("update market %d", marketID), Status: 404}
}

// UpdateCount возвращает количество вызовов обновления
func (m *MockDavoClient) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.UpdateCallCount
}

// ListCount возвращает количество вызовов списка
func (m *MockDavoClient) ListCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ListCallCount
}
