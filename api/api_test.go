package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"davo_admin/config"
	"davo_admin/middleware"
	"davo_admin/models"
	"davo_admin/services"
	"davo_admin/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// testServer собранный router панели поверх мока Davo API
type testServer struct {
	router *gin.Engine
	mock   *services.MockDavoClient
}

func newTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfigStruct{Env: "test", Debug: false},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", middleware.SessionHeader},
		},
		Security: config.SecurityConfig{
			LoginRateLimit:    5,
			LoginRateWindow:   time.Minute,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
	}
}

func setupTestServer(t *testing.T, markets []models.Market) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := testutils.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { testutils.CleanupTestDB(db) })

	logger := config.NewDiscardLogger()
	mock := services.NewMockDavoClient(markets)
	panels := services.NewPanelRegistry(mock, 100, logger)
	sessions := services.NewSessionService(mock, services.NewMemorySessionStorage(), panels, time.Hour, logger)
	history := services.NewChangeHistoryService(db)
	marketService := services.NewMarketService(mock, panels, history, services.NoopNotifier{}, logger)

	router := SetupRouter(Dependencies{
		Config:   newTestConfig(),
		Logger:   logger,
		Sessions: sessions,
		Markets:  marketService,
		Export:   services.NewExportService(logger, ""),
	})

	return &testServer{router: router, mock: mock}
}

// do выполняет запрос от имени сессии (пустая строка - без сессии)
func (s *testServer) do(method, path, sessionID string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// login создает сессию с указанной ролью и возвращает ее ID
func (s *testServer) login(t *testing.T, role models.Role) string {
	s.mock.LoginResponse = &services.LoginPayload{
		User: services.LoginUser{
			ID:          1,
			Username:    "user",
			Authorities: []models.Authority{{Authority: string(role)}},
		},
		Token: services.LoginToken{Token: "tok_" + string(role)},
	}

	w := s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Login: "user", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	return data["sessionId"].(string)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

// listIDs ID аптек из ответа списка
func listIDs(t *testing.T, w *httptest.ResponseRecorder) []int64 {
	response := decodeResponse(t, w)
	data := response["data"].(map[string]interface{})
	list := data["list"].([]interface{})

	ids := make([]int64, 0, len(list))
	for _, item := range list {
		ids = append(ids, int64(item.(map[string]interface{})["id"].(float64)))
	}
	return ids
}
