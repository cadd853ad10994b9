package api

import (
	"net/http"
	"testing"

	"davo_admin/middleware"
	"davo_admin/models"
	"davo_admin/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	s := setupTestServer(t, testutils.AloeBetaMarkets())

	w := s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Login: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "success", response["status"])

	data := response["data"].(map[string]interface{})
	assert.NotEmpty(t, data["sessionId"])
	assert.Equal(t, string(models.RoleAdmin), data["role"])
	assert.Equal(t, "admin", data["username"])
	assert.NotContains(t, w.Body.String(), "mock_token_123", "токен Davo API не отдается клиенту")
}

func TestLoginValidation(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"login": "ad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, middleware.CodeValidation, response["code"])
	fields := response["fields"].(map[string]interface{})
	assert.Equal(t, "min", fields["Login"])
	assert.Equal(t, "required", fields["Password"])
	assert.Equal(t, 0, s.mock.LoginCallCount)
}

func TestLoginInvalidCredentials(t *testing.T) {
	s := setupTestServer(t, nil)
	s.mock.ShouldFailLogin = true

	w := s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Login: "admin", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	response := decodeResponse(t, w)
	assert.Equal(t, "error", response["status"])
	assert.Equal(t, middleware.CodeInvalidLogin, response["code"])
}

func TestLoginRoleNotAllowed(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Login: "admin", Password: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	s.mock.LoginResponse.User.Authorities = []models.Authority{{Authority: "ROLE_COURIER"}}
	w = s.do(http.MethodPost, "/api/auth/login", "", LoginRequest{Login: "courier", Password: "secret"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, middleware.CodeRoleNotAllowed, decodeResponse(t, w)["code"])
}

func TestMeAndLogout(t *testing.T) {
	s := setupTestServer(t, testutils.AloeBetaMarkets())
	sessionID := s.login(t, models.RoleAgent)

	w := s.do(http.MethodGet, "/api/auth/me", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, sessionID, data["id"])
	assert.Equal(t, string(models.RoleAgent), data["role"])

	w = s.do(http.MethodPost, "/api/auth/logout", sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// После выхода сессия недействительна
	w = s.do(http.MethodGet, "/api/auth/me", sessionID, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := setupTestServer(t, testutils.AloeBetaMarkets())

	for _, path := range []string{"/api/auth/me", "/api/markets", "/api/markets/stats", "/api/markets/1"} {
		w := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	w := s.do(http.MethodGet, "/api/markets", "unknown-session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, s.mock.ListCount())
}

func TestPing(t *testing.T) {
	s := setupTestServer(t, nil)

	w := s.do(http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	response := decodeResponse(t, w)
	assert.Equal(t, "pong", response["message"])
	assert.Equal(t, "disabled", response["redis"])
}
