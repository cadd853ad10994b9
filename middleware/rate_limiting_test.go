package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"davo_admin/config"
	"davo_admin/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitWithRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := testutils.SetupTestRedis(t)

	r := gin.New()
	r.POST("/login", AuthRateLimit(client, 2, time.Minute, config.NewDiscardLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send().Code)
	assert.Equal(t, http.StatusOK, send().Code)

	w := send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), CodeRateLimited)

	// Повторная попытка внутри окна не продлевает его
	mr.FastForward(45 * time.Second)
	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "15", w.Header().Get("Retry-After"))

	mr.FastForward(16 * time.Second)
	assert.Equal(t, http.StatusOK, send().Code)
}

func TestRateLimitPerSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, client := testutils.SetupTestRedis(t)

	r := gin.New()
	r.GET("/api", APIRateLimit(client, 1, time.Minute, config.NewDiscardLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func(sessionID string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api", nil)
		req.Header.Set(SessionHeader, sessionID)
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("a"))
	assert.Equal(t, http.StatusTooManyRequests, send("a"))
	assert.Equal(t, http.StatusOK, send("b"))
}

func TestRateLimitFailsOpenOnRedisError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr, client := testutils.SetupTestRedis(t)
	mr.SetError("ERR недоступен")

	r := gin.New()
	r.GET("/api", APIRateLimit(client, 1, time.Minute, config.NewDiscardLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
