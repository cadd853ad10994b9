package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRequestLanguage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		header   string
		expected Language
	}{
		{"", LanguageRU},
		{"ru,en-US;q=0.9,en;q=0.8", LanguageRU},
		{"uz", LanguageUZ},
		{"en-US,uz;q=0.8", LanguageUZ},
		{"en-US,en;q=0.9", LanguageRU},
		{"UZ-Latn", LanguageUZ},
	}

	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		c.Request.Header.Set("Accept-Language", tt.header)

		assert.Equal(t, tt.expected, RequestLanguage(c), tt.header)
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "Комментарий обязателен", Message(LanguageRU, CodeCommentRequired))
	assert.Equal(t, "Izoh majburiy", Message(LanguageUZ, CodeCommentRequired))
	assert.Equal(t, "Ошибка", Message(LanguageUZ, "unknown_code"))

	// Все коды переведены на оба языка
	for code := range messages[LanguageRU] {
		_, ok := messages[LanguageUZ][code]
		assert.True(t, ok, code)
	}
}

func TestRateLimitWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", AuthRateLimit(nil, 1, 0, nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
