package middleware

import (
	"context"
	"net/http"
	"strings"

	"davo_admin/models"

	"github.com/gin-gonic/gin"
)

// SessionHeader заголовок с ID сессии панели
const SessionHeader = "X-Session-ID"

const sessionContextKey = "session"

// SessionResolver восстанавливает сессию по ID
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*models.Session, error)
}

// AuthMiddleware проверяет сессию пользователя
type AuthMiddleware struct {
	sessions SessionResolver
}

// NewAuthMiddleware создает новый экземпляр AuthMiddleware
func NewAuthMiddleware(sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAuth middleware для проверки сессии
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ExtractSessionID(c)
		if sessionID == "" {
			AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized)
			return
		}

		session, err := am.sessions.Resolve(c.Request.Context(), sessionID)
		if err != nil {
			AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized)
			return
		}

		// Сохраняем сессию в контексте
		c.Set(sessionContextKey, session)
		c.Set("username", session.Username)
		c.Set("user_role", string(session.Role))

		c.Next()
	}
}

// RequireRole пропускает только пользователей с указанной ролью
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetCurrentSession(c)
		if !ok {
			AbortWithError(c, http.StatusUnauthorized, CodeUnauthorized)
			return
		}
		if session.Role != role {
			AbortWithError(c, http.StatusForbidden, CodeForbidden)
			return
		}
		c.Next()
	}
}

// ExtractSessionID извлекает ID сессии из X-Session-ID или Authorization: Bearer
func ExtractSessionID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return id
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// GetCurrentSession возвращает текущую сессию из контекста
func GetCurrentSession(c *gin.Context) (*models.Session, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*models.Session)
	return session, ok
}
