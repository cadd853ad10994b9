package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry определяет срок действия токена Davo API.
// Сначала используется expiresAt из ответа авторизации, затем claim exp
// из JWT (без проверки подписи: токен проверяет сам Davo API).
// Нулевое время означает, что срок неизвестен.
func tokenExpiry(token LoginToken) time.Time {
	if token.ExpiresAt != nil && *token.ExpiresAt != "" {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, *token.ExpiresAt); err == nil {
				return t
			}
		}
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, _, err := parser.ParseUnverified(token.Token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
