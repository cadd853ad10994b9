package models

import "time"

// Session сессия пользователя панели
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	Role      Role      `json:"role"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IsExpired истек ли токен сессии. Нулевое время означает бессрочный токен.
func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
