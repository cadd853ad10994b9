package models

import "strings"

// Role роль пользователя панели, выдаваемая Davo Delivery API
type Role string

const (
	RoleAgent Role = "ROLE_AGENT"
	RoleAdmin Role = "ROLE_ADMIN"
)

// IsValid проверяет, что роль известна панели
func (r Role) IsValid() bool {
	return r == RoleAgent || r == RoleAdmin
}

// CanEdit может ли роль менять обучение и фирменный пакет
func (r Role) CanEdit() bool {
	return r == RoleAdmin
}

// CanViewHistory может ли роль смотреть историю изменений
func (r Role) CanViewHistory() bool {
	return r == RoleAdmin
}

// Authority право пользователя из ответа авторизации
type Authority struct {
	Authority string `json:"authority"`
}

// RoleFromAuthorities выбирает роль панели по списку прав.
// ROLE_ADMIN имеет приоритет над ROLE_AGENT; пустая строка если роль не найдена.
func RoleFromAuthorities(authorities []Authority) Role {
	var role Role
	for _, a := range authorities {
		switch Role(strings.ToUpper(strings.TrimSpace(a.Authority))) {
		case RoleAdmin:
			return RoleAdmin
		case RoleAgent:
			role = RoleAgent
		}
	}
	return role
}
