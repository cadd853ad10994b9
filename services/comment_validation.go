package services

import (
	"errors"
	"strings"
)

// ErrCommentRequired изменение поля без комментария
var ErrCommentRequired = errors.New("comment_required")

// ValidateComment проверяет, что комментарий к изменению не пустой.
// Вызывается до любого обращения к Davo API.
func ValidateComment(comment string) error {
	if strings.TrimSpace(comment) == "" {
		return ErrCommentRequired
	}
	return nil
}
