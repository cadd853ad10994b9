package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateComment(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		wantErr bool
	}{
		{"Пустой комментарий", "", true},
		{"Только пробелы", "   \t\n", true},
		{"Обычный комментарий", "Провели обучение персонала", false},
		{"Комментарий с пробелами по краям", "  ok  ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateComment(tt.comment)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrCommentRequired)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
