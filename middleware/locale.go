package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Language язык сообщений API
type Language string

const (
	LanguageRU Language = "ru"
	LanguageUZ Language = "uz"
)

// Коды ошибок в ответах API
const (
	CodeValidation      = "validation_error"
	CodeInvalidLogin    = "invalid_credentials"
	CodeRoleNotAllowed  = "role_not_allowed"
	CodeUnauthorized    = "unauthorized"
	CodeForbidden       = "forbidden"
	CodeNotFound        = "not_found"
	CodeCommentRequired = "comment_required"
	CodeNoChange        = "no_change"
	CodeSuperseded      = "load_superseded"
	CodeUpstream        = "upstream_error"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal_error"
)

var messages = map[Language]map[string]string{
	LanguageRU: {
		CodeValidation:      "Некорректные данные запроса",
		CodeInvalidLogin:    "Ошибка входа. Проверьте логин и пароль.",
		CodeRoleNotAllowed:  "Неверные учетные данные",
		CodeUnauthorized:    "Требуется авторизация",
		CodeForbidden:       "Недостаточно прав",
		CodeNotFound:        "Аптека не найдена",
		CodeCommentRequired: "Комментарий обязателен",
		CodeNoChange:        "Нет изменений",
		CodeSuperseded:      "Загрузка прервана более новым запросом",
		CodeUpstream:        "Ошибка сервера Davo. Попробуйте позже.",
		CodeRateLimited:     "Слишком много запросов",
		CodeInternal:        "Ошибка",
	},
	LanguageUZ: {
		CodeValidation:      "So'rov ma'lumotlari noto'g'ri",
		CodeInvalidLogin:    "Kirish xatosi. Login va parolni tekshiring.",
		CodeRoleNotAllowed:  "Noto'g'ri hisob ma'lumotlari",
		CodeUnauthorized:    "Avtorizatsiya talab qilinadi",
		CodeForbidden:       "Huquqlar yetarli emas",
		CodeNotFound:        "Dorixona topilmadi",
		CodeCommentRequired: "Izoh majburiy",
		CodeNoChange:        "O'zgarishlar yo'q",
		CodeSuperseded:      "Yuklash yangi so'rov bilan to'xtatildi",
		CodeUpstream:        "Davo server xatosi. Keyinroq urinib ko'ring.",
		CodeRateLimited:     "So'rovlar juda ko'p",
		CodeInternal:        "Xatolik",
	},
}

// RequestLanguage язык ответа по заголовку Accept-Language, по умолчанию русский
func RequestLanguage(c *gin.Context) Language {
	header := strings.ToLower(c.GetHeader("Accept-Language"))
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch {
		case strings.HasPrefix(tag, "uz"):
			return LanguageUZ
		case strings.HasPrefix(tag, "ru"):
			return LanguageRU
		}
	}
	return LanguageRU
}

// Message локализованное сообщение для кода ошибки
func Message(lang Language, code string) string {
	if msg, ok := messages[lang][code]; ok {
		return msg
	}
	return messages[LanguageRU][CodeInternal]
}

// AbortWithError прерывает запрос с локализованной ошибкой
func AbortWithError(c *gin.Context, status int, code string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status": "error",
		"error":  Message(RequestLanguage(c), code),
		"code":   code,
	})
}
