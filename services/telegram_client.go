package services

import (
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// MessageSender отправка текстовых сообщений в чат
type MessageSender interface {
	SendMessage(chatID string, message string) (string, error)
}

// TelegramClient представляет клиент для работы с Telegram Bot API
type TelegramClient struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramClient создает новый экземпляр Telegram клиента
func NewTelegramClient(botToken string, logger *logrus.Logger) (*TelegramClient, error) {
	if botToken == "" {
		return nil, fmt.Errorf("Telegram не настроен: пустой токен бота")
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram бота: %w", err)
	}

	// В продакшене отключаем debug
	bot.Debug = false

	logger.Infof("✅ Telegram бот авторизован: %s", bot.Self.UserName)

	return &TelegramClient{bot: bot}, nil
}

// SendMessage отправляет HTML сообщение и возвращает ID сообщения
func (tc *TelegramClient) SendMessage(chatID string, message string) (string, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("неверный chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(chatIDInt, message)
	msg.ParseMode = tgbotapi.ModeHTML

	sentMsg, err := tc.bot.Send(msg)
	if err != nil {
		return "", fmt.Errorf("ошибка отправки сообщения: %w", err)
	}

	return strconv.Itoa(sentMsg.MessageID), nil
}
