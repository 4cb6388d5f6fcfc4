package notify

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/minhleeee123/MantleFlow-sub001/pkg/errors"
)

// TelegramSender pushes settlement notices to users who linked a chat
type TelegramSender struct {
	api *tgbotapi.BotAPI
}

// NewTelegramSender creates a new Telegram sender
func NewTelegramSender(token string) (*TelegramSender, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}
	return &TelegramSender{api: api}, nil
}

// Send delivers one message to a chat
func (s *TelegramSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.api.Send(msg); err != nil {
		return errors.Wrap(err, "telegram send failed")
	}
	return nil
}
