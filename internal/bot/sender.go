package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender delivers dispatcher messages through Telegram.
type Sender struct {
	api     API
	adminID int64
}

func NewSender(api API, adminID int64) *Sender {
	return &Sender{api: api, adminID: adminID}
}

func (s *Sender) SendUser(_ context.Context, userID int64, text string) error {
	_, err := s.api.Send(tgbotapi.NewMessage(userID, text))
	return err
}

func (s *Sender) SendAdmin(_ context.Context, text string, orderID string) error {
	msg := tgbotapi.NewMessage(s.adminID, text)
	if orderID != "" {
		msg.ReplyMarkup = decisionKeyboard(orderID)
	}
	_, err := s.api.Send(msg)
	return err
}
