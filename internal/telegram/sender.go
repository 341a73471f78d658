package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client is the slice of the Bot API used by this package. *tgbotapi.BotAPI
// satisfies it.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Sender pushes plain-text messages to a chat. It backs the payment
// confirmation path as well as the bot's own replies.
type Sender struct {
	API Client
}

func (s Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.API.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
