package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/nvolkov-go/topup-relay/internal/access"
	"github.com/nvolkov-go/topup-relay/internal/common"
	"github.com/nvolkov-go/topup-relay/internal/convstate"
	"github.com/nvolkov-go/topup-relay/internal/payment"
)

const (
	callbackPay  = "pay"
	callbackWake = "wake"
)

const (
	msgWelcome      = "Welcome! Choose an action:"
	msgDenied       = "Access denied. Ask the administrator to add your chat id."
	msgAskAmount    = "Enter the top-up amount in RUB:"
	msgNotANumber   = "Please send the amount as a whole number."
	msgUseStart     = "Use /start to begin."
	msgPaymentReady = "Follow the link to pay:\n%s\n\nOrder: %s"
)

// Bot drives the Telegram dialog: commands, the inline menu and the
// free-text amount step of the top-up flow.
type Bot struct {
	API             Client
	Payments        *payment.Service
	Access          access.Store
	Conversations   convstate.Store
	ConversationTTL time.Duration
	Logger          zerolog.Logger
}

// Run consumes updates until the context is cancelled or the channel
// closes. Each update is handled inline; handlers only do one provider or
// Redis round-trip so a slow update cannot back up the poll for long.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate routes a single update. Exported for tests.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch strings.TrimSpace(msg.Text) {
	case "/getid":
		reply := fmt.Sprintf("Your chat id: %d", chatID)
		if msg.From != nil && msg.From.UserName != "" {
			reply = fmt.Sprintf("Your chat id: %d (@%s)", chatID, msg.From.UserName)
		}
		b.send(chatID, reply)
		return
	case "/start":
		if !b.Access.Allowed(chatID) {
			b.Logger.Info().Int64("chat_id", chatID).Msg("start from chat outside allow-list")
			b.send(chatID, msgDenied)
			return
		}
		b.sendMenu(chatID)
		return
	}

	state, err := b.Conversations.Get(ctx, chatID)
	if err != nil {
		b.Logger.Error().Err(err).Int64("chat_id", chatID).Msg("read conversation state")
		return
	}
	if state != convstate.AwaitingAmount {
		if b.Access.Allowed(chatID) {
			b.send(chatID, msgUseStart)
		}
		return
	}
	b.handleAmount(ctx, chatID, msg.Text)
}

func (b *Bot) handleAmount(ctx context.Context, chatID int64, text string) {
	amount, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil {
		b.send(chatID, msgNotANumber)
		return
	}

	result, err := b.Payments.CreatePayment(ctx, amount, chatID, payment.CurrencyRUB)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.HTTPStatus < 500 {
			// Validation failures keep the dialog open so the user can retry.
			b.send(chatID, appErr.Message)
			return
		}
		b.Logger.Error().Err(err).Int64("chat_id", chatID).Msg("open payment from dialog")
		b.send(chatID, "Could not open a payment right now, try again later.")
		return
	}

	if err := b.Conversations.Clear(ctx, chatID); err != nil {
		b.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("clear conversation state")
	}
	b.send(chatID, fmt.Sprintf(msgPaymentReady, result.PaymentLink, result.OrderID))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.answerCallback(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.Access.Allowed(chatID) {
		b.answerCallback(cb.ID, "")
		b.send(chatID, msgDenied)
		return
	}

	switch cb.Data {
	case callbackPay:
		if err := b.Conversations.Set(ctx, chatID, convstate.AwaitingAmount, b.ConversationTTL); err != nil {
			b.Logger.Error().Err(err).Int64("chat_id", chatID).Msg("set conversation state")
			b.answerCallback(cb.ID, "try again")
			return
		}
		b.answerCallback(cb.ID, "")
		b.send(chatID, msgAskAmount)
	case callbackWake:
		b.answerCallback(cb.ID, "alive")
	default:
		b.answerCallback(cb.ID, "")
	}
}

func (b *Bot) sendMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, msgWelcome)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Pay", callbackPay),
			tgbotapi.NewInlineKeyboardButtonData("Wake", callbackWake),
		),
	)
	if _, err := b.API.Send(msg); err != nil {
		b.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send menu")
	}
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.API.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("send reply")
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.API.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.Logger.Warn().Err(err).Msg("answer callback")
	}
}
