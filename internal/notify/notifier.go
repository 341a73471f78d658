// Package notify turns verified provider webhooks into Telegram
// confirmations for the originating chat.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nvolkov-go/topup-relay/internal/obs"
	"github.com/nvolkov-go/topup-relay/internal/orderid"
)

// resultSuccess is the provider's webhook outcome sentinel.
const resultSuccess = "success"

// Sender delivers a text message to a chat. Implementations are expected to
// be best-effort; the notifier swallows their errors.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Notifier composes and delivers payment confirmations.
type Notifier struct {
	Sender Sender
	Logger zerolog.Logger
}

// NotifyOutcome inspects verified webhook parameters and pushes a
// confirmation to the originating chat when the payment succeeded. It never
// returns an error: an uncorrelatable order id means there is nobody to
// notify, and a failed send must not fail the webhook exchange.
func (n Notifier) NotifyOutcome(ctx context.Context, params map[string]string) {
	if params["result"] != resultSuccess {
		n.count("skipped")
		return
	}
	chatID, ok := orderid.Decode(params["order_id"])
	if !ok {
		n.Logger.Debug().Str("order_id", params["order_id"]).Msg("webhook order id carries no chat, dropping notification")
		n.count("dropped")
		return
	}

	text := composeConfirmation(params)
	if n.Sender == nil {
		n.count("failed")
		return
	}
	if err := n.Sender.SendMessage(ctx, chatID, text); err != nil {
		n.Logger.Warn().Err(err).Int64("chat_id", chatID).Msg("confirmation delivery failed")
		n.count("failed")
		return
	}
	n.count("delivered")
}

func composeConfirmation(params map[string]string) string {
	amount := FormatAmount(params["amount"], params["amount_currency"])
	text := fmt.Sprintf("Payment confirmed. Amount: %s %s", amount, params["amount_currency"])

	profit, profitCur := params["profit"], params["profit_currency"]
	if profit != "" && profitCur != "" {
		text += fmt.Sprintf(" (settled: %s %s)", FormatAmount(profit, profitCur), profitCur)
	}
	return text
}

func (n Notifier) count(result string) {
	if obs.NotificationDeliveryTotal != nil {
		obs.NotificationDeliveryTotal.WithLabelValues(result).Inc()
	}
}
