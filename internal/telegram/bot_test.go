package telegram_test

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nvolkov-go/topup-relay/internal/access"
	"github.com/nvolkov-go/topup-relay/internal/convstate"
	"github.com/nvolkov-go/topup-relay/internal/payment"
	"github.com/nvolkov-go/topup-relay/internal/telegram"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) sentTexts(t *testing.T) []string {
	t.Helper()
	texts := make([]string, 0, len(f.sent))
	for _, c := range f.sent {
		msg, ok := c.(tgbotapi.MessageConfig)
		require.True(t, ok, "expected MessageConfig, got %T", c)
		texts = append(texts, msg.Text)
	}
	return texts
}

type fakeProvider struct {
	lastReq payment.CreateRequest
	calls   int
}

func (p *fakeProvider) CreatePayment(_ context.Context, req payment.CreateRequest) (payment.CreateResult, error) {
	p.calls++
	p.lastReq = req
	return payment.CreateResult{Link: "https://pay.example/x"}, nil
}

func (p *fakeProvider) VerifyWebhook(map[string]string, string) error { return nil }

type denyAll struct{}

func (denyAll) Allowed(int64) bool { return false }
func (denyAll) Add(int64) error    { return nil }

func newBot(api *fakeAPI, provider *fakeProvider, acl access.Store) (*telegram.Bot, convstate.Store) {
	conv := convstate.NewMemoryStore()
	return &telegram.Bot{
		API:             api,
		Payments:        &payment.Service{Provider: provider},
		Access:          acl,
		Conversations:   conv,
		ConversationTTL: time.Minute,
		Logger:          zerolog.Nop(),
	}, conv
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: text,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID, UserName: "tester"},
	}}
}

func callbackUpdate(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestGetIDRepliesWithoutAccessCheck(t *testing.T) {
	api := &fakeAPI{}
	bot, _ := newBot(api, &fakeProvider{}, denyAll{})

	bot.HandleUpdate(context.Background(), textUpdate(12345, "/getid"))

	texts := api.sentTexts(t)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "12345")
	require.Contains(t, texts[0], "@tester")
}

func TestStartDeniedOutsideAllowList(t *testing.T) {
	api := &fakeAPI{}
	bot, _ := newBot(api, &fakeProvider{}, denyAll{})

	bot.HandleUpdate(context.Background(), textUpdate(12345, "/start"))

	texts := api.sentTexts(t)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "Access denied")
}

func TestStartSendsMenuWithKeyboard(t *testing.T) {
	api := &fakeAPI{}
	bot, _ := newBot(api, &fakeProvider{}, access.OpenStore{})

	bot.HandleUpdate(context.Background(), textUpdate(12345, "/start"))

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 2)
}

func TestPayCallbackOpensAmountDialog(t *testing.T) {
	api := &fakeAPI{}
	bot, conv := newBot(api, &fakeProvider{}, access.OpenStore{})

	bot.HandleUpdate(context.Background(), callbackUpdate(12345, "pay"))

	state, err := conv.Get(context.Background(), 12345)
	require.NoError(t, err)
	require.Equal(t, convstate.AwaitingAmount, state)

	texts := api.sentTexts(t)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "amount")
	require.Len(t, api.requests, 1, "callback is acknowledged")
}

func TestWakeCallbackAnswersAlive(t *testing.T) {
	api := &fakeAPI{}
	bot, _ := newBot(api, &fakeProvider{}, access.OpenStore{})

	bot.HandleUpdate(context.Background(), callbackUpdate(12345, "wake"))

	require.Empty(t, api.sent)
	require.Len(t, api.requests, 1)
	cb, ok := api.requests[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	require.Equal(t, "alive", cb.Text)
}

func TestAmountDialogOpensPayment(t *testing.T) {
	api := &fakeAPI{}
	provider := &fakeProvider{}
	bot, conv := newBot(api, provider, access.OpenStore{})
	ctx := context.Background()

	bot.HandleUpdate(ctx, callbackUpdate(12345, "pay"))
	bot.HandleUpdate(ctx, textUpdate(12345, "500"))

	require.Equal(t, 1, provider.calls)
	require.Equal(t, int64(50000), provider.lastReq.AmountMinor)
	require.Equal(t, payment.CurrencyRUB, provider.lastReq.Currency)

	texts := api.sentTexts(t)
	require.Contains(t, texts[len(texts)-1], "https://pay.example/x")

	state, err := conv.Get(ctx, 12345)
	require.NoError(t, err)
	require.Equal(t, convstate.Idle, state, "dialog closes after a successful payment")
}

func TestAmountDialogRejectsNonNumeric(t *testing.T) {
	api := &fakeAPI{}
	provider := &fakeProvider{}
	bot, conv := newBot(api, provider, access.OpenStore{})
	ctx := context.Background()

	bot.HandleUpdate(ctx, callbackUpdate(12345, "pay"))
	bot.HandleUpdate(ctx, textUpdate(12345, "five hundred"))

	require.Zero(t, provider.calls)
	texts := api.sentTexts(t)
	require.Contains(t, texts[len(texts)-1], "whole number")

	state, err := conv.Get(ctx, 12345)
	require.NoError(t, err)
	require.Equal(t, convstate.AwaitingAmount, state, "dialog stays open for a retry")
}

func TestAmountDialogReportsBounds(t *testing.T) {
	api := &fakeAPI{}
	provider := &fakeProvider{}
	bot, conv := newBot(api, provider, access.OpenStore{})
	ctx := context.Background()

	bot.HandleUpdate(ctx, callbackUpdate(12345, "pay"))
	bot.HandleUpdate(ctx, textUpdate(12345, "5"))

	require.Zero(t, provider.calls)
	texts := api.sentTexts(t)
	require.Contains(t, texts[len(texts)-1], "between 200 and 85000 RUB")

	state, err := conv.Get(ctx, 12345)
	require.NoError(t, err)
	require.Equal(t, convstate.AwaitingAmount, state)
}

func TestIdleFreeTextGetsHint(t *testing.T) {
	api := &fakeAPI{}
	bot, _ := newBot(api, &fakeProvider{}, access.OpenStore{})

	bot.HandleUpdate(context.Background(), textUpdate(12345, "hello"))

	texts := api.sentTexts(t)
	require.Len(t, texts, 1)
	require.Contains(t, texts[0], "/start")
}
