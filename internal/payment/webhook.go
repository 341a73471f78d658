package payment

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/nvolkov-go/topup-relay/internal/common"
	"github.com/nvolkov-go/topup-relay/internal/obs"
)

// Webhook handles the provider's asynchronous payment notifications.
//
// Acknowledgment policy: requests that fail verification are rejected (400
// for a missing hash, 403 for a wrong one) before anything is trusted. Once
// the signature checks out the response is always {"ok":true} 200 — an
// uncorrelatable order id or a failed Telegram send must never make the
// provider flag the endpoint as broken.
type Webhook struct {
	Provider Provider
	Notifier OutcomeNotifier
	Logger   zerolog.Logger
}

// Handle processes one webhook callback.
func (h Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Provider == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "webhook unavailable", nil)
		return
	}
	params := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	claimed := params[SignatureField]
	delete(params, SignatureField)

	if err := h.Provider.VerifyWebhook(params, claimed); err != nil {
		app := common.AsAppError(err)
		h.Logger.Warn().Str("code", app.Code).Str("order_id", params["order_id"]).Msg("webhook rejected")
		if obs.PaymentWebhookTotal != nil {
			obs.PaymentWebhookTotal.WithLabelValues(webhookOutcome(app.Code)).Inc()
		}
		common.RenderError(w, err)
		return
	}

	if h.Notifier != nil {
		h.Notifier.NotifyOutcome(r.Context(), params)
	}
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues("accepted").Inc()
	}
	common.JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func webhookOutcome(code string) string {
	switch code {
	case "SIGNATURE_MISSING":
		return "signature_missing"
	case "SIGNATURE_MISMATCH":
		return "signature_mismatch"
	default:
		return "rejected"
	}
}
