package payment

import "context"

// CreateRequest captures the information sent to the provider when opening a
// payment.
type CreateRequest struct {
	OrderID     string
	Customer    string
	Account     string
	AmountMinor int64
	Currency    Currency
	Description string
}

// CreateResult is the minimal information returned by the provider on
// successful payment creation.
type CreateResult struct {
	Link string
}

// Provider abstracts the operations required from the upstream payment
// gateway.
type Provider interface {
	CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error)
	// VerifyWebhook checks the claimed signature against the canonical hash
	// of the remaining webhook parameters. A nil return means the payload may
	// be trusted.
	VerifyWebhook(params map[string]string, claimedHash string) error
}

// OutcomeNotifier pushes a confirmation to the originating chat once a
// verified webhook reports success. Implementations are best-effort and must
// not fail the webhook exchange.
type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, params map[string]string)
}
