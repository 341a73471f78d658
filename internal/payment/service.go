package payment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nvolkov-go/topup-relay/internal/common"
	"github.com/nvolkov-go/topup-relay/internal/obs"
	"github.com/nvolkov-go/topup-relay/internal/orderid"
)

// Description accompanies every payment opened through the relay.
const Description = "Top up from Telegram bot"

// Result is returned to the caller after a payment has been opened.
type Result struct {
	PaymentLink string
	OrderID     string
}

// Service validates top-up requests and opens payments with the provider.
type Service struct {
	Provider Provider
}

// CreatePayment validates the amount against the currency's bounds, issues an
// order identifier and requests a payment link from the provider. Calling it
// twice opens two distinct orders; there is no dedup.
func (s *Service) CreatePayment(ctx context.Context, amount int64, chatID int64, currency Currency) (Result, error) {
	if s == nil || s.Provider == nil {
		return Result{}, common.NewAppError("PAYMENT_NOT_CONFIGURED", "payment service unavailable", http.StatusInternalServerError, nil)
	}
	ctx, span := otel.Tracer("payment.Service").Start(ctx, "PaymentService.CreatePayment")
	defer span.End()

	start := time.Now()
	outcome := "error"
	defer func() {
		span.SetAttributes(
			attribute.String("payment.currency", string(currency)),
			attribute.Float64("payment.create.duration_ms", obs.DurationMillis(time.Since(start))),
			attribute.String("payment.create.result", outcome),
		)
		if obs.PaymentCreateTotal != nil {
			obs.PaymentCreateTotal.WithLabelValues(string(currency), outcome).Inc()
		}
	}()

	bounds, ok := SupportedBounds(currency)
	if !ok {
		outcome = "unsupported_currency"
		return Result{}, common.NewAppError("UNSUPPORTED_CURRENCY", fmt.Sprintf("currency %q is not supported", currency), http.StatusBadRequest, nil)
	}
	if amount < bounds.Min || amount > bounds.Max {
		outcome = "amount_out_of_range"
		return Result{}, common.NewAppError(
			"AMOUNT_OUT_OF_RANGE",
			fmt.Sprintf("amount must be between %d and %d %s", bounds.Min, bounds.Max, currency),
			http.StatusBadRequest, nil,
		).WithDetails(map[string]int64{"min": bounds.Min, "max": bounds.Max})
	}

	oid := orderid.Encode(chatID)
	span.SetAttributes(attribute.String("order.id", oid))

	// The account identifier carries a short random token so repeated top-ups
	// from the same chat never collide on a provider-side customer account.
	account := fmt.Sprintf("user_%d_%s", chatID, randomToken())

	created, err := s.Provider.CreatePayment(ctx, CreateRequest{
		OrderID:     oid,
		Customer:    account,
		Account:     account,
		AmountMinor: amount * bounds.MinorFactor,
		Currency:    currency,
		Description: Description,
	})
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	outcome = "success"
	return Result{PaymentLink: created.Link, OrderID: oid}, nil
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:4]
}
