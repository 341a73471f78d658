package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nvolkov-go/topup-relay/internal/common"
	"github.com/nvolkov-go/topup-relay/internal/resilience"
)

const createPaymentPath = "/public/api/payment"

// statusSuccess is the provider's top-level success sentinel, shared by the
// payment-creation response and webhook notifications.
const statusSuccess = "success"

// Nicepay implements the Provider interface against the Nicepay public API.
type Nicepay struct {
	MerchantID string
	Secret     string
	BaseURL    string
	HTTP       *resilience.HTTPClient
}

type nicepayCreatePayload struct {
	MerchantID  string `json:"merchant_id"`
	Secret      string `json:"secret"`
	OrderID     string `json:"order_id"`
	Customer    string `json:"customer"`
	Account     string `json:"account"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type nicepayCreateResponse struct {
	Status string `json:"status"`
	Data   struct {
		Link    string `json:"link"`
		Message string `json:"message"`
	} `json:"data"`
}

// CreatePayment opens a payment with the provider and returns the hosted
// payment link.
func (n Nicepay) CreatePayment(ctx context.Context, req CreateRequest) (CreateResult, error) {
	payload := nicepayCreatePayload{
		MerchantID:  n.MerchantID,
		Secret:      n.Secret,
		OrderID:     req.OrderID,
		Customer:    req.Customer,
		Account:     req.Account,
		Amount:      req.AmountMinor,
		Currency:    string(req.Currency),
		Description: req.Description,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CreateResult{}, fmt.Errorf("encode create payload: %w", err)
	}

	url := strings.TrimRight(strings.TrimSpace(n.BaseURL), "/") + createPaymentPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CreateResult{}, fmt.Errorf("build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(ctx, httpReq)
	if err != nil {
		return CreateResult{}, common.NewAppError("PROVIDER_UNREACHABLE", "payment provider request failed", http.StatusBadGateway, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded nicepayCreateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return CreateResult{}, common.NewAppError("PROVIDER_CONTRACT", "unparseable provider response", http.StatusBadGateway, err)
	}
	if decoded.Status != statusSuccess {
		msg := strings.TrimSpace(decoded.Data.Message)
		if msg == "" {
			msg = "unknown provider error"
		}
		return CreateResult{}, common.NewAppError("PROVIDER_REJECTED", msg, http.StatusBadGateway, nil)
	}
	if strings.TrimSpace(decoded.Data.Link) == "" {
		return CreateResult{}, common.NewAppError("PROVIDER_CONTRACT", "provider reported success without a payment link", http.StatusBadGateway, nil)
	}
	return CreateResult{Link: decoded.Data.Link}, nil
}

// VerifyWebhook checks the claimed hash against the canonical signature of
// the remaining parameters. Distinguishes a missing signature from a wrong
// one so the handler can reject them with the right status.
func (n Nicepay) VerifyWebhook(params map[string]string, claimedHash string) error {
	if strings.TrimSpace(claimedHash) == "" {
		return common.NewAppError("SIGNATURE_MISSING", "hash missing", http.StatusBadRequest, nil)
	}
	if !VerifySignature(params, claimedHash, n.Secret) {
		return common.NewAppError("SIGNATURE_MISMATCH", "signature verification failed", http.StatusForbidden, nil)
	}
	return nil
}
