package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nvolkov-go/topup-relay/internal/common"
	"github.com/nvolkov-go/topup-relay/internal/payment"
	"github.com/nvolkov-go/topup-relay/internal/resilience"
)

type stubProvider struct {
	lastReq payment.CreateRequest
	result  payment.CreateResult
	err     error
	calls   int
}

func (s *stubProvider) CreatePayment(_ context.Context, req payment.CreateRequest) (payment.CreateResult, error) {
	s.calls++
	s.lastReq = req
	return s.result, s.err
}

func (s *stubProvider) VerifyWebhook(map[string]string, string) error { return nil }

func TestCreatePaymentAmountBounds(t *testing.T) {
	cases := []struct {
		name     string
		amount   int64
		currency payment.Currency
		wantErr  bool
	}{
		{"rub below min", 199, payment.CurrencyRUB, true},
		{"rub at min", 200, payment.CurrencyRUB, false},
		{"rub at max", 85000, payment.CurrencyRUB, false},
		{"rub above max", 85001, payment.CurrencyRUB, true},
		{"usd at min", 10, payment.CurrencyUSD, false},
		{"usd at max", 990, payment.CurrencyUSD, false},
		{"usd above max", 991, payment.CurrencyUSD, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{result: payment.CreateResult{Link: "https://pay.example/x"}}
			svc := &payment.Service{Provider: provider}

			_, err := svc.CreatePayment(context.Background(), tc.amount, 12345, tc.currency)
			if tc.wantErr {
				var appErr *common.AppError
				require.ErrorAs(t, err, &appErr)
				require.Equal(t, "AMOUNT_OUT_OF_RANGE", appErr.Code)
				require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
				require.Zero(t, provider.calls, "provider must not be called for a rejected amount")
			} else {
				require.NoError(t, err)
				require.Equal(t, 1, provider.calls)
			}
		})
	}
}

func TestCreatePaymentUnsupportedCurrency(t *testing.T) {
	provider := &stubProvider{}
	svc := &payment.Service{Provider: provider}

	_, err := svc.CreatePayment(context.Background(), 500, 12345, payment.Currency("EUR"))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "UNSUPPORTED_CURRENCY", appErr.Code)
	require.Zero(t, provider.calls)
}

func TestCreatePaymentBuildsProviderRequest(t *testing.T) {
	provider := &stubProvider{result: payment.CreateResult{Link: "https://pay.example/x"}}
	svc := &payment.Service{Provider: provider}

	res, err := svc.CreatePayment(context.Background(), 500, 12345, payment.CurrencyRUB)
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/x", res.PaymentLink)
	require.Regexp(t, regexp.MustCompile(`^12345-[0-9a-f]{8}$`), res.OrderID)

	req := provider.lastReq
	require.Equal(t, res.OrderID, req.OrderID)
	require.Equal(t, int64(50000), req.AmountMinor, "major units are converted to minor before hitting the provider")
	require.Equal(t, payment.CurrencyRUB, req.Currency)
	require.Equal(t, payment.Description, req.Description)
	require.Regexp(t, regexp.MustCompile(`^user_12345_[0-9a-f]{4}$`), req.Account)
	require.Equal(t, req.Account, req.Customer)
}

func TestCreatePaymentOrdersAreDistinct(t *testing.T) {
	provider := &stubProvider{result: payment.CreateResult{Link: "https://pay.example/x"}}
	svc := &payment.Service{Provider: provider}

	first, err := svc.CreatePayment(context.Background(), 500, 7, payment.CurrencyRUB)
	require.NoError(t, err)
	second, err := svc.CreatePayment(context.Background(), 500, 7, payment.CurrencyRUB)
	require.NoError(t, err)
	require.NotEqual(t, first.OrderID, second.OrderID)
}

func newTestHTTPClient(c *http.Client) *resilience.HTTPClient {
	return &resilience.HTTPClient{
		Client:      c,
		MaxAttempts: 1,
		Timeout:     2 * time.Second,
	}
}

func TestNicepayCreatePaymentSuccess(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/public/api/payment", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"status":"success","data":{"link":"https://pay.example/x"}}`))
	}))
	defer srv.Close()

	np := payment.Nicepay{
		MerchantID: "m-1",
		Secret:     "SECRET",
		BaseURL:    srv.URL,
		HTTP:       newTestHTTPClient(srv.Client()),
	}
	res, err := np.CreatePayment(context.Background(), payment.CreateRequest{
		OrderID:     "12345-ab12cd34",
		Customer:    "user_12345_ab12",
		Account:     "user_12345_ab12",
		AmountMinor: 50000,
		Currency:    payment.CurrencyRUB,
		Description: payment.Description,
	})
	require.NoError(t, err)
	require.Equal(t, "https://pay.example/x", res.Link)

	require.Equal(t, "m-1", got["merchant_id"])
	require.Equal(t, "SECRET", got["secret"])
	require.Equal(t, "12345-ab12cd34", got["order_id"])
	require.Equal(t, float64(50000), got["amount"])
	require.Equal(t, "RUB", got["currency"])
}

func TestNicepayCreatePaymentRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","data":{"message":"merchant disabled"}}`))
	}))
	defer srv.Close()

	np := payment.Nicepay{Secret: "S", BaseURL: srv.URL, HTTP: newTestHTTPClient(srv.Client())}
	_, err := np.CreatePayment(context.Background(), payment.CreateRequest{OrderID: "1-aaaa1111", AmountMinor: 50000, Currency: payment.CurrencyRUB})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROVIDER_REJECTED", appErr.Code)
	require.Equal(t, "merchant disabled", appErr.Message)
	require.Equal(t, http.StatusBadGateway, appErr.HTTPStatus)
}

func TestNicepayCreatePaymentContractViolations(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unparseable body", `not json`},
		{"success without link", `{"status":"success","data":{}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			np := payment.Nicepay{Secret: "S", BaseURL: srv.URL, HTTP: newTestHTTPClient(srv.Client())}
			_, err := np.CreatePayment(context.Background(), payment.CreateRequest{OrderID: "1-aaaa1111", AmountMinor: 1000, Currency: payment.CurrencyRUB})

			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, "PROVIDER_CONTRACT", appErr.Code)
		})
	}
}

func TestNicepayCreatePaymentUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	np := payment.Nicepay{Secret: "S", BaseURL: srv.URL, HTTP: newTestHTTPClient(http.DefaultClient)}
	_, err := np.CreatePayment(context.Background(), payment.CreateRequest{OrderID: "1-aaaa1111", AmountMinor: 1000, Currency: payment.CurrencyRUB})

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "PROVIDER_UNREACHABLE", appErr.Code)
}

func TestNicepayVerifyWebhook(t *testing.T) {
	np := payment.Nicepay{Secret: "SECRET"}
	params := map[string]string{"result": "success", "order_id": "12345-ab12cd34"}

	require.NoError(t, np.VerifyWebhook(params, payment.ComputeSignature(params, "SECRET")))

	var appErr *common.AppError
	err := np.VerifyWebhook(params, "")
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "SIGNATURE_MISSING", appErr.Code)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	err = np.VerifyWebhook(params, strings.Repeat("0", 64))
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "SIGNATURE_MISMATCH", appErr.Code)
	require.Equal(t, http.StatusForbidden, appErr.HTTPStatus)
}

func TestCreatePaymentPropagatesProviderError(t *testing.T) {
	wantErr := errors.New("boom")
	provider := &stubProvider{err: wantErr}
	svc := &payment.Service{Provider: provider}

	_, err := svc.CreatePayment(context.Background(), 500, 12345, payment.CurrencyRUB)
	require.ErrorIs(t, err, wantErr)
}
