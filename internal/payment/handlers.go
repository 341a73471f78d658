package payment

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/nvolkov-go/topup-relay/internal/common"
)

// Handler exposes the HTTP endpoint for opening payments.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createReq struct {
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	ChatID   int64  `json:"chatId" validate:"required"`
	Currency string `json:"currency" validate:"required"`
}

type createResp struct {
	PaymentLink string `json:"paymentLink"`
	OrderID     string `json:"orderId"`
}

// Create opens a payment from a JSON body.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}
	h.create(w, r, req)
}

// CreateFromQuery opens a payment from query parameters. Kept for quick
// browser checks against a deployed instance.
func (h *Handler) CreateFromQuery(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "PAYMENT_NOT_CONFIGURED", "payment handler unavailable", nil)
		return
	}
	q := r.URL.Query()
	amount, err := strconv.ParseInt(strings.TrimSpace(q.Get("amount")), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "amount must be an integer", nil)
		return
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(q.Get("chat_id")), 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "chat_id must be an integer", nil)
		return
	}
	currency := strings.TrimSpace(q.Get("currency"))
	if currency == "" {
		currency = string(CurrencyRUB)
	}
	h.create(w, r, createReq{Amount: amount, ChatID: chatID, Currency: currency})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req createReq) {
	result, err := h.Svc.CreatePayment(r.Context(), req.Amount, req.ChatID, Currency(strings.ToUpper(req.Currency)))
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, createResp{PaymentLink: result.PaymentLink, OrderID: result.OrderID})
}
