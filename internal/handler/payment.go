package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/streamgate/gate-server-go/internal/audit"
	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/middleware"
	"github.com/streamgate/gate-server-go/internal/payment/maib"
	"github.com/streamgate/gate-server-go/internal/service"
	"github.com/streamgate/gate-server-go/internal/util"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	paymentService *service.PaymentService
	authMW         *middleware.AuthMiddleware
	signatureKey   string
}

func NewPaymentHandler(
	paymentService *service.PaymentService,
	authMW *middleware.AuthMiddleware,
	signatureKey string,
) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		authMW:         authMW,
		signatureKey:   signatureKey,
	}
}

func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(h.authMW.Handler).Post("/", h.Create)
	// Webhook authenticates by signature, not cookie.
	r.Post("/webhook", h.Webhook)
	return r
}

type createPaymentRequest struct {
	StreamID string `json:"streamId" validate:"required"`
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req createPaymentRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, err)
		return
	}

	intent, err := h.paymentService.CreateIntent(r.Context(), user.ID, req.StreamID)
	if err != nil {
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventPaymentCreate,
		UserID: user.ID,
		Details: map[string]interface{}{
			"orderId":  intent.Payment.OrderID,
			"streamId": req.StreamID,
		},
	})

	writeJSON(w, http.StatusCreated, intent)
}

// Webhook receives gateway callbacks. The signature covers the raw body, so
// the body is read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, apperrors.ValidationError("Unreadable body"))
		return
	}

	signature := r.Header.Get("X-Maib-Signature")
	if !maib.VerifySignature(h.signatureKey, body, signature) {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventPaymentFailed,
			Details: map[string]interface{}{"reason": "bad signature"}})
		writeError(w, apperrors.InvalidSignature())
		return
	}

	var payload service.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, apperrors.ValidationError("Malformed JSON body").WithCause(err))
		return
	}
	if fields := util.ValidateStruct(&payload); fields != nil {
		writeError(w, apperrors.ValidationError("Invalid callback payload").WithDetails(fields))
		return
	}

	if err := h.paymentService.HandleCallback(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	eventType := audit.EventPaymentPaid
	if payload.Status != "OK" {
		eventType = audit.EventPaymentFailed
	}
	audit.LogFromRequest(r, audit.Event{
		Type:    eventType,
		Details: map[string]interface{}{"orderId": payload.OrderID},
	})

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
