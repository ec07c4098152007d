package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	SignatureHeader      = "Stripe-Signature"

	EndpointCreateIntent = "payments.create_intent"
	EndpointRefund       = "payments.refund"

	maxBodyBytes = 1 << 20
)

type PaymentHandler struct {
	service     usecase.PaymentService
	idempotency usecase.IdempotencyService
	log         *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, idempotency usecase.IdempotencyService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		idempotency: idempotency,
		log:         log.With(zap.String("handler", "payment")),
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// runIdempotent executes fn at most once per Idempotency-Key and writes
// either its fresh or its stored response.
func (h *PaymentHandler) runIdempotent(w http.ResponseWriter, r *http.Request, userID, endpoint string, body []byte, fn func(ctx context.Context) (any, error)) {
	resp, err := h.idempotency.Execute(r.Context(), usecase.IdempotencyRequest{
		Key:         r.Header.Get(IdempotencyKeyHeader),
		UserID:      userID,
		Endpoint:    endpoint,
		RequestHash: utils.HashPayload(body),
	}, fn)
	if err != nil {
		writeServiceError(w, h.log, err, endpoint)
		return
	}

	utils.ResponseCreated(w, "success", resp)
}

// CreateIntent handles POST /api/payments/intent (protected, idempotent)
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	var req request.CreatePaymentIntentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	h.runIdempotent(w, r, userID.String(), EndpointCreateIntent, body, func(ctx context.Context) (any, error) {
		return h.service.CreatePaymentIntent(ctx, userID, &req)
	})
}

// Refund handles POST /api/admin/payments/refund (admin only, idempotent)
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	adminID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	body, err := readBody(w, r)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	var req request.RefundRequest
	if err := json.Unmarshal(body, &req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	h.runIdempotent(w, r, adminID.String(), EndpointRefund, body, func(ctx context.Context) (any, error) {
		return h.service.Refund(ctx, &req)
	})
}

// Webhook handles POST /api/payments/webhook (provider signed)
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := readBody(w, r)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) {
			h.log.Warn("Rejected webhook", zap.Error(err))
			utils.ResponseBadRequest(w, "Invalid webhook", nil)
			return
		}
		writeServiceError(w, h.log, err, "handle webhook")
		return
	}

	utils.ResponseSuccess(w, "received", nil)
}

// GetPayment handles GET /api/payments/{id} (protected)
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPaymentByID(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// GetBookingPayment handles GET /api/payments/booking/{bookingId} (protected)
func (h *PaymentHandler) GetBookingPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.GetPaymentByBookingID(r.Context(), userID, chi.URLParam(r, "bookingId"))
	if err != nil {
		writeServiceError(w, h.log, err, "get booking payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// GetPaymentStatus handles GET /api/payments/booking/{bookingId}/status (protected)
func (h *PaymentHandler) GetPaymentStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	status, err := h.service.GetPaymentStatus(r.Context(), userID, chi.URLParam(r, "bookingId"))
	if err != nil {
		writeServiceError(w, h.log, err, "get payment status")
		return
	}

	utils.ResponseSuccess(w, "success", status)
}
