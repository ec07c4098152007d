package wire

import (
	"hotel-booking/internal/adaptor"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// POST /api/payments/webhook - Provider callback, authenticated by signature
	r.Post("/api/payments/webhook", paymentHandler.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		// POST /api/payments/intent - Requires Idempotency-Key
		r.Post("/api/payments/intent", paymentHandler.CreateIntent)

		r.Get("/api/payments/{id}", paymentHandler.GetPayment)
		r.Get("/api/payments/booking/{bookingId}", paymentHandler.GetBookingPayment)
		r.Get("/api/payments/booking/{bookingId}/status", paymentHandler.GetPaymentStatus)
	})

	r.Route("/api/admin/payments", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))
		r.Use(middleware.Admin(repo.User, log))

		// POST /api/admin/payments/refund - Requires Idempotency-Key
		r.Post("/refund", paymentHandler.Refund)
	})
}
