package wire

import (
	"hotel-booking/internal/adaptor"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== GUEST OR USER ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.OptionalAuth(repo.Session, log))

		// POST /api/bookings/rooms - Book room units for a stay
		r.Post("/api/bookings/rooms", bookingHandler.CreateRoomBooking)

		// POST /api/bookings/{id}/receipt - Attach a bank transfer receipt
		r.Post("/api/bookings/{id}/receipt", bookingHandler.UploadReceipt)
	})

	// ==================== PROTECTED ROUTES (require auth) ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))

		// GET /api/user/bookings - Booking history of the current user
		r.Get("/api/user/bookings", bookingHandler.GetUserBookings)
		r.Get("/api/user/bookings/{id}", bookingHandler.GetUserBooking)

		// PATCH /api/bookings/{id} - Move a pending booking to other dates
		r.Patch("/api/bookings/{id}", bookingHandler.UpdateBooking)

		// PUT /api/bookings/{id}/cancel - Cancel a pending booking
		r.Put("/api/bookings/{id}/cancel", bookingHandler.CancelBooking)
	})

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/bookings", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))
		r.Use(middleware.Admin(repo.User, log))

		r.Get("/{id}", bookingHandler.GetBookingByID)
		r.Put("/{id}/verify-receipt", bookingHandler.VerifyReceipt)
	})
}
