package usecase

import (
	"context"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/broker"

	"go.uber.org/zap"
)

// Routing keys on the booking events exchange.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
	EventBookingRefunded  = "booking.refunded"
)

type BookingEvent struct {
	BookingID     string                      `json:"booking_id"`
	OrderID       string                      `json:"order_id"`
	Status        entity.BookingStatus        `json:"status"`
	PaymentStatus entity.BookingPaymentStatus `json:"payment_status"`
	Amount        int64                       `json:"amount"`
	Currency      string                      `json:"currency"`
	UserID        *string                     `json:"user_id,omitempty"`
	OccurredAt    time.Time                   `json:"occurred_at"`
}

// eventEmitter publishes after the state change is committed. A lost event
// never fails the request; it is only logged.
type eventEmitter struct {
	publisher broker.Publisher
	now       func() time.Time
	log       *zap.Logger
}

func (e *eventEmitter) emit(ctx context.Context, routingKey string, b *entity.Booking, status entity.BookingStatus, pay entity.BookingPaymentStatus) {
	if e.publisher == nil {
		return
	}

	event := BookingEvent{
		BookingID:     b.ID.String(),
		OrderID:       b.OrderID,
		Status:        status,
		PaymentStatus: pay,
		Amount:        b.Amount,
		Currency:      b.Currency,
		OccurredAt:    e.now().UTC(),
	}
	if b.UserID != nil {
		userID := b.UserID.String()
		event.UserID = &userID
	}

	if err := e.publisher.Publish(ctx, routingKey, event); err != nil {
		e.log.Warn("Failed to publish booking event",
			zap.Error(err),
			zap.String("routing_key", routingKey),
			zap.String("booking_id", b.ID.String()),
		)
	}
}
