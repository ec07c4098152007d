package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/usecase"

	"go.uber.org/zap"
)

// BookingReconciler confirms bookings whose payment succeeded but whose
// confirmation never landed, e.g. after a crash between the two writes.
// Payments younger than the safety delay are skipped so an in-flight
// webhook is not raced.
type BookingReconciler struct {
	repo        *repository.Repository
	booking     usecase.BookingService
	safetyDelay time.Duration
	batch       int
	now         func() time.Time
	log         *zap.Logger
}

func NewBookingReconciler(repo *repository.Repository, booking usecase.BookingService, safetyDelay time.Duration, batch int, log *zap.Logger) *BookingReconciler {
	return &BookingReconciler{
		repo:        repo,
		booking:     booking,
		safetyDelay: safetyDelay,
		batch:       batch,
		now:         time.Now,
		log:         log.With(zap.String("job", "reconcile_bookings")),
	}
}

func (j *BookingReconciler) Task(interval time.Duration) Task {
	return Task{Name: "reconcile_bookings", Interval: interval, Run: j.Sweep}
}

func (j *BookingReconciler) Sweep(ctx context.Context) (int, error) {
	payments, err := j.repo.Payment.FindSucceededUnsettled(ctx, j.now().Add(-j.safetyDelay), j.batch)
	if err != nil {
		return 0, fmt.Errorf("find unsettled payments: %w", err)
	}

	confirmed := 0
	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return confirmed, err
		}

		log := j.log.With(
			zap.String("payment_id", p.ID.String()),
			zap.String("booking_id", p.BookingID.String()),
		)

		if err := j.booking.MarkAsPaid(ctx, p.BookingID); err != nil {
			if errors.Is(err, usecase.ErrConflict) {
				log.Warn("Paid booking was closed before reconciliation", zap.Error(err))
				continue
			}
			log.Error("Failed to reconcile booking", zap.Error(err))
			continue
		}

		log.Info("Booking reconciled")
		confirmed++
	}

	return confirmed, nil
}
