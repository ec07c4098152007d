package jobs

import (
	"context"
	"fmt"
	"time"

	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/usecase"

	"go.uber.org/zap"
)

// BookingExpirer cancels PENDING, unpaid bookings older than the hold window
// and gives their nights back.
type BookingExpirer struct {
	repo    *repository.Repository
	booking usecase.BookingService
	after   time.Duration
	batch   int
	now     func() time.Time
	log     *zap.Logger
}

func NewBookingExpirer(repo *repository.Repository, booking usecase.BookingService, after time.Duration, batch int, log *zap.Logger) *BookingExpirer {
	return &BookingExpirer{
		repo:    repo,
		booking: booking,
		after:   after,
		batch:   batch,
		now:     time.Now,
		log:     log.With(zap.String("job", "expire_bookings")),
	}
}

func (j *BookingExpirer) Task(interval time.Duration) Task {
	return Task{Name: "expire_bookings", Interval: interval, Run: j.Sweep}
}

// Sweep expires one batch. A booking that fails is logged and left for the
// next tick.
func (j *BookingExpirer) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.after)

	bookings, err := j.repo.Booking.FindExpiredPending(ctx, cutoff, j.batch)
	if err != nil {
		return 0, fmt.Errorf("find expired bookings: %w", err)
	}

	expired := 0
	for _, b := range bookings {
		if err := ctx.Err(); err != nil {
			return expired, err
		}

		ok, err := j.booking.ExpireBooking(ctx, b)
		if err != nil {
			j.log.Error("Failed to expire booking",
				zap.Error(err),
				zap.String("booking_id", b.ID.String()),
			)
			continue
		}
		if ok {
			expired++
		}
	}

	if expired > 0 {
		j.log.Info("Expired stale bookings", zap.Int("count", expired), zap.Time("cutoff", cutoff))
	}

	return expired, nil
}
