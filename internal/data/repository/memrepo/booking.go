package memrepo

import (
	"context"
	"sort"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"

	"github.com/google/uuid"
)

type bookingRepository struct {
	s *Store
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	defer r.s.lock(ctx)()

	r.s.data.bookings[booking.ID] = copyBooking(*booking)
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer r.s.lock(ctx)()

	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, nil
	}
	b = copyBooking(b)
	return &b, nil
}

// FindByIDForUpdate needs no row lock: a transaction already holds the store.
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *bookingRepository) FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*entity.Booking, error) {
	defer r.s.lock(ctx)()

	b, ok := r.s.data.bookings[id]
	if !ok || b.UserID == nil || *b.UserID != userID {
		return nil, nil
	}
	b = copyBooking(b)
	return &b, nil
}

func matchesUser(b entity.Booking, userID uuid.UUID, filter repository.BookingFilter) bool {
	if b.UserID == nil || *b.UserID != userID || b.PaymentStatus == entity.BookingPaymentExpired {
		return false
	}
	if filter.Status != nil && b.Status != *filter.Status {
		return false
	}
	if filter.PaymentStatus != nil && b.PaymentStatus != *filter.PaymentStatus {
		return false
	}
	return true
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, filter repository.BookingFilter) ([]*entity.Booking, error) {
	defer r.s.lock(ctx)()

	var all []*entity.Booking
	for _, b := range r.s.data.bookings {
		if matchesUser(b, userID, filter) {
			b = copyBooking(b)
			all = append(all, &b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if filter.Offset >= len(all) {
		return nil, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID, filter repository.BookingFilter) (int64, error) {
	defer r.s.lock(ctx)()

	var count int64
	for _, b := range r.s.data.bookings {
		if matchesUser(b, userID, filter) {
			count++
		}
	}
	return count, nil
}

func (r *bookingRepository) update(id uuid.UUID, cond func(entity.Booking) bool, apply func(*entity.Booking)) bool {
	b, ok := r.s.data.bookings[id]
	if !ok || !cond(b) {
		return false
	}
	b = copyBooking(b)
	apply(&b)
	b.UpdatedAt = r.s.now()
	r.s.data.bookings[id] = b
	return true
}

func (r *bookingRepository) Transition(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, pay entity.BookingPaymentStatus) (bool, error) {
	defer r.s.lock(ctx)()

	return r.update(id,
		func(b entity.Booking) bool { return b.Status == from },
		func(b *entity.Booking) {
			b.Status = to
			if pay != "" {
				b.PaymentStatus = pay
			}
		}), nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingPaymentStatus) (bool, error) {
	defer r.s.lock(ctx)()

	return r.update(id,
		func(b entity.Booking) bool { return b.PaymentStatus == from },
		func(b *entity.Booking) { b.PaymentStatus = to }), nil
}

func (r *bookingRepository) UpdateRooms(ctx context.Context, id uuid.UUID, rooms []entity.BookedRoom, amount int64) (bool, error) {
	defer r.s.lock(ctx)()

	return r.update(id,
		func(b entity.Booking) bool {
			return b.Status == entity.BookingStatusPending && b.PaymentStatus != entity.BookingPaymentPaid
		},
		func(b *entity.Booking) {
			b.Rooms = append([]entity.BookedRoom(nil), rooms...)
			b.Amount = amount
		}), nil
}

func (r *bookingRepository) AttachReceipt(ctx context.Context, id uuid.UUID, receipt entity.BankReceipt) (bool, error) {
	defer r.s.lock(ctx)()

	return r.update(id,
		func(b entity.Booking) bool {
			return b.Status == entity.BookingStatusPending && b.PaymentStatus == entity.BookingPaymentUnpaid
		},
		func(b *entity.Booking) { b.Receipt = &receipt }), nil
}

func (r *bookingRepository) VerifyReceipt(ctx context.Context, id uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()

	return r.update(id,
		func(b entity.Booking) bool {
			return b.Receipt != nil && b.Status == entity.BookingStatusPending
		},
		func(b *entity.Booking) {
			b.Receipt.Verified = true
			b.Status = entity.BookingStatusConfirmed
			b.PaymentStatus = entity.BookingPaymentPaid
		}), nil
}

func (r *bookingRepository) FindExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entity.Booking, error) {
	defer r.s.lock(ctx)()

	var out []*entity.Booking
	for _, b := range r.s.data.bookings {
		if b.Status == entity.BookingStatusPending && b.PaymentStatus != entity.BookingPaymentPaid && b.CreatedAt.Before(before) {
			b = copyBooking(b)
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
