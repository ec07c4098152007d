package memrepo

import (
	"context"
	"slices"
	"sort"
	"time"

	"hotel-booking/internal/data/entity"

	"github.com/google/uuid"
)

type paymentRepository struct {
	s *Store
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	defer r.s.lock(ctx)()

	r.s.data.payments[payment.ID] = *payment
	return nil
}

func (r *paymentRepository) first(match func(entity.Payment) bool) *entity.Payment {
	var found *entity.Payment
	for _, p := range r.s.data.payments {
		if !match(p) {
			continue
		}
		if found == nil || p.CreatedAt.After(found.CreatedAt) {
			p := p
			found = &p
		}
	}
	return found
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	return r.first(func(p entity.Payment) bool { return p.IntentID == intentID }), nil
}

func (r *paymentRepository) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	return r.first(func(p entity.Payment) bool { return p.BookingID == bookingID }), nil
}

func (r *paymentRepository) FindRefundableByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	return r.first(func(p entity.Payment) bool {
		return p.BookingID == bookingID &&
			(p.Status == entity.PaymentStatusSucceeded || p.Status == entity.PaymentStatusRefunded)
	}), nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.PaymentStatus, to entity.PaymentStatus) (bool, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.payments[id]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = r.s.now()
	r.s.data.payments[id] = p
	return true, nil
}

func (r *paymentRepository) ApplyRefund(ctx context.Context, id uuid.UUID, amount int64) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.data.payments[id]
	if !ok {
		return nil, nil
	}
	if p.Status != entity.PaymentStatusSucceeded && p.Status != entity.PaymentStatusRefunded {
		return nil, nil
	}
	if p.RefundedAmount+amount > p.Amount {
		return nil, nil
	}

	p.RefundedAmount += amount
	if p.RefundedAmount >= p.Amount {
		p.Status = entity.PaymentStatusFullyRefunded
	} else {
		p.Status = entity.PaymentStatusRefunded
	}
	p.UpdatedAt = r.s.now()
	r.s.data.payments[id] = p
	return &p, nil
}

func (r *paymentRepository) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	var count int64
	for id, p := range r.s.data.payments {
		if p.Status == entity.PaymentStatusPending && p.CreatedAt.Before(before) {
			p.Status = entity.PaymentStatusExpired
			p.UpdatedAt = r.s.now()
			r.s.data.payments[id] = p
			count++
		}
	}
	return count, nil
}

func (r *paymentRepository) FindSucceededUnsettled(ctx context.Context, before time.Time, limit int) ([]*entity.Payment, error) {
	defer r.s.lock(ctx)()

	var out []*entity.Payment
	for _, p := range r.s.data.payments {
		if p.Status != entity.PaymentStatusSucceeded || !p.UpdatedAt.Before(before) {
			continue
		}
		b, ok := r.s.data.bookings[p.BookingID]
		if !ok || b.Status != entity.BookingStatusPending || b.PaymentStatus == entity.BookingPaymentPaid {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
