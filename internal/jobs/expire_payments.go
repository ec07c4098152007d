package jobs

import (
	"context"
	"time"

	"hotel-booking/internal/usecase"
)

// PaymentExpirer marks abandoned PENDING payment intents EXPIRED. The
// booking itself is left to BookingExpirer.
type PaymentExpirer struct {
	payment usecase.PaymentService
	after   time.Duration
}

func NewPaymentExpirer(payment usecase.PaymentService, after time.Duration) *PaymentExpirer {
	return &PaymentExpirer{payment: payment, after: after}
}

func (j *PaymentExpirer) Task(interval time.Duration) Task {
	return Task{Name: "expire_payments", Interval: interval, Run: j.Sweep}
}

func (j *PaymentExpirer) Sweep(ctx context.Context) (int, error) {
	n, err := j.payment.ExpirePendingPayments(ctx, j.after)
	return int(n), err
}
