package entity

import (
	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending       PaymentStatus = "PENDING"
	PaymentStatusSucceeded     PaymentStatus = "SUCCEEDED"
	PaymentStatusFailed        PaymentStatus = "FAILED"
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusFullyRefunded PaymentStatus = "FULLY_REFUNDED"
	PaymentStatusExpired       PaymentStatus = "EXPIRED"
	PaymentStatusCancelled     PaymentStatus = "CANCELLED"
)

type Payment struct {
	BaseNoDelete
	BookingID      uuid.UUID     `db:"booking_id"`
	Provider       string        `db:"provider"`
	IntentID       string        `db:"intent_id"`
	Amount         int64         `db:"amount"`
	RefundedAmount int64         `db:"refunded_amount"`
	Currency       string        `db:"currency"`
	Status         PaymentStatus `db:"status"`
}

// Remaining is the amount that can still be refunded.
func (p *Payment) Remaining() int64 {
	return p.Amount - p.RefundedAmount
}
