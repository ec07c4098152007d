package request

type CreatePaymentIntentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
}

// RefundRequest refunds the remaining balance when Amount is omitted.
type RefundRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid4"`
	Amount    *int64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
}
