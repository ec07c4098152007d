package response

import (
	"time"

	"hotel-booking/internal/data/entity"
)

type PaymentResponse struct {
	ID             string               `json:"id"`
	BookingID      string               `json:"booking_id"`
	Provider       string               `json:"provider"`
	IntentID       string               `json:"intent_id"`
	Amount         int64                `json:"amount"`
	RefundedAmount int64                `json:"refunded_amount"`
	Currency       string               `json:"currency"`
	Status         entity.PaymentStatus `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type PaymentIntentResponse struct {
	PaymentID    string `json:"payment_id"`
	BookingID    string `json:"booking_id"`
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

type PaymentStatusResponse struct {
	Exists         bool                 `json:"exists"`
	Status         entity.PaymentStatus `json:"status,omitempty"`
	Amount         int64                `json:"amount,omitempty"`
	Currency       string               `json:"currency,omitempty"`
	RefundedAmount int64                `json:"refunded_amount,omitempty"`
	CreatedAt      *time.Time           `json:"created_at,omitempty"`
}

type RefundResponse struct {
	PaymentID      string               `json:"payment_id"`
	BookingID      string               `json:"booking_id"`
	RefundID       string               `json:"refund_id"`
	Amount         int64                `json:"amount"`
	RefundedAmount int64                `json:"refunded_amount"`
	Status         entity.PaymentStatus `json:"status"`
	FullyRefunded  bool                 `json:"fully_refunded"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID.String(),
		BookingID:      p.BookingID.String(),
		Provider:       p.Provider,
		IntentID:       p.IntentID,
		Amount:         p.Amount,
		RefundedAmount: p.RefundedAmount,
		Currency:       p.Currency,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
