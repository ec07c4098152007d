package response

import (
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/utils"
)

type GuestsResponse struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

type BookedRoomResponse struct {
	RoomID   string         `json:"room_id"`
	CheckIn  string         `json:"check_in"`
	CheckOut string         `json:"check_out"`
	Guests   GuestsResponse `json:"guests"`
}

type ReceiptResponse struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
	Verified   bool      `json:"verified"`
}

type BookingResponse struct {
	ID            string                      `json:"id"`
	OrderID       string                      `json:"order_id"`
	BookingType   entity.BookingType          `json:"booking_type"`
	Status        entity.BookingStatus        `json:"status"`
	PaymentStatus entity.BookingPaymentStatus `json:"payment_status"`
	Amount        int64                       `json:"amount"`
	Currency      string                      `json:"currency"`
	UserID        *string                     `json:"user_id,omitempty"`
	Nights        int                         `json:"nights"`
	Rooms         []BookedRoomResponse        `json:"rooms"`
	Receipt       *ReceiptResponse            `json:"receipt,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

// Helper converters
func BookingToResponse(b *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:            b.ID.String(),
		OrderID:       b.OrderID,
		BookingType:   b.BookingType,
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		Amount:        b.Amount,
		Currency:      b.Currency,
		Rooms:         make([]BookedRoomResponse, 0, len(b.Rooms)),
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}

	if b.UserID != nil {
		userID := b.UserID.String()
		resp.UserID = &userID
	}

	for _, r := range b.Rooms {
		resp.Rooms = append(resp.Rooms, BookedRoomResponse{
			RoomID:   r.RoomID.String(),
			CheckIn:  r.CheckIn.Format(utils.DateLayout),
			CheckOut: r.CheckOut.Format(utils.DateLayout),
			Guests:   GuestsResponse{Adults: r.Guests.Adults, Children: r.Guests.Children},
		})
	}

	if _, checkIn, checkOut, ok := b.Stay(); ok {
		resp.Nights = utils.DiffInDays(checkIn, checkOut)
	}

	if b.Receipt != nil {
		resp.Receipt = &ReceiptResponse{
			URL:        b.Receipt.URL,
			UploadedAt: b.Receipt.UploadedAt,
			Verified:   b.Receipt.Verified,
		}
	}

	return resp
}
