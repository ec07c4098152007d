package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingType string

const (
	BookingTypeRoom BookingType = "ROOM"
	BookingTypeTour BookingType = "TOUR"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

type BookingPaymentStatus string

const (
	BookingPaymentUnpaid   BookingPaymentStatus = "UNPAID"
	BookingPaymentPaid     BookingPaymentStatus = "PAID"
	BookingPaymentFailed   BookingPaymentStatus = "FAILED"
	BookingPaymentRefunded BookingPaymentStatus = "REFUNDED"
	BookingPaymentExpired  BookingPaymentStatus = "EXPIRED"
)

type Guests struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// BookedRoom is one reserved room unit. All units of a booking share the
// same room and stay.
type BookedRoom struct {
	RoomID   uuid.UUID `json:"room_id"`
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
	Guests   Guests    `json:"guests"`
}

type BankReceipt struct {
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
	Verified   bool      `json:"verified"`
}

type Booking struct {
	BaseNoDelete
	OrderID       string               `db:"order_id"`
	BookingType   BookingType          `db:"booking_type"`
	Status        BookingStatus        `db:"status"`
	PaymentStatus BookingPaymentStatus `db:"payment_status"`
	Amount        int64                `db:"amount"`
	Currency      string               `db:"currency"`
	UserID        *uuid.UUID           `db:"user_id"`
	Rooms         []BookedRoom         `db:"rooms"`
	Receipt       *BankReceipt         `db:"bank_receipt"`
}

// Quantity is the number of room units held by the booking.
func (b *Booking) Quantity() int {
	return len(b.Rooms)
}

// Stay returns the room and night range the booking holds inventory for.
func (b *Booking) Stay() (roomID uuid.UUID, checkIn, checkOut time.Time, ok bool) {
	if len(b.Rooms) == 0 {
		return uuid.Nil, time.Time{}, time.Time{}, false
	}
	r := b.Rooms[0]
	return r.RoomID, r.CheckIn, r.CheckOut, true
}

func (b *Booking) IsPaid() bool {
	return b.PaymentStatus == BookingPaymentPaid
}
