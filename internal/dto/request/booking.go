package request

type GuestRequest struct {
	Adults   int `json:"adults" validate:"gte=1"`
	Children int `json:"children" validate:"gte=0"`
}

// CreateRoomBookingRequest books one room unit per entry in Guests.
type CreateRoomBookingRequest struct {
	RoomID   string         `json:"room_id" validate:"required,uuid4"`
	CheckIn  string         `json:"check_in" validate:"required,date"`
	CheckOut string         `json:"check_out" validate:"required,date"`
	Guests   []GuestRequest `json:"guests" validate:"required,min=1,max=20,dive"`
}

type UpdateBookingRequest struct {
	CheckIn  string         `json:"check_in" validate:"required,date"`
	CheckOut string         `json:"check_out" validate:"required,date"`
	Guests   []GuestRequest `json:"guests" validate:"required,min=1,max=20,dive"`
}

type UploadReceiptRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type BookingListRequest struct {
	PaginatedRequest
	Status        string `json:"status" validate:"omitempty,oneof=PENDING CONFIRMED CANCELLED EXPIRED"`
	PaymentStatus string `json:"payment_status" validate:"omitempty,oneof=UNPAID PAID FAILED REFUNDED"`
}
