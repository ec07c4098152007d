package response

import (
	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/utils"
)

type InventoryResponse struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Available int    `json:"available"`
	Booked    int    `json:"booked"`
}

type AvailabilityResponse struct {
	RoomID          string `json:"room_id"`
	From            string `json:"from"`
	To              string `json:"to"`
	Nights          int    `json:"nights"`
	Available       bool   `json:"available"`
	MaxRoomsCanBook int    `json:"max_rooms_can_book"`
}

type FutureCountResponse struct {
	RoomID string `json:"room_id"`
	Count  int64  `json:"count"`
}

func InventoryToResponse(inv *entity.RoomInventory) InventoryResponse {
	return InventoryResponse{
		ID:        inv.ID.String(),
		RoomID:    inv.RoomID.String(),
		Date:      inv.Date.Format(utils.DateLayout),
		Total:     inv.Total,
		Available: inv.Available,
		Booked:    inv.Booked(),
	}
}
