package entity

import (
	"time"

	"github.com/google/uuid"
)

// RoomInventory is one ledger row per (room, UTC night).
type RoomInventory struct {
	BaseNoDelete
	RoomID    uuid.UUID `db:"room_id"`
	Date      time.Time `db:"date"`
	Total     int       `db:"total"`
	Available int       `db:"available"`
}

// Booked is the capacity currently held by bookings on this night.
func (i *RoomInventory) Booked() int {
	return i.Total - i.Available
}
