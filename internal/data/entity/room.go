package entity

import "github.com/google/uuid"

// RoomPolicy is the booking-relevant view of a catalog room. The catalog
// owns the rooms table; the booking core only reads it.
type RoomPolicy struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TotalRooms  int       `db:"total_rooms" json:"total_rooms"`
	MinNights   int       `db:"min_nights" json:"min_nights"`
	MaxNights   int       `db:"max_nights" json:"max_nights"` // 0 = no upper bound
	MaxAdults   int       `db:"max_adults" json:"max_adults"`
	MaxChildren int       `db:"max_children" json:"max_children"`
	BasePrice   int64     `db:"base_price" json:"base_price"`
	Currency    string    `db:"currency" json:"currency"`
	IsActive    bool      `db:"is_active" json:"is_active"`
}
