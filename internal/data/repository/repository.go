package repository

import (
	"hotel-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User        UserRepository
	Session     SessionRepository
	Room        RoomRepository
	Inventory   InventoryRepository
	Booking     BookingRepository
	Payment     PaymentRepository
	Idempotency IdempotencyRepository
	Tx          database.Transactor
	Health      database.Pinger
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:        NewUserRepository(db, log),
		Session:     NewSessionRepository(db, log),
		Room:        NewRoomRepository(db, log),
		Inventory:   NewInventoryRepository(db, log),
		Booking:     NewBookingRepository(db, log),
		Payment:     NewPaymentRepository(db, log),
		Idempotency: NewIdempotencyRepository(db, log),
		Tx:          database.NewTransactor(db),
		Health:      db,
	}
}
