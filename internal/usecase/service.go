package usecase

import (
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/broker"
	"hotel-booking/pkg/payment"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Inventory   InventoryService
	Booking     BookingService
	Payment     PaymentService
	Idempotency IdempotencyService
}

func NewService(repo *repository.Repository, gateway payment.Gateway, publisher broker.Publisher, config *utils.Config, log *zap.Logger) *Service {
	inventory := NewInventoryService(repo, log)
	booking := NewBookingService(repo, inventory, publisher, log)

	return &Service{
		Inventory:   inventory,
		Booking:     booking,
		Payment:     NewPaymentService(repo, booking, gateway, log),
		Idempotency: NewIdempotencyService(repo, config.Idempotency.StaleAfter, log),
	}
}
