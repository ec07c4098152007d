package wire

import (
	"hotel-booking/internal/adaptor"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireInventory(
	r chi.Router,
	inventoryHandler *adaptor.InventoryHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/rooms/{roomId}/availability", inventoryHandler.GetAvailability)
	r.Get("/api/rooms/{roomId}/inventory", inventoryHandler.GetInventory)
	r.Get("/api/rooms/{roomId}/inventory/{date}", inventoryHandler.GetInventoryByDate)

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, log))
		r.Use(middleware.Admin(repo.User, log))

		r.Get("/api/admin/rooms/{roomId}/inventory/future-count", inventoryHandler.CountFuture)
		r.Put("/api/admin/inventory/{id}", inventoryHandler.UpdateTotal)
		r.Delete("/api/admin/inventory/{id}", inventoryHandler.Delete)
	})
}
