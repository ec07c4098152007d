package usecase

import (
	"context"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService owns the per-night ledger. Every capacity change goes
// through Reserve or Rollback.
type InventoryService interface {
	// Reservation protocol, used by the booking flow
	EnsureExists(ctx context.Context, roomID uuid.UUID, from, to time.Time) error
	CheckAvailability(ctx context.Context, roomID uuid.UUID, from, to time.Time) (bool, error)
	Reserve(ctx context.Context, roomID uuid.UUID, from, to time.Time, quantity int) error
	Rollback(ctx context.Context, roomID uuid.UUID, from, to time.Time, quantity int) error

	// Public endpoints
	GetAvailability(ctx context.Context, roomID string, req *request.DateRangeRequest) (*response.AvailabilityResponse, error)
	GetInventoryByRange(ctx context.Context, roomID string, req *request.DateRangeRequest) ([]response.InventoryResponse, error)
	GetInventoryByDate(ctx context.Context, roomID, date string) (*response.InventoryResponse, error)

	// Admin endpoints
	UpdateInventoryTotal(ctx context.Context, inventoryID string, req *request.UpdateInventoryRequest) (*response.InventoryResponse, error)
	DeleteInventory(ctx context.Context, inventoryID string) error
	CountFutureInventories(ctx context.Context, roomID string) (*response.FutureCountResponse, error)
}

type inventoryService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewInventoryService(repo *repository.Repository, log *zap.Logger) InventoryService {
	return newInventoryService(repo, time.Now, log)
}

func newInventoryService(repo *repository.Repository, now func() time.Time, log *zap.Logger) *inventoryService {
	return &inventoryService{
		repo: repo,
		now:  now,
		log:  log.With(zap.String("service", "inventory")),
	}
}

func (s *inventoryService) findRoom(ctx context.Context, roomID uuid.UUID) (*entity.RoomPolicy, error) {
	room, err := s.repo.Room.FindPolicy(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID.String(), err)
	}
	if room == nil {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID.String())
	}
	return room, nil
}

func (s *inventoryService) EnsureExists(ctx context.Context, roomID uuid.UUID, from, to time.Time) error {
	if err := utils.ValidateRangeLength(from, to); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	nights := utils.BuildNights(from, to)
	if len(nights) == 0 {
		return nil
	}

	room, err := s.findRoom(ctx, roomID)
	if err != nil {
		return err
	}

	created, err := s.repo.Inventory.EnsureNights(ctx, roomID, nights, room.TotalRooms)
	if err != nil {
		return fmt.Errorf("ensure inventory: %w", err)
	}

	if created > 0 {
		s.log.Debug("Inventory nights created",
			zap.String("room_id", roomID.String()),
			zap.Int64("created", created),
		)
	}

	return nil
}

func (s *inventoryService) CheckAvailability(ctx context.Context, roomID uuid.UUID, from, to time.Time) (bool, error) {
	nights := utils.BuildNights(from, to)
	if len(nights) == 0 {
		return false, nil
	}

	count, err := s.repo.Inventory.CountAvailableNights(ctx, roomID, nights)
	if err != nil {
		return false, fmt.Errorf("check availability: %w", err)
	}

	return count == len(nights), nil
}

// Reserve takes quantity units on every night in [from, to) or on none.
// Inside an outer transaction a shortfall aborts that transaction too.
func (s *inventoryService) Reserve(ctx context.Context, roomID uuid.UUID, from, to time.Time, quantity int) error {
	nights := utils.BuildNights(from, to)
	if len(nights) == 0 {
		return fmt.Errorf("%w: stay must cover at least one night", ErrInvalidInput)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	return s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		affected, err := s.repo.Inventory.Reserve(ctx, roomID, nights, quantity)
		if err != nil {
			return fmt.Errorf("reserve inventory: %w", err)
		}

		if affected != int64(len(nights)) {
			s.log.Info("Reservation rejected",
				zap.String("room_id", roomID.String()),
				zap.Int("nights", len(nights)),
				zap.Int64("reserved", affected),
				zap.Int("quantity", quantity),
			)
			return fmt.Errorf("%w: room not available for the selected dates", ErrInsufficientAvailability)
		}

		return nil
	})
}

// Rollback restores capacity taken by Reserve. Callers guarantee it runs at
// most once per reservation.
func (s *inventoryService) Rollback(ctx context.Context, roomID uuid.UUID, from, to time.Time, quantity int) error {
	nights := utils.BuildNights(from, to)
	if len(nights) == 0 || quantity <= 0 {
		return nil
	}

	affected, err := s.repo.Inventory.Release(ctx, roomID, nights, quantity)
	if err != nil {
		return fmt.Errorf("rollback inventory: %w", err)
	}

	if affected != int64(len(nights)) {
		s.log.Warn("Rollback touched fewer nights than reserved",
			zap.String("room_id", roomID.String()),
			zap.Int("nights", len(nights)),
			zap.Int64("released", affected),
		)
	}

	return nil
}

func (s *inventoryService) parseRange(roomID string, req *request.DateRangeRequest) (uuid.UUID, time.Time, time.Time, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(roomID)
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: invalid room ID %s", ErrInvalidInput, roomID)
	}

	from, err := utils.ParseDateOnly(req.From)
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	to, err := utils.ParseDateOnly(req.To)
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	if !to.After(from) {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: check-out date must be after check-in date", ErrInvalidInput)
	}
	if err := utils.ValidateRangeLength(from, to); err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	return id, from, to, nil
}

// GetAvailability reports how many units can still be booked for every
// night of the range. Nights without a ledger row count as fully free.
func (s *inventoryService) GetAvailability(ctx context.Context, roomID string, req *request.DateRangeRequest) (*response.AvailabilityResponse, error) {
	id, from, to, err := s.parseRange(roomID, req)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateFutureDateRange(from, to, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	room, err := s.findRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	nights := utils.BuildNights(from, to)
	inventories, err := s.repo.Inventory.FindByRange(ctx, id, nights)
	if err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}

	maxRooms := room.TotalRooms
	if len(inventories) > 0 {
		maxRooms = inventories[0].Available
		for _, inv := range inventories[1:] {
			maxRooms = min(maxRooms, inv.Available)
		}
		// Nights without a row still hold the full room count.
		if len(inventories) < len(nights) {
			maxRooms = min(maxRooms, room.TotalRooms)
		}
	}

	return &response.AvailabilityResponse{
		RoomID:          id.String(),
		From:            from.Format(utils.DateLayout),
		To:              to.Format(utils.DateLayout),
		Nights:          len(nights),
		Available:       room.IsActive && maxRooms > 0,
		MaxRoomsCanBook: maxRooms,
	}, nil
}

func (s *inventoryService) GetInventoryByRange(ctx context.Context, roomID string, req *request.DateRangeRequest) ([]response.InventoryResponse, error) {
	id, from, to, err := s.parseRange(roomID, req)
	if err != nil {
		return nil, err
	}

	inventories, err := s.repo.Inventory.FindByRange(ctx, id, utils.BuildNights(from, to))
	if err != nil {
		return nil, fmt.Errorf("get inventory by range: %w", err)
	}

	result := make([]response.InventoryResponse, 0, len(inventories))
	for _, inv := range inventories {
		result = append(result, response.InventoryToResponse(inv))
	}

	return result, nil
}

func (s *inventoryService) GetInventoryByDate(ctx context.Context, roomID, date string) (*response.InventoryResponse, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid room ID %s", ErrInvalidInput, roomID)
	}

	night, err := utils.ParseDateOnly(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	inv, err := s.repo.Inventory.FindByDate(ctx, id, night)
	if err != nil {
		return nil, fmt.Errorf("get inventory by date: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: no inventory for room %s on %s", ErrNotFound, roomID, night.Format(utils.DateLayout))
	}

	resp := response.InventoryToResponse(inv)
	return &resp, nil
}

func (s *inventoryService) UpdateInventoryTotal(ctx context.Context, inventoryID string, req *request.UpdateInventoryRequest) (*response.InventoryResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(inventoryID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid inventory ID %s", ErrInvalidInput, inventoryID)
	}

	inv, err := s.repo.Inventory.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: inventory %s", ErrNotFound, inventoryID)
	}

	room, err := s.findRoom(ctx, inv.RoomID)
	if err != nil {
		return nil, err
	}

	if req.Total > room.TotalRooms {
		return nil, fmt.Errorf("%w: total %d exceeds the room's %d units", ErrInvalidInput, req.Total, room.TotalRooms)
	}
	if req.Total < inv.Booked() {
		return nil, fmt.Errorf("%w: total %d is below the %d units already booked", ErrInvalidInput, req.Total, inv.Booked())
	}

	updated, err := s.repo.Inventory.UpdateTotal(ctx, id, req.Total)
	if err != nil {
		return nil, fmt.Errorf("update inventory: %w", err)
	}
	if updated == nil {
		// A booking landed between the read and the write.
		return nil, fmt.Errorf("%w: inventory %s changed, retry", ErrConflict, inventoryID)
	}

	s.log.Info("Inventory total updated",
		zap.String("inventory_id", inventoryID),
		zap.Int("total", updated.Total),
		zap.Int("available", updated.Available),
	)

	resp := response.InventoryToResponse(updated)
	return &resp, nil
}

func (s *inventoryService) DeleteInventory(ctx context.Context, inventoryID string) error {
	id, err := uuid.Parse(inventoryID)
	if err != nil {
		return fmt.Errorf("%w: invalid inventory ID %s", ErrInvalidInput, inventoryID)
	}

	inv, err := s.repo.Inventory.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	if inv == nil {
		return nil
	}

	if inv.Booked() > 0 {
		return fmt.Errorf("%w: %d units are booked on %s", ErrConflict, inv.Booked(), inv.Date.Format(utils.DateLayout))
	}

	deleted, err := s.repo.Inventory.DeleteUnbooked(ctx, id)
	if err != nil {
		return fmt.Errorf("delete inventory: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: inventory %s changed, retry", ErrConflict, inventoryID)
	}

	return nil
}

func (s *inventoryService) CountFutureInventories(ctx context.Context, roomID string) (*response.FutureCountResponse, error) {
	id, err := uuid.Parse(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid room ID %s", ErrInvalidInput, roomID)
	}

	count, err := s.repo.Inventory.CountFrom(ctx, id, utils.NormalizeDate(s.now()))
	if err != nil {
		return nil, fmt.Errorf("count future inventories: %w", err)
	}

	return &response.FutureCountResponse{RoomID: id.String(), Count: count}, nil
}
