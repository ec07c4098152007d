package memrepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
)

type inventoryRepository struct {
	s *Store
}

func (r *inventoryRepository) EnsureNights(ctx context.Context, roomID uuid.UUID, nights []time.Time, total int) (int64, error) {
	defer r.s.lock(ctx)()

	var created int64
	now := r.s.now()
	for _, night := range nights {
		key := nightKey(roomID, night)
		if _, ok := r.s.data.nights[key]; ok {
			continue
		}
		inv := entity.RoomInventory{
			BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			RoomID:       roomID,
			Date:         utils.NormalizeDate(night),
			Total:        total,
			Available:    total,
		}
		r.s.data.inventories[inv.ID] = inv
		r.s.data.nights[key] = inv.ID
		created++
	}

	return created, nil
}

func (r *inventoryRepository) FindByRange(ctx context.Context, roomID uuid.UUID, nights []time.Time) ([]*entity.RoomInventory, error) {
	defer r.s.lock(ctx)()

	var out []*entity.RoomInventory
	for _, night := range nights {
		if id, ok := r.s.data.nights[nightKey(roomID, night)]; ok {
			inv := r.s.data.inventories[id]
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RoomInventory, error) {
	defer r.s.lock(ctx)()

	inv, ok := r.s.data.inventories[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (r *inventoryRepository) FindByDate(ctx context.Context, roomID uuid.UUID, night time.Time) (*entity.RoomInventory, error) {
	defer r.s.lock(ctx)()

	id, ok := r.s.data.nights[nightKey(roomID, night)]
	if !ok {
		return nil, nil
	}
	inv := r.s.data.inventories[id]
	return &inv, nil
}

func (r *inventoryRepository) CountAvailableNights(ctx context.Context, roomID uuid.UUID, nights []time.Time) (int, error) {
	defer r.s.lock(ctx)()

	count := 0
	for _, night := range nights {
		if id, ok := r.s.data.nights[nightKey(roomID, night)]; ok && r.s.data.inventories[id].Available > 0 {
			count++
		}
	}
	return count, nil
}

func (r *inventoryRepository) CountFrom(ctx context.Context, roomID uuid.UUID, from time.Time) (int64, error) {
	defer r.s.lock(ctx)()

	from = utils.NormalizeDate(from)
	var count int64
	for _, inv := range r.s.data.inventories {
		if inv.RoomID == roomID && !inv.Date.Before(from) {
			count++
		}
	}
	return count, nil
}

func (r *inventoryRepository) Reserve(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error) {
	defer r.s.lock(ctx)()

	var affected int64
	for _, night := range nights {
		id, ok := r.s.data.nights[nightKey(roomID, night)]
		if !ok {
			continue
		}
		inv := r.s.data.inventories[id]
		if inv.Available < quantity {
			continue
		}
		inv.Available -= quantity
		inv.UpdatedAt = r.s.now()
		r.s.data.inventories[id] = inv
		affected++
	}
	return affected, nil
}

func (r *inventoryRepository) Release(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error) {
	defer r.s.lock(ctx)()

	// Validate first so a constraint failure changes nothing, like a failed statement.
	for _, night := range nights {
		if id, ok := r.s.data.nights[nightKey(roomID, night)]; ok {
			inv := r.s.data.inventories[id]
			if inv.Available+quantity > inv.Total {
				return 0, fmt.Errorf("release inventory for room %s: available would exceed total on %s",
					roomID, inv.Date.Format(utils.DateLayout))
			}
		}
	}

	var affected int64
	for _, night := range nights {
		id, ok := r.s.data.nights[nightKey(roomID, night)]
		if !ok {
			continue
		}
		inv := r.s.data.inventories[id]
		inv.Available += quantity
		inv.UpdatedAt = r.s.now()
		r.s.data.inventories[id] = inv
		affected++
	}
	return affected, nil
}

func (r *inventoryRepository) UpdateTotal(ctx context.Context, id uuid.UUID, newTotal int) (*entity.RoomInventory, error) {
	defer r.s.lock(ctx)()

	inv, ok := r.s.data.inventories[id]
	if !ok || newTotal < inv.Booked() {
		return nil, nil
	}
	inv.Available = newTotal - inv.Booked()
	inv.Total = newTotal
	inv.UpdatedAt = r.s.now()
	r.s.data.inventories[id] = inv
	return &inv, nil
}

func (r *inventoryRepository) DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()

	inv, ok := r.s.data.inventories[id]
	if !ok || inv.Available != inv.Total {
		return false, nil
	}
	delete(r.s.data.inventories, id)
	delete(r.s.data.nights, nightKey(inv.RoomID, inv.Date))
	return true, nil
}
