package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// InventoryRepository is the per-night room ledger. Every capacity change
// is a single conditional statement so concurrent writers cannot push
// available below zero.
type InventoryRepository interface {
	// EnsureNights inserts missing (room, night) rows seeded with total.
	// Existing rows are left untouched. Returns the number of rows created.
	EnsureNights(ctx context.Context, roomID uuid.UUID, nights []time.Time, total int) (int64, error)
	FindByRange(ctx context.Context, roomID uuid.UUID, nights []time.Time) ([]*entity.RoomInventory, error)
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RoomInventory, error)
	FindByDate(ctx context.Context, roomID uuid.UUID, night time.Time) (*entity.RoomInventory, error)
	CountAvailableNights(ctx context.Context, roomID uuid.UUID, nights []time.Time) (int, error)
	CountFrom(ctx context.Context, roomID uuid.UUID, from time.Time) (int64, error)

	// Reserve decrements available by quantity on every night that still
	// has at least quantity left. Returns the number of nights decremented.
	Reserve(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error)
	// Release increments available by quantity on every listed night.
	Release(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error)

	// UpdateTotal resizes a night while keeping its booked count. It affects
	// nothing when newTotal is below the booked count.
	UpdateTotal(ctx context.Context, id uuid.UUID, newTotal int) (*entity.RoomInventory, error)
	// DeleteUnbooked removes a night only when nothing is booked on it.
	DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error)
}

type inventoryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewInventoryRepository(db database.PgxIface, log *zap.Logger) InventoryRepository {
	return &inventoryRepository{
		db:  db,
		log: log.With(zap.String("repository", "inventory")),
	}
}

const inventoryColumns = `id, room_id, date, total, available, created_at, updated_at`

func scanInventory(row pgx.Row) (*entity.RoomInventory, error) {
	var inv entity.RoomInventory
	err := row.Scan(
		&inv.ID,
		&inv.RoomID,
		&inv.Date,
		&inv.Total,
		&inv.Available,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Date = inv.Date.UTC()
	return &inv, nil
}

func (r *inventoryRepository) EnsureNights(ctx context.Context, roomID uuid.UUID, nights []time.Time, total int) (int64, error) {
	if len(nights) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO room_inventories (id, room_id, date, total, available, created_at, updated_at)
		SELECT gen_random_uuid(), $1, night, $2, $2, NOW(), NOW()
		FROM unnest($3::date[]) AS night
		ON CONFLICT (room_id, date) DO NOTHING
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, roomID, total, nights)
	if err != nil {
		// A racing insert that slipped past ON CONFLICT still means the row exists.
		if IsUniqueViolation(err) {
			return 0, nil
		}
		r.log.Error("Failed to ensure inventory nights",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.Int("nights", len(nights)),
		)
		return 0, fmt.Errorf("ensure inventory for room %s: %w", roomID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *inventoryRepository) FindByRange(ctx context.Context, roomID uuid.UUID, nights []time.Time) ([]*entity.RoomInventory, error) {
	query := `
		SELECT ` + inventoryColumns + `
		FROM room_inventories
		WHERE room_id = $1 AND date = ANY($2::date[])
		ORDER BY date
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, roomID, nights)
	if err != nil {
		r.log.Error("Failed to find inventory by range",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find inventory for room %s: %w", roomID.String(), err)
	}
	defer rows.Close()

	var inventories []*entity.RoomInventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			r.log.Error("Failed to scan inventory row", zap.Error(err))
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		inventories = append(inventories, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}

	return inventories, nil
}

func (r *inventoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RoomInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM room_inventories WHERE id = $1`

	inv, err := scanInventory(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find inventory by ID",
			zap.Error(err),
			zap.String("inventory_id", id.String()),
		)
		return nil, fmt.Errorf("find inventory by ID %s: %w", id.String(), err)
	}

	return inv, nil
}

func (r *inventoryRepository) FindByDate(ctx context.Context, roomID uuid.UUID, night time.Time) (*entity.RoomInventory, error) {
	query := `SELECT ` + inventoryColumns + ` FROM room_inventories WHERE room_id = $1 AND date = $2::date`

	inv, err := scanInventory(database.Conn(ctx, r.db).QueryRow(ctx, query, roomID, night))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find inventory by date",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.Time("date", night),
		)
		return nil, fmt.Errorf("find inventory for room %s on %s: %w", roomID.String(), night.Format("2006-01-02"), err)
	}

	return inv, nil
}

func (r *inventoryRepository) CountAvailableNights(ctx context.Context, roomID uuid.UUID, nights []time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM room_inventories
		WHERE room_id = $1 AND date = ANY($2::date[]) AND available > 0
	`

	var count int
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, roomID, nights).Scan(&count); err != nil {
		r.log.Error("Failed to count available nights",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return 0, fmt.Errorf("count available nights for room %s: %w", roomID.String(), err)
	}

	return count, nil
}

func (r *inventoryRepository) CountFrom(ctx context.Context, roomID uuid.UUID, from time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM room_inventories WHERE room_id = $1 AND date >= $2::date`

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, roomID, from).Scan(&count); err != nil {
		r.log.Error("Failed to count future inventories",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return 0, fmt.Errorf("count inventories for room %s: %w", roomID.String(), err)
	}

	return count, nil
}

func (r *inventoryRepository) Reserve(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error) {
	query := `
		UPDATE room_inventories
		SET available = available - $3, updated_at = NOW()
		WHERE room_id = $1 AND date = ANY($2::date[]) AND available >= $3
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, roomID, nights, quantity)
	if err != nil {
		r.log.Error("Failed to reserve inventory",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.Int("quantity", quantity),
		)
		return 0, fmt.Errorf("reserve inventory for room %s: %w", roomID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *inventoryRepository) Release(ctx context.Context, roomID uuid.UUID, nights []time.Time, quantity int) (int64, error) {
	query := `
		UPDATE room_inventories
		SET available = available + $3, updated_at = NOW()
		WHERE room_id = $1 AND date = ANY($2::date[])
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, roomID, nights, quantity)
	if err != nil {
		r.log.Error("Failed to release inventory",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
			zap.Int("quantity", quantity),
		)
		return 0, fmt.Errorf("release inventory for room %s: %w", roomID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *inventoryRepository) UpdateTotal(ctx context.Context, id uuid.UUID, newTotal int) (*entity.RoomInventory, error) {
	query := `
		UPDATE room_inventories
		SET available = $2 - (total - available), total = $2, updated_at = NOW()
		WHERE id = $1 AND $2 >= total - available
		RETURNING ` + inventoryColumns

	inv, err := scanInventory(database.Conn(ctx, r.db).QueryRow(ctx, query, id, newTotal))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to update inventory total",
			zap.Error(err),
			zap.String("inventory_id", id.String()),
			zap.Int("total", newTotal),
		)
		return nil, fmt.Errorf("update inventory %s total: %w", id.String(), err)
	}

	return inv, nil
}

func (r *inventoryRepository) DeleteUnbooked(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM room_inventories WHERE id = $1 AND available = total`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to delete inventory",
			zap.Error(err),
			zap.String("inventory_id", id.String()),
		)
		return false, fmt.Errorf("delete inventory %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return false, nil
	}

	r.log.Info("Inventory deleted", zap.String("inventory_id", id.String()))
	return true, nil
}
