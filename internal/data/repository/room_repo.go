package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RoomRepository is the room policy lookup the booking core consumes from
// the catalog.
type RoomRepository interface {
	FindPolicy(ctx context.Context, roomID uuid.UUID) (*entity.RoomPolicy, error)
}

type roomRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRoomRepository(db database.PgxIface, log *zap.Logger) RoomRepository {
	return &roomRepository{
		db:  db,
		log: log.With(zap.String("repository", "room")),
	}
}

func (r *roomRepository) FindPolicy(ctx context.Context, roomID uuid.UUID) (*entity.RoomPolicy, error) {
	query := `
		SELECT id, total_rooms, min_nights, max_nights, max_adults, max_children,
		       base_price, currency, is_active
		FROM rooms
		WHERE id = $1
	`

	var room entity.RoomPolicy
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, roomID).Scan(
		&room.ID,
		&room.TotalRooms,
		&room.MinNights,
		&room.MaxNights,
		&room.MaxAdults,
		&room.MaxChildren,
		&room.BasePrice,
		&room.Currency,
		&room.IsActive,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find room policy",
			zap.Error(err),
			zap.String("room_id", roomID.String()),
		)
		return nil, fmt.Errorf("find room policy %s: %w", roomID.String(), err)
	}

	return &room, nil
}

// cachedRoomRepository is a cache-aside decorator over RoomRepository.
// Policy writes happen in the catalog, so entries simply expire after ttl.
type cachedRoomRepository struct {
	next RoomRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  *zap.Logger
}

// NewCachedRoomRepository returns next unchanged when rdb is nil.
func NewCachedRoomRepository(next RoomRepository, rdb *redis.Client, ttl time.Duration, log *zap.Logger) RoomRepository {
	if rdb == nil || ttl <= 0 {
		return next
	}

	return &cachedRoomRepository{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With(zap.String("repository", "room_cache")),
	}
}

func roomCacheKey(roomID uuid.UUID) string {
	return "room:policy:" + roomID.String()
}

func (r *cachedRoomRepository) FindPolicy(ctx context.Context, roomID uuid.UUID) (*entity.RoomPolicy, error) {
	key := roomCacheKey(roomID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var room entity.RoomPolicy
		if err := json.Unmarshal(raw, &room); err == nil {
			return &room, nil
		}
		r.log.Warn("Dropping undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		// Cache trouble must not block bookings.
		r.log.Warn("Room cache read failed", zap.Error(err), zap.String("key", key))
	}

	room, err := r.next.FindPolicy(ctx, roomID)
	if err != nil || room == nil {
		return room, err
	}

	if raw, err := json.Marshal(room); err == nil {
		if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.log.Warn("Room cache write failed", zap.Error(err), zap.String("key", key))
		}
	}

	return room, nil
}
