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

// IdempotencyRepository stores request records unique on (key, user, endpoint).
type IdempotencyRepository interface {
	// Acquire inserts a PROCESSING record. It reports false when a record
	// for the same triple already exists.
	Acquire(ctx context.Context, record *entity.IdempotencyRecord) (bool, error)
	Find(ctx context.Context, key, userID, endpoint string) (*entity.IdempotencyRecord, error)
	// Complete and Delete only touch a PROCESSING record still owned by
	// attempt. Complete reports false when another attempt took it over.
	Complete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID, response []byte) (bool, error)
	Delete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID) error
	// TakeOver hands a PROCESSING record last touched before staleBefore to
	// attempt. Only one of several concurrent callers gets true.
	TakeOver(ctx context.Context, key, userID, endpoint string, staleBefore time.Time, requestHash string, attempt uuid.UUID) (bool, error)
}

type idempotencyRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewIdempotencyRepository(db database.PgxIface, log *zap.Logger) IdempotencyRepository {
	return &idempotencyRepository{
		db:  db,
		log: log.With(zap.String("repository", "idempotency")),
	}
}

func (r *idempotencyRepository) Acquire(ctx context.Context, record *entity.IdempotencyRecord) (bool, error) {
	query := `
		INSERT INTO idempotency_requests (id, attempt, key, user_id, endpoint, status, request_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (key, user_id, endpoint) DO NOTHING
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query,
		record.ID,
		record.Attempt,
		record.Key,
		record.UserID,
		record.Endpoint,
		record.Status,
		record.RequestHash,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to acquire idempotency key",
			zap.Error(err),
			zap.String("key", record.Key),
			zap.String("endpoint", record.Endpoint),
		)
		return false, fmt.Errorf("acquire idempotency key %s: %w", record.Key, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *idempotencyRepository) Find(ctx context.Context, key, userID, endpoint string) (*entity.IdempotencyRecord, error) {
	query := `
		SELECT id, attempt, key, user_id, endpoint, status, request_hash, response, created_at, updated_at
		FROM idempotency_requests
		WHERE key = $1 AND user_id = $2 AND endpoint = $3
	`

	var record entity.IdempotencyRecord
	err := database.Conn(ctx, r.db).QueryRow(ctx, query, key, userID, endpoint).Scan(
		&record.ID,
		&record.Attempt,
		&record.Key,
		&record.UserID,
		&record.Endpoint,
		&record.Status,
		&record.RequestHash,
		&record.Response,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find idempotency record",
			zap.Error(err),
			zap.String("key", key),
			zap.String("endpoint", endpoint),
		)
		return nil, fmt.Errorf("find idempotency key %s: %w", key, err)
	}

	return &record, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID, response []byte) (bool, error) {
	query := `
		UPDATE idempotency_requests
		SET status = 'COMPLETED', response = $5, updated_at = NOW()
		WHERE key = $1 AND user_id = $2 AND endpoint = $3
		  AND attempt = $4 AND status = 'PROCESSING'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, key, userID, endpoint, attempt, response)
	if err != nil {
		r.log.Error("Failed to complete idempotency record",
			zap.Error(err),
			zap.String("key", key),
			zap.String("endpoint", endpoint),
		)
		return false, fmt.Errorf("complete idempotency key %s: %w", key, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID) error {
	query := `
		DELETE FROM idempotency_requests
		WHERE key = $1 AND user_id = $2 AND endpoint = $3
		  AND attempt = $4 AND status = 'PROCESSING'
	`

	if _, err := database.Conn(ctx, r.db).Exec(ctx, query, key, userID, endpoint, attempt); err != nil {
		r.log.Error("Failed to release idempotency record",
			zap.Error(err),
			zap.String("key", key),
			zap.String("endpoint", endpoint),
		)
		return fmt.Errorf("delete idempotency key %s: %w", key, err)
	}

	return nil
}

func (r *idempotencyRepository) TakeOver(ctx context.Context, key, userID, endpoint string, staleBefore time.Time, requestHash string, attempt uuid.UUID) (bool, error) {
	query := `
		UPDATE idempotency_requests
		SET request_hash = $5, attempt = $6, updated_at = NOW()
		WHERE key = $1 AND user_id = $2 AND endpoint = $3
		  AND status = 'PROCESSING' AND updated_at < $4
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, key, userID, endpoint, staleBefore, requestHash, attempt)
	if err != nil {
		r.log.Error("Failed to take over idempotency record",
			zap.Error(err),
			zap.String("key", key),
			zap.String("endpoint", endpoint),
		)
		return false, fmt.Errorf("take over idempotency key %s: %w", key, err)
	}

	return result.RowsAffected() == 1, nil
}
