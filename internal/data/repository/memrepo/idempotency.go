package memrepo

import (
	"context"
	"time"

	"hotel-booking/internal/data/entity"

	"github.com/google/uuid"
)

type idempotencyRepository struct {
	s *Store
}

func (r *idempotencyRepository) Acquire(ctx context.Context, record *entity.IdempotencyRecord) (bool, error) {
	defer r.s.lock(ctx)()

	k := idempotencyKey{record.Key, record.UserID, record.Endpoint}
	if _, ok := r.s.data.idempotency[k]; ok {
		return false, nil
	}
	r.s.data.idempotency[k] = *record
	return true, nil
}

func (r *idempotencyRepository) Find(ctx context.Context, key, userID, endpoint string) (*entity.IdempotencyRecord, error) {
	defer r.s.lock(ctx)()

	rec, ok := r.s.data.idempotency[idempotencyKey{key, userID, endpoint}]
	if !ok {
		return nil, nil
	}
	rec.Response = append([]byte(nil), rec.Response...)
	return &rec, nil
}

func owns(rec entity.IdempotencyRecord, attempt uuid.UUID) bool {
	return rec.Status == entity.IdempotencyProcessing && rec.Attempt == attempt
}

func (r *idempotencyRepository) Complete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID, response []byte) (bool, error) {
	defer r.s.lock(ctx)()

	k := idempotencyKey{key, userID, endpoint}
	rec, ok := r.s.data.idempotency[k]
	if !ok || !owns(rec, attempt) {
		return false, nil
	}
	rec.Status = entity.IdempotencyCompleted
	rec.Response = append([]byte(nil), response...)
	rec.UpdatedAt = r.s.now()
	r.s.data.idempotency[k] = rec
	return true, nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, key, userID, endpoint string, attempt uuid.UUID) error {
	defer r.s.lock(ctx)()

	k := idempotencyKey{key, userID, endpoint}
	if rec, ok := r.s.data.idempotency[k]; ok && owns(rec, attempt) {
		delete(r.s.data.idempotency, k)
	}
	return nil
}

func (r *idempotencyRepository) TakeOver(ctx context.Context, key, userID, endpoint string, staleBefore time.Time, requestHash string, attempt uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()

	k := idempotencyKey{key, userID, endpoint}
	rec, ok := r.s.data.idempotency[k]
	if !ok || rec.Status != entity.IdempotencyProcessing || !rec.UpdatedAt.Before(staleBefore) {
		return false, nil
	}
	rec.RequestHash = requestHash
	rec.Attempt = attempt
	rec.UpdatedAt = r.s.now()
	r.s.data.idempotency[k] = rec
	return true, nil
}
