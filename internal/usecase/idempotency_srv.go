package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLength = 255

// IdempotencyRequest scopes a client key to one user and one endpoint.
type IdempotencyRequest struct {
	Key         string
	UserID      string
	Endpoint    string
	RequestHash string
}

// IdempotencyService runs a mutating handler at most once per request scope.
type IdempotencyService interface {
	// Execute returns the stored response of a completed request, rejects a
	// duplicate that is still running, and otherwise runs handler and stores
	// its JSON result. A failed handler leaves the key free for a retry.
	Execute(ctx context.Context, req IdempotencyRequest, handler func(ctx context.Context) (any, error)) (json.RawMessage, error)
}

type idempotencyService struct {
	repo       *repository.Repository
	staleAfter time.Duration
	now        func() time.Time
	log        *zap.Logger
}

func NewIdempotencyService(repo *repository.Repository, staleAfter time.Duration, log *zap.Logger) IdempotencyService {
	return newIdempotencyService(repo, staleAfter, time.Now, log)
}

func newIdempotencyService(repo *repository.Repository, staleAfter time.Duration, now func() time.Time, log *zap.Logger) *idempotencyService {
	return &idempotencyService{
		repo:       repo,
		staleAfter: staleAfter,
		now:        now,
		log:        log.With(zap.String("service", "idempotency")),
	}
}

func (s *idempotencyService) Execute(ctx context.Context, req IdempotencyRequest, handler func(ctx context.Context) (any, error)) (json.RawMessage, error) {
	if req.Key == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", ErrInvalidInput)
	}
	if len(req.Key) > maxIdempotencyKeyLength {
		return nil, fmt.Errorf("%w: idempotency key is too long", ErrInvalidInput)
	}

	log := s.log.With(zap.String("key", req.Key), zap.String("endpoint", req.Endpoint))

	// Two rounds cover a record deleted by a failed attempt between our
	// insert and our lookup.
	for round := 0; round < 2; round++ {
		now := s.now()
		attempt := uuid.New()
		acquired, err := s.repo.Idempotency.Acquire(ctx, &entity.IdempotencyRecord{
			BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Attempt:      attempt,
			Key:          req.Key,
			UserID:       req.UserID,
			Endpoint:     req.Endpoint,
			Status:       entity.IdempotencyProcessing,
			RequestHash:  req.RequestHash,
		})
		if err != nil {
			return nil, fmt.Errorf("acquire idempotency key: %w", err)
		}
		if acquired {
			return s.run(ctx, req, attempt, handler, log)
		}

		existing, err := s.repo.Idempotency.Find(ctx, req.Key, req.UserID, req.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("load idempotency key: %w", err)
		}
		if existing == nil {
			continue
		}

		if existing.RequestHash != req.RequestHash {
			log.Warn("Idempotency key reused with a different payload")
			return nil, fmt.Errorf("%w: idempotency key was used for a different request", ErrConflict)
		}

		if existing.Status == entity.IdempotencyCompleted {
			log.Debug("Replaying stored response")
			return json.RawMessage(existing.Response), nil
		}

		staleBefore := s.now().Add(-s.staleAfter)
		if s.staleAfter > 0 && existing.UpdatedAt.Before(staleBefore) {
			taken, err := s.repo.Idempotency.TakeOver(ctx, req.Key, req.UserID, req.Endpoint, staleBefore, req.RequestHash, attempt)
			if err != nil {
				return nil, fmt.Errorf("take over idempotency key: %w", err)
			}
			if taken {
				log.Info("Taking over abandoned request", zap.Time("last_update", existing.UpdatedAt))
				return s.run(ctx, req, attempt, handler, log)
			}
		}

		return nil, fmt.Errorf("%w: a request with this idempotency key is still processing", ErrRequestInFlight)
	}

	return nil, fmt.Errorf("%w: idempotency key is being retried concurrently", ErrRequestInFlight)
}

// run executes handler as attempt. Writes back to the record are fenced on
// attempt, so a slow run that lost its record to a takeover changes nothing.
func (s *idempotencyService) run(ctx context.Context, req IdempotencyRequest, attempt uuid.UUID, handler func(ctx context.Context) (any, error), log *zap.Logger) (json.RawMessage, error) {
	result, err := handler(ctx)
	if err == nil {
		var raw []byte
		if raw, err = json.Marshal(result); err == nil {
			stored, err := s.repo.Idempotency.Complete(ctx, req.Key, req.UserID, req.Endpoint, attempt, raw)
			if err != nil {
				// The work is done. The record stays PROCESSING until staleAfter.
				log.Error("Failed to store idempotent response", zap.Error(err))
			} else if !stored {
				log.Warn("Request was taken over before it finished, response not stored")
			}
			return raw, nil
		}
		err = fmt.Errorf("encode idempotent response: %w", err)
	}

	// Free the key for a retry. The request context may be the thing that failed.
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if delErr := s.repo.Idempotency.Delete(releaseCtx, req.Key, req.UserID, req.Endpoint, attempt); delErr != nil {
		log.Error("Failed to release idempotency key", zap.Error(delErr))
	}
	return nil, err
}
