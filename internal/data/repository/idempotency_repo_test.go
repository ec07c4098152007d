package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"hotel-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newIdempotencyRepo(t *testing.T) (IdempotencyRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewIdempotencyRepository(mock, zap.NewNop()), mock
}

func TestAcquireReportsExistingKey(t *testing.T) {
	repo, mock := newIdempotencyRepo(t)
	now := time.Now()
	record := &entity.IdempotencyRecord{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Attempt:      uuid.New(),
		Key:          "key-1",
		UserID:       "user-1",
		Endpoint:     "payments.create_intent",
		Status:       entity.IdempotencyProcessing,
		RequestHash:  "abc",
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (key, user_id, endpoint) DO NOTHING")).
		WithArgs(record.ID, record.Attempt, "key-1", "user-1", "payments.create_intent", entity.IdempotencyProcessing, "abc", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (key, user_id, endpoint) DO NOTHING")).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "key-1", "user-1", "payments.create_intent", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ok, err := repo.Acquire(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Acquire(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUsesFullScope(t *testing.T) {
	repo, mock := newIdempotencyRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE key = $1 AND user_id = $2 AND endpoint = $3")).
		WithArgs("key-1", "user-1", "payments.refund").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "attempt", "key", "user_id", "endpoint", "status", "request_hash", "response", "created_at", "updated_at",
		}))

	record, err := repo.Find(context.Background(), "key-1", "user-1", "payments.refund")
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTakeOverOnlyMatchesStaleProcessing(t *testing.T) {
	repo, mock := newIdempotencyRepo(t)
	staleBefore := time.Now().Add(-5 * time.Minute)
	attempt := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("AND status = 'PROCESSING' AND updated_at < $4")).
		WithArgs("key-1", "user-1", "payments.refund", staleBefore, "hash", attempt).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.TakeOver(context.Background(), "key-1", "user-1", "payments.refund", staleBefore, "hash", attempt)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteWrapsDriverError(t *testing.T) {
	repo, mock := newIdempotencyRepo(t)
	boom := errors.New("connection reset")
	attempt := uuid.New()

	mock.ExpectExec("DELETE FROM idempotency_requests").
		WithArgs("key-1", "user-1", "payments.refund", attempt).
		WillReturnError(boom)

	err := repo.Delete(context.Background(), "key-1", "user-1", "payments.refund", attempt)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIsFencedOnAttempt(t *testing.T) {
	repo, mock := newIdempotencyRepo(t)
	owner, stale := uuid.New(), uuid.New()
	body := []byte(`{"ok":true}`)

	mock.ExpectExec(regexp.QuoteMeta("AND attempt = $4 AND status = 'PROCESSING'")).
		WithArgs("key-1", "user-1", "payments.refund", stale, body).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("AND attempt = $4 AND status = 'PROCESSING'")).
		WithArgs("key-1", "user-1", "payments.refund", owner, body).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	ok, err := repo.Complete(context.Background(), "key-1", "user-1", "payments.refund", stale, body)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Complete(context.Background(), "key-1", "user-1", "payments.refund", owner, body)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
