package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newInventoryRepo(t *testing.T) (InventoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewInventoryRepository(mock, zap.NewNop()), mock
}

func twoNights() []time.Time {
	first := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	return []time.Time{first, first.AddDate(0, 0, 1)}
}

func TestEnsureNightsInsertsMissingRows(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	roomID := uuid.New()
	nights := twoNights()

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (room_id, date) DO NOTHING")).
		WithArgs(roomID, 3, nights).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	created, err := repo.EnsureNights(context.Background(), roomID, nights, 3)
	require.NoError(t, err)
	assert.EqualValues(t, 2, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureNightsToleratesUniqueViolation(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	roomID := uuid.New()

	mock.ExpectExec("INSERT INTO room_inventories").
		WithArgs(roomID, 3, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	created, err := repo.EnsureNights(context.Background(), roomID, twoNights(), 3)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureNightsSkipsEmptyRange(t *testing.T) {
	repo, mock := newInventoryRepo(t)

	created, err := repo.EnsureNights(context.Background(), uuid.New(), nil, 3)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveIsConditionalOnAvailability(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	roomID := uuid.New()
	nights := twoNights()

	mock.ExpectExec(regexp.QuoteMeta("SET available = available - $3")+`.*`+regexp.QuoteMeta("AND available >= $3")).
		WithArgs(roomID, nights, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	affected, err := repo.Reserve(context.Background(), roomID, nights, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected, "caller decides whether a short count is a failure")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseIncrementsEveryNight(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	roomID := uuid.New()
	nights := twoNights()

	mock.ExpectExec(regexp.QuoteMeta("SET available = available + $3")).
		WithArgs(roomID, nights, 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	affected, err := repo.Release(context.Background(), roomID, nights, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByRangeScansRows(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	roomID := uuid.New()
	nights := twoNights()
	now := time.Now()

	rows := pgxmock.NewRows([]string{"id", "room_id", "date", "total", "available", "created_at", "updated_at"}).
		AddRow(uuid.New(), roomID, nights[0], 3, 1, now, now).
		AddRow(uuid.New(), roomID, nights[1], 3, 3, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("date = ANY($2::date[])")).
		WithArgs(roomID, nights).
		WillReturnRows(rows)

	inventories, err := repo.FindByRange(context.Background(), roomID, nights)
	require.NoError(t, err)
	require.Len(t, inventories, 2)
	assert.Equal(t, 2, inventories[0].Booked())
	assert.Equal(t, 3, inventories[1].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTotalBelowBookedReturnsNil(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND $2 >= total - available")).
		WithArgs(id, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id", "room_id", "date", "total", "available", "created_at", "updated_at"}))

	inv, err := repo.UpdateTotal(context.Background(), id, 1)
	require.NoError(t, err)
	assert.Nil(t, inv)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUnbookedReportsBlockedRow(t *testing.T) {
	repo, mock := newInventoryRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND available = total")).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.DeleteUnbooked(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
