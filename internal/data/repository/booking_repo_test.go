package repository

import (
	"context"
	"regexp"
	"testing"

	"hotel-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTransitionComparesCurrentStatus(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepository(mock, zap.NewNop())
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WithArgs(id, entity.BookingStatusPending, entity.BookingStatusCancelled, "EXPIRED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $1 AND status = $2")).
		WithArgs(id, entity.BookingStatusPending, entity.BookingStatusCancelled, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.Transition(context.Background(), id, entity.BookingStatusPending, entity.BookingStatusCancelled, entity.BookingPaymentExpired)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Transition(context.Background(), id, entity.BookingStatusPending, entity.BookingStatusCancelled, "")
	require.NoError(t, err)
	assert.False(t, ok, "a second transition out of PENDING must lose")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserBookingWhereAddsFilters(t *testing.T) {
	userID := uuid.New()
	status := entity.BookingStatusConfirmed
	pay := entity.BookingPaymentPaid

	where, args := userBookingWhere(userID, BookingFilter{Status: &status, PaymentStatus: &pay})

	assert.Contains(t, where, "payment_status <> 'EXPIRED'")
	assert.Contains(t, where, "status = $2")
	assert.Contains(t, where, "payment_status = $3")
	assert.Equal(t, []any{userID, status, pay}, args)
}

func TestFindByIDForUpdateLocksTheRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewBookingRepository(mock, zap.NewNop())
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = $1 FOR UPDATE")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "order_id", "booking_type", "status", "payment_status", "amount", "currency",
			"user_id", "rooms", "bank_receipt", "created_at", "updated_at",
		}))

	booking, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, booking, "a missing row is not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
