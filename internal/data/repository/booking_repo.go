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
	"go.uber.org/zap"
)

// BookingFilter narrows user booking listings. Nil fields match everything.
type BookingFilter struct {
	Status        *entity.BookingStatus
	PaymentStatus *entity.BookingPaymentStatus
	Limit         int
	Offset        int
}

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate reads the current row and locks it until the
	// transaction ends. Must run inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, filter BookingFilter) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID, filter BookingFilter) (int64, error)

	// Transition moves a booking from one status to another only while it is
	// still in from. An empty pay keeps the current payment status.
	Transition(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, pay entity.BookingPaymentStatus) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingPaymentStatus) (bool, error)
	// UpdateRooms rewrites the stay of a pending, unpaid booking.
	UpdateRooms(ctx context.Context, id uuid.UUID, rooms []entity.BookedRoom, amount int64) (bool, error)
	AttachReceipt(ctx context.Context, id uuid.UUID, receipt entity.BankReceipt) (bool, error)
	VerifyReceipt(ctx context.Context, id uuid.UUID) (bool, error)

	// Business queries
	FindExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, order_id, booking_type, status, payment_status, amount, currency,
	user_id, rooms, bank_receipt, created_at, updated_at`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var (
		booking entity.Booking
		rooms   []byte
		receipt []byte
	)

	err := row.Scan(
		&booking.ID,
		&booking.OrderID,
		&booking.BookingType,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.Amount,
		&booking.Currency,
		&booking.UserID,
		&rooms,
		&receipt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rooms) > 0 {
		if err := json.Unmarshal(rooms, &booking.Rooms); err != nil {
			return nil, fmt.Errorf("decode rooms: %w", err)
		}
	}
	if len(receipt) > 0 {
		booking.Receipt = &entity.BankReceipt{}
		if err := json.Unmarshal(receipt, booking.Receipt); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
	}

	return &booking, nil
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	rooms, err := json.Marshal(booking.Rooms)
	if err != nil {
		return fmt.Errorf("encode rooms for booking %s: %w", booking.OrderID, err)
	}

	var receipt []byte
	if booking.Receipt != nil {
		if receipt, err = json.Marshal(booking.Receipt); err != nil {
			return fmt.Errorf("encode receipt for booking %s: %w", booking.OrderID, err)
		}
	}

	query := `
		INSERT INTO bookings (id, order_id, booking_type, status, payment_status, amount, currency,
			user_id, rooms, bank_receipt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = database.Conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.OrderID,
		booking.BookingType,
		booking.Status,
		booking.PaymentStatus,
		booking.Amount,
		booking.Currency,
		booking.UserID,
		rooms,
		receipt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("order_id", booking.OrderID),
		)
		return fmt.Errorf("create booking %s: %w", booking.OrderID, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to lock booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("lock booking %s: %w", id.String(), err)
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserAndID(ctx context.Context, userID, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 AND user_id = $2`

	booking, err := scanBooking(database.Conn(ctx, r.db).QueryRow(ctx, query, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find user booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find booking %s for user %s: %w", id.String(), userID.String(), err)
	}

	return booking, nil
}

// userBookingWhere builds the shared WHERE clause for user listings.
// Expired bookings are hidden from the owner.
func userBookingWhere(userID uuid.UUID, filter BookingFilter) (string, []any) {
	where := `WHERE user_id = $1 AND payment_status <> 'EXPIRED'`
	args := []any{userID}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.PaymentStatus != nil {
		args = append(args, *filter.PaymentStatus)
		where += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}

	return where, args
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, filter BookingFilter) ([]*entity.Booking, error) {
	where, args := userBookingWhere(userID, filter)
	args = append(args, filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)-1, len(args))

	bookings, err := r.queryBookings(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to find bookings by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings for user %s: %w", userID.String(), err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID, filter BookingFilter) (int64, error) {
	where, args := userBookingWhere(userID, filter)
	query := `SELECT COUNT(*) FROM bookings ` + where

	var count int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings for user %s: %w", userID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) Transition(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, pay entity.BookingPaymentStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET status = $3, payment_status = COALESCE(NULLIF($4, ''), payment_status), updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, from, to, string(pay))
	if err != nil {
		r.log.Error("Failed to transition booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition booking %s to %s: %w", id.String(), to, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingPaymentStatus) (bool, error) {
	query := `
		UPDATE bookings
		SET payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $2
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update booking payment status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("payment_status", string(to)),
		)
		return false, fmt.Errorf("update payment status of booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdateRooms(ctx context.Context, id uuid.UUID, rooms []entity.BookedRoom, amount int64) (bool, error) {
	raw, err := json.Marshal(rooms)
	if err != nil {
		return false, fmt.Errorf("encode rooms for booking %s: %w", id.String(), err)
	}

	query := `
		UPDATE bookings
		SET rooms = $2, amount = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING' AND payment_status <> 'PAID'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, raw, amount)
	if err != nil {
		r.log.Error("Failed to update booking rooms",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("update rooms of booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) AttachReceipt(ctx context.Context, id uuid.UUID, receipt entity.BankReceipt) (bool, error) {
	raw, err := json.Marshal(receipt)
	if err != nil {
		return false, fmt.Errorf("encode receipt for booking %s: %w", id.String(), err)
	}

	query := `
		UPDATE bookings
		SET bank_receipt = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING' AND payment_status = 'UNPAID'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, raw)
	if err != nil {
		r.log.Error("Failed to attach receipt",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("attach receipt to booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) VerifyReceipt(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET bank_receipt = jsonb_set(bank_receipt, '{verified}', 'true'),
		    status = 'CONFIRMED', payment_status = 'PAID', updated_at = NOW()
		WHERE id = $1 AND bank_receipt IS NOT NULL AND status = 'PENDING'
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to verify receipt",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("verify receipt of booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) FindExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'PENDING' AND payment_status <> 'PAID' AND created_at < $1
		ORDER BY created_at
		LIMIT $2`

	bookings, err := r.queryBookings(ctx, query, before, limit)
	if err != nil {
		r.log.Error("Failed to find expired pending bookings", zap.Error(err))
		return nil, fmt.Errorf("find pending bookings created before %s: %w", before.Format(time.RFC3339), err)
	}

	return bookings, nil
}
