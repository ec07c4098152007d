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

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*entity.Payment, error)
	FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
	FindRefundableByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)

	// TransitionStatus sets to only while the payment is in one of from.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.PaymentStatus, to entity.PaymentStatus) (bool, error)
	// ApplyRefund adds amount to refunded_amount when it fits the remaining
	// balance. Returns nil when the payment is not refundable for amount.
	ApplyRefund(ctx context.Context, id uuid.UUID, amount int64) (*entity.Payment, error)

	// Business queries
	ExpirePending(ctx context.Context, before time.Time) (int64, error)
	FindSucceededUnsettled(ctx context.Context, before time.Time, limit int) ([]*entity.Payment, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, provider, intent_id, amount, refunded_amount, currency, status, created_at, updated_at`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var payment entity.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Provider,
		&payment.IntentID,
		&payment.Amount,
		&payment.RefundedAmount,
		&payment.Currency,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Provider,
		payment.IntentID,
		payment.Amount,
		payment.RefundedAmount,
		payment.Currency,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
			zap.String("intent_id", payment.IntentID),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, query string, arg any) (*entity.Payment, error) {
	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return payment, err
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := r.findOne(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to find payment by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment by ID %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindByIntentID(ctx context.Context, intentID string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE intent_id = $1`

	payment, err := r.findOne(ctx, query, intentID)
	if err != nil {
		r.log.Error("Failed to find payment by intent",
			zap.Error(err),
			zap.String("intent_id", intentID),
		)
		return nil, fmt.Errorf("find payment by intent %s: %w", intentID, err)
	}

	return payment, nil
}

func (r *paymentRepository) FindLatestByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	payment, err := r.findOne(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find payment by booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment for booking %s: %w", bookingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) FindRefundableByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status IN ('SUCCEEDED', 'REFUNDED')
		ORDER BY created_at DESC
		LIMIT 1`

	payment, err := r.findOne(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find refundable payment",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find refundable payment for booking %s: %w", bookingID.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.PaymentStatus, to entity.PaymentStatus) (bool, error) {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}

	query := `
		UPDATE payments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = ANY($2::text[])
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, id, statuses, to)
	if err != nil {
		r.log.Error("Failed to transition payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("transition payment %s to %s: %w", id.String(), to, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) ApplyRefund(ctx context.Context, id uuid.UUID, amount int64) (*entity.Payment, error) {
	query := `
		UPDATE payments
		SET refunded_amount = refunded_amount + $2,
		    status = CASE WHEN refunded_amount + $2 >= amount THEN 'FULLY_REFUNDED' ELSE 'REFUNDED' END,
		    updated_at = NOW()
		WHERE id = $1
		  AND status IN ('SUCCEEDED', 'REFUNDED')
		  AND refunded_amount + $2 <= amount
		RETURNING ` + paymentColumns

	payment, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, id, amount))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to apply refund",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("apply refund to payment %s: %w", id.String(), err)
	}

	return payment, nil
}

func (r *paymentRepository) ExpirePending(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE payments
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND created_at < $1
	`

	result, err := database.Conn(ctx, r.db).Exec(ctx, query, before)
	if err != nil {
		r.log.Error("Failed to expire pending payments", zap.Error(err))
		return 0, fmt.Errorf("expire payments created before %s: %w", before.Format(time.RFC3339), err)
	}

	return result.RowsAffected(), nil
}

func (r *paymentRepository) FindSucceededUnsettled(ctx context.Context, before time.Time, limit int) ([]*entity.Payment, error) {
	query := `
		SELECT p.id, p.booking_id, p.provider, p.intent_id, p.amount, p.refunded_amount,
		       p.currency, p.status, p.created_at, p.updated_at
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE p.status = 'SUCCEEDED'
		  AND p.updated_at < $1
		  AND b.status = 'PENDING'
		  AND b.payment_status <> 'PAID'
		ORDER BY p.updated_at
		LIMIT $2
	`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, before, limit)
	if err != nil {
		r.log.Error("Failed to find unsettled payments", zap.Error(err))
		return nil, fmt.Errorf("find unsettled payments: %w", err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			r.log.Error("Failed to scan payment row", zap.Error(err))
			return nil, fmt.Errorf("scan payment row: %w", err)
		}
		payments = append(payments, payment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment rows: %w", err)
	}

	return payments, nil
}
