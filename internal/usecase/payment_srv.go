package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/pkg/payment"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService interface {
	// User endpoints
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error)
	GetPaymentByID(ctx context.Context, userID uuid.UUID, paymentID string) (*response.PaymentResponse, error)
	GetPaymentByBookingID(ctx context.Context, userID uuid.UUID, bookingID string) (*response.PaymentResponse, error)
	GetPaymentStatus(ctx context.Context, userID uuid.UUID, bookingID string) (*response.PaymentStatusResponse, error)

	// Provider callback
	HandleWebhook(ctx context.Context, payload []byte, signature string) error

	// Admin endpoints
	Refund(ctx context.Context, req *request.RefundRequest) (*response.RefundResponse, error)

	// Jobs
	ExpirePendingPayments(ctx context.Context, olderThan time.Duration) (int64, error)
}

type paymentService struct {
	repo    *repository.Repository
	booking BookingService
	gateway payment.Gateway
	now     func() time.Time
	log     *zap.Logger
}

func NewPaymentService(repo *repository.Repository, booking BookingService, gateway payment.Gateway, log *zap.Logger) PaymentService {
	return newPaymentService(repo, booking, gateway, time.Now, log)
}

func newPaymentService(repo *repository.Repository, booking BookingService, gateway payment.Gateway, now func() time.Time, log *zap.Logger) *paymentService {
	return &paymentService{
		repo:    repo,
		booking: booking,
		gateway: gateway,
		now:     now,
		log:     log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, req *request.CreatePaymentIntentRequest) (*response.PaymentIntentResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, req.BookingID)
	}

	booking, err := s.repo.Booking.FindByUserAndID(ctx, userID, bookingID)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, req.BookingID)
	}

	if booking.Status != entity.BookingStatusPending || booking.PaymentStatus != entity.BookingPaymentUnpaid {
		return nil, fmt.Errorf("%w: booking is %s/%s", ErrConflict, booking.Status, booking.PaymentStatus)
	}

	previous, err := s.repo.Payment.FindLatestByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, booking.Amount, strings.ToLower(booking.Currency), map[string]string{
		"booking_id": booking.ID.String(),
		"order_id":   booking.OrderID,
	})
	if err != nil {
		s.log.Error("Failed to create payment intent",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	now := s.now()
	p := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID: booking.ID,
		Provider:  s.gateway.Name(),
		IntentID:  intent.ID,
		Amount:    booking.Amount,
		Currency:  booking.Currency,
		Status:    entity.PaymentStatusPending,
	}

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// Only the newest intent may settle the booking.
		if previous != nil && previous.Status == entity.PaymentStatusPending {
			if _, err := s.repo.Payment.TransitionStatus(ctx, previous.ID,
				[]entity.PaymentStatus{entity.PaymentStatusPending}, entity.PaymentStatusCancelled); err != nil {
				return err
			}
		}
		return s.repo.Payment.Create(ctx, p)
	})
	if err != nil {
		s.log.Error("Failed to store payment",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
			zap.String("intent_id", intent.ID),
		)
		return nil, fmt.Errorf("store payment: %w", err)
	}

	s.log.Info("Payment intent created",
		zap.String("payment_id", p.ID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("intent_id", intent.ID),
	)

	return &response.PaymentIntentResponse{
		PaymentID:    p.ID.String(),
		BookingID:    booking.ID.String(),
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       p.Amount,
		Currency:     p.Currency,
	}, nil
}

// HandleWebhook applies a signed provider event. Returning an error makes
// the provider redeliver, so only infrastructure failures are returned once
// the signature checks out.
func (s *paymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
		}
		return fmt.Errorf("parse webhook: %w", err)
	}

	log := s.log.With(zap.String("event_id", event.ID), zap.String("intent_id", event.IntentID))

	switch event.Type {
	case payment.EventIntentSucceeded:
		return s.settleSucceeded(ctx, event.IntentID, log)
	case payment.EventIntentFailed:
		return s.settleFailed(ctx, event.IntentID, log)
	default:
		log.Debug("Ignoring webhook event", zap.String("type", event.Type))
		return nil
	}
}

func (s *paymentService) settleSucceeded(ctx context.Context, intentID string, log *zap.Logger) error {
	p, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if p == nil {
		log.Warn("Webhook for unknown intent")
		return nil
	}

	// An intent the provider reports as paid is paid, even if a sweep expired
	// or a newer intent cancelled our record of it.
	if _, err := s.repo.Payment.TransitionStatus(ctx, p.ID, []entity.PaymentStatus{
		entity.PaymentStatusPending,
		entity.PaymentStatusFailed,
		entity.PaymentStatusExpired,
		entity.PaymentStatusCancelled,
	}, entity.PaymentStatusSucceeded); err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}

	// A crash here is healed by the reconcile job.
	if err := s.booking.MarkAsPaid(ctx, p.BookingID); err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
			log.Warn("Booking could not be confirmed", zap.Error(err), zap.String("booking_id", p.BookingID.String()))
			return nil
		}
		return err
	}

	log.Info("Payment succeeded", zap.String("payment_id", p.ID.String()))
	return nil
}

func (s *paymentService) settleFailed(ctx context.Context, intentID string, log *zap.Logger) error {
	p, err := s.repo.Payment.FindByIntentID(ctx, intentID)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if p == nil {
		log.Warn("Webhook for unknown intent")
		return nil
	}

	failed, err := s.repo.Payment.TransitionStatus(ctx, p.ID,
		[]entity.PaymentStatus{entity.PaymentStatusPending}, entity.PaymentStatusFailed)
	if err != nil {
		return fmt.Errorf("settle payment: %w", err)
	}
	if !failed {
		log.Info("Ignoring failure for settled payment", zap.String("status", string(p.Status)))
		return nil
	}

	if err := s.booking.MarkAsFailed(ctx, p.BookingID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	log.Info("Payment failed", zap.String("payment_id", p.ID.String()))
	return nil
}

// Refund returns part or all of a settled payment. Amounts beyond the
// remaining balance are rejected before the provider is called.
func (s *paymentService) Refund(ctx context.Context, req *request.RefundRequest) (*response.RefundResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, req.BookingID)
	}

	p, err := s.repo.Payment.FindRefundableByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("refund: %w", err)
	}
	if p == nil {
		latest, err := s.repo.Payment.FindLatestByBookingID(ctx, bookingID)
		if err != nil {
			return nil, fmt.Errorf("refund: %w", err)
		}
		if latest != nil && latest.Status == entity.PaymentStatusFullyRefunded {
			return nil, fmt.Errorf("%w: payment is already fully refunded", ErrConflict)
		}
		return nil, fmt.Errorf("%w: no refundable payment for booking %s", ErrNotFound, req.BookingID)
	}

	amount := p.Remaining()
	if req.Amount != nil {
		amount = *req.Amount
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: nothing left to refund", ErrConflict)
	}
	if amount > p.Remaining() {
		return nil, fmt.Errorf("%w: refund %d exceeds the refundable balance %d", ErrInvalidInput, amount, p.Remaining())
	}

	refund, err := s.gateway.Refund(ctx, p.IntentID, amount)
	if err != nil {
		s.log.Error("Provider refund failed",
			zap.Error(err),
			zap.String("payment_id", p.ID.String()),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("refund: %w", err)
	}

	updated, err := s.repo.Payment.ApplyRefund(ctx, p.ID, amount)
	if err != nil {
		return nil, fmt.Errorf("record refund %s: %w", refund.ID, err)
	}
	if updated == nil {
		s.log.Error("Refund issued but not recorded, balance changed concurrently",
			zap.String("payment_id", p.ID.String()),
			zap.String("refund_id", refund.ID),
			zap.Int64("amount", amount),
		)
		return nil, fmt.Errorf("%w: refundable balance changed, reconcile refund %s", ErrConflict, refund.ID)
	}

	fully := updated.Status == entity.PaymentStatusFullyRefunded
	if err := s.booking.MarkAsRefunded(ctx, p.BookingID, fully); err != nil {
		return nil, err
	}

	s.log.Info("Payment refunded",
		zap.String("payment_id", p.ID.String()),
		zap.String("refund_id", refund.ID),
		zap.Int64("amount", amount),
		zap.Bool("fully_refunded", fully),
	)

	return &response.RefundResponse{
		PaymentID:      updated.ID.String(),
		BookingID:      updated.BookingID.String(),
		RefundID:       refund.ID,
		Amount:         amount,
		RefundedAmount: updated.RefundedAmount,
		Status:         updated.Status,
		FullyRefunded:  fully,
	}, nil
}

func (s *paymentService) ownedBookingID(ctx context.Context, userID uuid.UUID, bookingID string) (uuid.UUID, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, bookingID)
	}

	booking, err := s.repo.Booking.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return uuid.Nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	return id, nil
}

func (s *paymentService) GetPaymentByID(ctx context.Context, userID uuid.UUID, paymentID string) (*response.PaymentResponse, error) {
	id, err := uuid.Parse(paymentID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid payment ID %s", ErrInvalidInput, paymentID)
	}

	p, err := s.repo.Payment.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	if _, err := s.ownedBookingID(ctx, userID, p.BookingID.String()); err != nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, paymentID)
	}

	resp := response.PaymentToResponse(p)
	return &resp, nil
}

func (s *paymentService) GetPaymentByBookingID(ctx context.Context, userID uuid.UUID, bookingID string) (*response.PaymentResponse, error) {
	id, err := s.ownedBookingID(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Payment.FindLatestByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no payment for booking %s", ErrNotFound, bookingID)
	}

	resp := response.PaymentToResponse(p)
	return &resp, nil
}

func (s *paymentService) GetPaymentStatus(ctx context.Context, userID uuid.UUID, bookingID string) (*response.PaymentStatusResponse, error) {
	id, err := s.ownedBookingID(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.Payment.FindLatestByBookingID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment status: %w", err)
	}
	if p == nil {
		return &response.PaymentStatusResponse{Exists: false}, nil
	}

	createdAt := p.CreatedAt
	return &response.PaymentStatusResponse{
		Exists:         true,
		Status:         p.Status,
		Amount:         p.Amount,
		Currency:       p.Currency,
		RefundedAmount: p.RefundedAmount,
		CreatedAt:      &createdAt,
	}, nil
}

func (s *paymentService) ExpirePendingPayments(ctx context.Context, olderThan time.Duration) (int64, error) {
	expired, err := s.repo.Payment.ExpirePending(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("expire pending payments: %w", err)
	}
	return expired, nil
}
