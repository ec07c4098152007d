package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/dto/response"
	"hotel-booking/pkg/broker"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	// Public endpoints (guest or authenticated)
	CreateRoomBooking(ctx context.Context, userID *uuid.UUID, req *request.CreateRoomBookingRequest) (*response.BookingResponse, error)
	UploadReceipt(ctx context.Context, userID *uuid.UUID, bookingID string, req *request.UploadReceiptRequest) (*response.BookingResponse, error)

	// User endpoints
	GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error)
	GetUserBookingByID(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingResponse, error)
	UpdateBooking(ctx context.Context, userID uuid.UUID, bookingID string, req *request.UpdateBookingRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingResponse, error)

	// Admin endpoints
	GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error)
	VerifyReceipt(ctx context.Context, bookingID string) (*response.BookingResponse, error)

	// Payment and job callbacks
	MarkAsPaid(ctx context.Context, bookingID uuid.UUID) error
	MarkAsFailed(ctx context.Context, bookingID uuid.UUID) error
	MarkAsRefunded(ctx context.Context, bookingID uuid.UUID, fullyRefunded bool) error
	ExpireBooking(ctx context.Context, booking *entity.Booking) (bool, error)
}

type bookingService struct {
	repo      *repository.Repository
	inventory InventoryService
	events    *eventEmitter
	now       func() time.Time
	log       *zap.Logger
}

func NewBookingService(repo *repository.Repository, inventory InventoryService, publisher broker.Publisher, log *zap.Logger) BookingService {
	return newBookingService(repo, inventory, publisher, time.Now, log)
}

func newBookingService(repo *repository.Repository, inventory InventoryService, publisher broker.Publisher, now func() time.Time, log *zap.Logger) *bookingService {
	log = log.With(zap.String("service", "booking"))
	return &bookingService{
		repo:      repo,
		inventory: inventory,
		events:    &eventEmitter{publisher: publisher, now: now, log: log},
		now:       now,
		log:       log,
	}
}

// stay is a validated room request: dates normalized, policy checked.
type stay struct {
	room     *entity.RoomPolicy
	checkIn  time.Time
	checkOut time.Time
	nights   int
	guests   []entity.Guests
}

func (st stay) quantity() int {
	return len(st.guests)
}

func (st stay) amount() int64 {
	return int64(st.nights) * st.room.BasePrice * int64(st.quantity())
}

func (st stay) bookedRooms() []entity.BookedRoom {
	rooms := make([]entity.BookedRoom, len(st.guests))
	for i, g := range st.guests {
		rooms[i] = entity.BookedRoom{
			RoomID:   st.room.ID,
			CheckIn:  st.checkIn,
			CheckOut: st.checkOut,
			Guests:   g,
		}
	}
	return rooms
}

// resolveStay runs every check that does not touch inventory.
func (s *bookingService) resolveStay(ctx context.Context, roomID uuid.UUID, checkInRaw, checkOutRaw string, guests []request.GuestRequest) (*stay, error) {
	checkIn, err := utils.ParseDateOnly(checkInRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	checkOut, err := utils.ParseDateOnly(checkOutRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	if err := utils.ValidateFutureDateRange(checkIn, checkOut, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	if err := utils.ValidateRangeLength(checkIn, checkOut); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	room, err := s.repo.Room.FindPolicy(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID.String(), err)
	}
	if room == nil || !room.IsActive {
		return nil, fmt.Errorf("%w: room %s", ErrNotFound, roomID.String())
	}

	nights := utils.DiffInDays(checkIn, checkOut)
	if nights < room.MinNights {
		return nil, fmt.Errorf("%w: minimum stay is %d nights", ErrInvalidInput, room.MinNights)
	}
	if room.MaxNights > 0 && nights > room.MaxNights {
		return nil, fmt.Errorf("%w: maximum stay is %d nights", ErrInvalidInput, room.MaxNights)
	}

	units := make([]entity.Guests, len(guests))
	for i, g := range guests {
		if g.Adults > room.MaxAdults {
			return nil, fmt.Errorf("%w: room unit %d exceeds %d adults", ErrInvalidInput, i+1, room.MaxAdults)
		}
		if g.Children > room.MaxChildren {
			return nil, fmt.Errorf("%w: room unit %d exceeds %d children", ErrInvalidInput, i+1, room.MaxChildren)
		}
		units[i] = entity.Guests{Adults: g.Adults, Children: g.Children}
	}

	return &stay{
		room:     room,
		checkIn:  checkIn,
		checkOut: checkOut,
		nights:   nights,
		guests:   units,
	}, nil
}

// hold ensures the ledger rows, checks and reserves the stay. Must run
// inside a transaction.
func (s *bookingService) hold(ctx context.Context, st *stay) error {
	if err := s.inventory.EnsureExists(ctx, st.room.ID, st.checkIn, st.checkOut); err != nil {
		return err
	}

	available, err := s.inventory.CheckAvailability(ctx, st.room.ID, st.checkIn, st.checkOut)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("%w: room not available for the selected dates", ErrInsufficientAvailability)
	}

	return s.inventory.Reserve(ctx, st.room.ID, st.checkIn, st.checkOut, st.quantity())
}

// release gives back the nights a booking holds.
func (s *bookingService) release(ctx context.Context, b *entity.Booking) error {
	if b.BookingType != entity.BookingTypeRoom {
		return nil
	}

	roomID, checkIn, checkOut, ok := b.Stay()
	if !ok {
		return nil
	}

	return s.inventory.Rollback(ctx, roomID, checkIn, checkOut, b.Quantity())
}

func (s *bookingService) CreateRoomBooking(ctx context.Context, userID *uuid.UUID, req *request.CreateRoomBookingRequest) (*response.BookingResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create booking validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid room ID %s", ErrInvalidInput, req.RoomID)
	}

	st, err := s.resolveStay(ctx, roomID, req.CheckIn, req.CheckOut, req.Guests)
	if err != nil {
		return nil, err
	}

	now := s.now()
	booking := &entity.Booking{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderID:       utils.GenerateOrderID(now),
		BookingType:   entity.BookingTypeRoom,
		Status:        entity.BookingStatusPending,
		PaymentStatus: entity.BookingPaymentUnpaid,
		Amount:        st.amount(),
		Currency:      st.room.Currency,
		UserID:        userID,
		Rooms:         st.bookedRooms(),
	}

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.hold(ctx, st); err != nil {
			return err
		}
		return s.repo.Booking.Create(ctx, booking)
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientAvailability) {
			s.log.Error("Failed to create booking",
				zap.Error(err),
				zap.String("room_id", roomID.String()),
			)
		}
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("order_id", booking.OrderID),
		zap.String("room_id", roomID.String()),
		zap.Int("quantity", st.quantity()),
		zap.Int("nights", st.nights),
	)

	s.events.emit(ctx, EventBookingCreated, booking, booking.Status, booking.PaymentStatus)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, userID uuid.UUID, req *request.BookingListRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	filter := repository.BookingFilter{
		Limit:  req.Limit(),
		Offset: req.Offset(),
	}
	if req.Status != "" {
		status := entity.BookingStatus(req.Status)
		filter.Status = &status
	}
	if req.PaymentStatus != "" {
		pay := entity.BookingPaymentStatus(req.PaymentStatus)
		filter.PaymentStatus = &pay
	}

	bookings, err := s.repo.Booking.FindByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		data = append(data, response.BookingToResponse(b))
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *bookingService) findUserBooking(ctx context.Context, userID uuid.UUID, bookingID string) (*entity.Booking, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, bookingID)
	}

	booking, err := s.repo.Booking.FindByUserAndID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	return booking, nil
}

func (s *bookingService) findBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID.String())
	}
	return booking, nil
}

func (s *bookingService) GetUserBookingByID(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.findUserBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBookingByID(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, bookingID)
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// UpdateBooking moves a pending, unpaid room booking to new dates or a new
// unit count. The old nights are released and the new ones reserved in the
// same transaction.
func (s *bookingService) UpdateBooking(ctx context.Context, userID uuid.UUID, bookingID string, req *request.UpdateBookingRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	booking, err := s.findUserBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.IsPaid() {
		return nil, fmt.Errorf("%w: a paid booking cannot be modified", ErrConflict)
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s", ErrConflict, booking.Status)
	}

	roomID, _, _, ok := booking.Stay()
	if booking.BookingType != entity.BookingTypeRoom || !ok {
		return nil, fmt.Errorf("%w: only room bookings can be rescheduled", ErrInvalidInput)
	}

	st, err := s.resolveStay(ctx, roomID, req.CheckIn, req.CheckOut, req.Guests)
	if err != nil {
		return nil, err
	}

	err = s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		// The nights to give back come from the locked row, not from the read
		// above: a concurrent reschedule may have moved the stay since.
		current, err := s.repo.Booking.FindByIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != entity.BookingStatusPending || current.IsPaid() {
			return fmt.Errorf("%w: booking is no longer pending", ErrConflict)
		}

		updated, err := s.repo.Booking.UpdateRooms(ctx, booking.ID, st.bookedRooms(), st.amount())
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: booking is no longer pending", ErrConflict)
		}

		if err := s.release(ctx, current); err != nil {
			return err
		}

		return s.hold(ctx, st)
	})
	if err != nil {
		if !errors.Is(err, ErrConflict) && !errors.Is(err, ErrInsufficientAvailability) {
			s.log.Error("Failed to update booking",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
		}
		return nil, err
	}

	booking, err = s.findBooking(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking rescheduled", zap.String("booking_id", booking.ID.String()))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

// closeBooking moves a PENDING booking to a closed state and releases the
// nights it holds at that moment, in the same transaction. It returns the
// closed booking, or nil when the booking had already left PENDING.
func (s *bookingService) closeBooking(ctx context.Context, bookingID uuid.UUID, to entity.BookingStatus, pay entity.BookingPaymentStatus) (*entity.Booking, error) {
	var closed *entity.Booking

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if current == nil || current.Status != entity.BookingStatusPending {
			return nil
		}

		ok, err := s.repo.Booking.Transition(ctx, bookingID, entity.BookingStatusPending, to, pay)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if err := s.release(ctx, current); err != nil {
			return err
		}

		current.Status = to
		if pay != "" {
			current.PaymentStatus = pay
		}
		current.UpdatedAt = s.now()
		closed = current
		return nil
	})
	if err != nil {
		s.log.Error("Failed to close booking",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.String("to", string(to)),
		)
		return nil, err
	}

	return closed, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, userID uuid.UUID, bookingID string) (*response.BookingResponse, error) {
	booking, err := s.findUserBooking(ctx, userID, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.IsPaid() {
		return nil, fmt.Errorf("%w: a paid booking can only be cancelled through a refund", ErrConflict)
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is already %s", ErrConflict, booking.Status)
	}

	closed, err := s.closeBooking(ctx, booking.ID, entity.BookingStatusCancelled, "")
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}
	if closed == nil {
		return nil, fmt.Errorf("%w: booking is no longer pending", ErrConflict)
	}

	s.log.Info("Booking cancelled by user",
		zap.String("booking_id", closed.ID.String()),
		zap.String("user_id", userID.String()),
	)

	s.events.emit(ctx, EventBookingCancelled, closed, closed.Status, closed.PaymentStatus)

	resp := response.BookingToResponse(closed)
	return &resp, nil
}

// MarkAsPaid confirms a pending booking. Repeating it for a booking that is
// already confirmed and paid is a no-op.
func (s *bookingService) MarkAsPaid(ctx context.Context, bookingID uuid.UUID) error {
	ok, err := s.repo.Booking.Transition(ctx, bookingID,
		entity.BookingStatusPending, entity.BookingStatusConfirmed, entity.BookingPaymentPaid)
	if err != nil {
		return fmt.Errorf("mark booking paid: %w", err)
	}

	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	if ok {
		s.log.Info("Booking confirmed", zap.String("booking_id", bookingID.String()))
		s.events.emit(ctx, EventBookingConfirmed, booking, booking.Status, booking.PaymentStatus)
		return nil
	}

	if booking.Status == entity.BookingStatusConfirmed && booking.IsPaid() {
		return nil
	}

	s.log.Warn("Payment succeeded for a closed booking, manual refund needed",
		zap.String("booking_id", bookingID.String()),
		zap.String("status", string(booking.Status)),
		zap.String("payment_status", string(booking.PaymentStatus)),
	)
	return fmt.Errorf("%w: booking is %s", ErrConflict, booking.Status)
}

// MarkAsFailed cancels a booking whose payment failed. A booking that left
// PENDING in the meantime is not touched.
func (s *bookingService) MarkAsFailed(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	closed, err := s.closeBooking(ctx, booking.ID, entity.BookingStatusCancelled, entity.BookingPaymentFailed)
	if err != nil {
		return fmt.Errorf("mark booking failed: %w", err)
	}
	if closed == nil {
		s.log.Info("Ignoring payment failure for non-pending booking",
			zap.String("booking_id", bookingID.String()),
			zap.String("status", string(booking.Status)),
		)
		return nil
	}

	s.events.emit(ctx, EventBookingCancelled, closed, closed.Status, closed.PaymentStatus)
	return nil
}

// MarkAsRefunded records a refund. A full refund also cancels the booking
// and gives its nights back.
func (s *bookingService) MarkAsRefunded(ctx context.Context, bookingID uuid.UUID, fullyRefunded bool) error {
	if _, err := s.findBooking(ctx, bookingID); err != nil {
		return err
	}

	err := s.repo.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: booking %s", ErrNotFound, bookingID.String())
		}

		if fullyRefunded && (current.Status == entity.BookingStatusPending || current.Status == entity.BookingStatusConfirmed) {
			ok, err := s.repo.Booking.Transition(ctx, bookingID, current.Status, entity.BookingStatusCancelled, entity.BookingPaymentRefunded)
			if err != nil {
				return err
			}
			if ok {
				return s.release(ctx, current)
			}
		}

		_, err = s.repo.Booking.UpdatePaymentStatus(ctx, bookingID, entity.BookingPaymentPaid, entity.BookingPaymentRefunded)
		return err
	})
	if err != nil {
		s.log.Error("Failed to mark booking refunded",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("mark booking refunded: %w", err)
	}

	updated, err := s.findBooking(ctx, bookingID)
	if err != nil {
		return err
	}

	s.log.Info("Booking refunded",
		zap.String("booking_id", bookingID.String()),
		zap.Bool("fully_refunded", fullyRefunded),
		zap.String("status", string(updated.Status)),
	)
	s.events.emit(ctx, EventBookingRefunded, updated, updated.Status, updated.PaymentStatus)
	return nil
}

// ExpireBooking closes a stale pending booking. The sweep's copy only names
// the booking; the nights released are read again under lock. It reports
// false when the booking was cancelled, paid or expired by someone else first.
func (s *bookingService) ExpireBooking(ctx context.Context, booking *entity.Booking) (bool, error) {
	closed, err := s.closeBooking(ctx, booking.ID, entity.BookingStatusCancelled, entity.BookingPaymentExpired)
	if err != nil {
		return false, fmt.Errorf("expire booking %s: %w", booking.ID.String(), err)
	}
	if closed == nil {
		return false, nil
	}

	s.events.emit(ctx, EventBookingExpired, closed, closed.Status, closed.PaymentStatus)
	return true, nil
}

func (s *bookingService) UploadReceipt(ctx context.Context, userID *uuid.UUID, bookingID string, req *request.UploadReceiptRequest) (*response.BookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, utils.FormatValidationErrors(errs))
	}

	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, bookingID)
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	// A booking owned by a user is hidden from everyone else.
	if booking.UserID != nil && (userID == nil || *userID != *booking.UserID) {
		return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
	}

	if booking.PaymentStatus != entity.BookingPaymentUnpaid {
		return nil, fmt.Errorf("%w: receipt can only be uploaded for an unpaid booking", ErrConflict)
	}

	receipt := entity.BankReceipt{URL: req.URL, UploadedAt: s.now().UTC()}
	ok, err := s.repo.Booking.AttachReceipt(ctx, id, receipt)
	if err != nil {
		return nil, fmt.Errorf("upload receipt: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking is no longer awaiting payment", ErrConflict)
	}

	s.log.Info("Receipt uploaded", zap.String("booking_id", bookingID))

	booking.Receipt = &receipt
	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) VerifyReceipt(ctx context.Context, bookingID string) (*response.BookingResponse, error) {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid booking ID %s", ErrInvalidInput, bookingID)
	}

	booking, err := s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.Receipt == nil {
		return nil, fmt.Errorf("%w: booking has no receipt", ErrInvalidInput)
	}
	if booking.Status != entity.BookingStatusPending {
		return nil, fmt.Errorf("%w: booking is %s", ErrConflict, booking.Status)
	}

	ok, err := s.repo.Booking.VerifyReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("verify receipt: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: booking is no longer pending", ErrConflict)
	}

	booking, err = s.findBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("Receipt verified", zap.String("booking_id", bookingID))
	s.events.emit(ctx, EventBookingConfirmed, booking, booking.Status, booking.PaymentStatus)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}
