package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/internal/data/repository/memrepo"
	"hotel-booking/internal/dto/request"
	"hotel-booking/pkg/payment"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

type fakeGateway struct {
	mu        sync.Mutex
	intents   int
	refunds   []int64
	refundErr error
}

func (g *fakeGateway) Name() string { return "STRIPE" }

func (g *fakeGateway) CreateIntent(_ context.Context, amount int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents++
	id := fmt.Sprintf("pi_%d", g.intents)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) Refund(_ context.Context, intentID string, amount int64) (*payment.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	g.refunds = append(g.refunds, amount)
	return &payment.Refund{ID: fmt.Sprintf("re_%d", len(g.refunds)), Status: "succeeded"}, nil
}

func (g *fakeGateway) Refunds() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int64(nil), g.refunds...)
}

// ParseWebhook accepts JSON {"id","type","intent_id"} signed with "valid".
func (g *fakeGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var event struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		IntentID string `json:"intent_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &payment.Event{ID: event.ID, Type: event.Type, IntentID: event.IntentID}, nil
}

func webhookPayload(eventType, intentID string) []byte {
	raw, _ := json.Marshal(map[string]string{"id": "evt_" + intentID, "type": eventType, "intent_id": intentID})
	return raw
}

type fixture struct {
	store     *memrepo.Store
	repo      *repository.Repository
	clock     *testClock
	events    *recordingPublisher
	gateway   *fakeGateway
	inventory *inventoryService
	booking   *bookingService
	payment   *paymentService
	idem      *idempotencyService
	room      entity.RoomPolicy
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)}
	store := memrepo.NewStore()
	store.Now = clock.Now
	repo := store.Repository()
	log := zap.NewNop()

	room := entity.RoomPolicy{
		ID:          uuid.New(),
		TotalRooms:  2,
		MinNights:   1,
		MaxNights:   5,
		MaxAdults:   2,
		MaxChildren: 1,
		BasePrice:   500000,
		Currency:    "VND",
		IsActive:    true,
	}
	store.PutRoom(room)

	events := &recordingPublisher{}
	gateway := &fakeGateway{}
	inventory := newInventoryService(repo, clock.Now, log)
	booking := newBookingService(repo, inventory, events, clock.Now, log)

	return &fixture{
		store:     store,
		repo:      repo,
		clock:     clock,
		events:    events,
		gateway:   gateway,
		inventory: inventory,
		booking:   booking,
		payment:   newPaymentService(repo, booking, gateway, clock.Now, log),
		idem:      newIdempotencyService(repo, 5*time.Minute, clock.Now, log),
		room:      room,
		userID:    uuid.New(),
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) bookingRequest(checkIn, checkOut string, units int) *request.CreateRoomBookingRequest {
	guests := make([]request.GuestRequest, units)
	for i := range guests {
		guests[i] = request.GuestRequest{Adults: 2}
	}
	return &request.CreateRoomBookingRequest{
		RoomID:   f.room.ID.String(),
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
	}
}

// createBooking books units rooms for the user and returns the booking id.
func (f *fixture) createBooking(t *testing.T, checkIn, checkOut string, units int) uuid.UUID {
	t.Helper()
	resp, err := f.booking.CreateRoomBooking(context.Background(), &f.userID, f.bookingRequest(checkIn, checkOut, units))
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (f *fixture) available(t *testing.T, night string) int {
	t.Helper()
	inv, ok := f.store.Inventory(f.room.ID, day(night))
	require.True(t, ok, "no ledger row for %s", night)
	return inv.Available
}

func (f *fixture) bookingState(t *testing.T, id uuid.UUID) entity.Booking {
	t.Helper()
	b, ok := f.store.Booking(id)
	require.True(t, ok)
	return b
}

// seedPayment stores a payment row without touching the booking.
func (f *fixture) seedPayment(bookingID uuid.UUID, amount int64, status entity.PaymentStatus) entity.Payment {
	now := f.clock.Now()
	p := entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		BookingID:    bookingID,
		Provider:     "STRIPE",
		IntentID:     "pi_" + uuid.NewString(),
		Amount:       amount,
		Currency:     "VND",
		Status:       status,
	}
	f.store.PutPayment(p)
	return p
}
