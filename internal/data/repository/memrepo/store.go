// Package memrepo is a test double: it keeps every repository in process
// memory for the usecase, job and wire tests. Writes follow the same
// conditional rules as the SQL statements so those tests can exercise races
// without a database. Only _test.go files import it; cmd/ never wires it.
package memrepo

import (
	"context"
	"sync"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
)

type inventoryKey struct {
	roomID uuid.UUID
	night  string
}

type idempotencyKey struct {
	key, userID, endpoint string
}

type state struct {
	rooms       map[uuid.UUID]entity.RoomPolicy
	inventories map[uuid.UUID]entity.RoomInventory
	nights      map[inventoryKey]uuid.UUID
	bookings    map[uuid.UUID]entity.Booking
	payments    map[uuid.UUID]entity.Payment
	idempotency map[idempotencyKey]entity.IdempotencyRecord
	sessions    map[uuid.UUID]entity.Session
	users       map[uuid.UUID]entity.User
}

func newState() state {
	return state{
		rooms:       map[uuid.UUID]entity.RoomPolicy{},
		inventories: map[uuid.UUID]entity.RoomInventory{},
		nights:      map[inventoryKey]uuid.UUID{},
		bookings:    map[uuid.UUID]entity.Booking{},
		payments:    map[uuid.UUID]entity.Payment{},
		idempotency: map[idempotencyKey]entity.IdempotencyRecord{},
		sessions:    map[uuid.UUID]entity.Session{},
		users:       map[uuid.UUID]entity.User{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.inventories {
		c.inventories[k] = v
	}
	for k, v := range s.nights {
		c.nights[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = copyBooking(v)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.idempotency {
		v.Response = append([]byte(nil), v.Response...)
		c.idempotency[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

func copyBooking(b entity.Booking) entity.Booking {
	b.Rooms = append([]entity.BookedRoom(nil), b.Rooms...)
	if b.Receipt != nil {
		receipt := *b.Receipt
		b.Receipt = &receipt
	}
	return b
}

// Store is the shared backing state of all in-memory repositories.
type Store struct {
	// txMu serializes transactions and standalone writes so a rollback
	// never discards a write made outside the transaction.
	txMu sync.Mutex
	mu   sync.Mutex
	data state

	pingErr error

	// Now stands in for the database clock (NOW()).
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		data: newState(),
		Now:  time.Now,
	}
}

type txMarker struct{}

func inTx(ctx context.Context) bool {
	return ctx.Value(txMarker{}) != nil
}

// lock grabs the store for one statement. Inside a transaction the
// transaction already holds txMu.
func (s *Store) lock(ctx context.Context) func() {
	if !inTx(ctx) {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !inTx(ctx) {
			s.txMu.Unlock()
		}
	}
}

func (s *Store) now() time.Time {
	return s.Now().UTC()
}

// WithinTx runs fn with exclusive access and restores the previous state
// when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}

	return nil
}

// Repository returns a repository bundle backed by the store.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		User:        &userRepository{s},
		Session:     &sessionRepository{s},
		Room:        &roomRepository{s},
		Inventory:   &inventoryRepository{s},
		Booking:     &bookingRepository{s},
		Payment:     &paymentRepository{s},
		Idempotency: &idempotencyRepository{s},
		Tx:          s,
		Health:      s,
	}
}

func (s *Store) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

// SetPingError makes Ping report err, simulating a lost database.
func (s *Store) SetPingError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pingErr = err
}

// PutRoom seeds a catalog room.
func (s *Store) PutRoom(room entity.RoomPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rooms[room.ID] = room
}

// PutUser seeds a user together with a session token for it.
func (s *Store) PutUser(user entity.User, token uuid.UUID, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[user.ID] = user
	s.data.sessions[token] = entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: s.now()},
		UserID:     user.ID,
		Token:      token,
		ExpiresAt:  expiresAt,
	}
}

// Inventory returns a copy of the ledger row for a night, if any.
func (s *Store) Inventory(roomID uuid.UUID, night time.Time) (entity.RoomInventory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.data.nights[nightKey(roomID, night)]
	if !ok {
		return entity.RoomInventory{}, false
	}
	return s.data.inventories[id], true
}

// InventoryCount is the number of ledger rows across all rooms.
func (s *Store) InventoryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.inventories)
}

// Booking returns a copy of a stored booking.
func (s *Store) Booking(id uuid.UUID) (entity.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.data.bookings[id]
	return copyBooking(b), ok
}

// Payment returns a copy of a stored payment.
func (s *Store) Payment(id uuid.UUID) (entity.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data.payments[id]
	return p, ok
}

// PutBooking stores b as is, bypassing every condition.
func (s *Store) PutBooking(b entity.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.bookings[b.ID] = copyBooking(b)
}

// PutPayment stores p as is.
func (s *Store) PutPayment(p entity.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.payments[p.ID] = p
}

// PutInventory stores a ledger row as is.
func (s *Store) PutInventory(inv entity.RoomInventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv.Date = utils.NormalizeDate(inv.Date)
	s.data.inventories[inv.ID] = inv
	s.data.nights[nightKey(inv.RoomID, inv.Date)] = inv.ID
}

// SetIdempotencyUpdatedAt backdates a record to simulate an abandoned request.
func (s *Store) SetIdempotencyUpdatedAt(key, userID, endpoint string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := idempotencyKey{key, userID, endpoint}
	if rec, ok := s.data.idempotency[k]; ok {
		rec.UpdatedAt = at
		s.data.idempotency[k] = rec
	}
}

func nightKey(roomID uuid.UUID, night time.Time) inventoryKey {
	return inventoryKey{roomID: roomID, night: utils.NormalizeDate(night).Format(utils.DateLayout)}
}
