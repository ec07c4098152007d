package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository/memrepo"
	"hotel-booking/pkg/broker"
	"hotel-booking/pkg/payment"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	mu      sync.Mutex
	intents int
}

func (g *stubGateway) Name() string { return "STRIPE" }

func (g *stubGateway) CreateIntent(context.Context, int64, string, map[string]string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents++
	id := fmt.Sprintf("pi_%d", g.intents)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (g *stubGateway) Intents() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.intents
}

func (g *stubGateway) Refund(_ context.Context, intentID string, amount int64) (*payment.Refund, error) {
	return &payment.Refund{ID: "re_" + intentID, Status: "succeeded"}, nil
}

func (g *stubGateway) ParseWebhook(payload []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	var event payment.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	t          *testing.T
	server     *httptest.Server
	store      *memrepo.Store
	gateway    *stubGateway
	roomID     uuid.UUID
	userToken  string
	adminToken string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	store := memrepo.NewStore()
	repo := store.Repository()

	roomID := uuid.New()
	store.PutRoom(entity.RoomPolicy{
		ID: roomID, TotalRooms: 1, MinNights: 1, MaxNights: 7,
		MaxAdults: 2, MaxChildren: 2, BasePrice: 750000, Currency: "VND", IsActive: true,
	})

	expires := time.Now().Add(time.Hour)
	userToken, adminToken := uuid.New(), uuid.New()
	store.PutUser(entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleCustomer, IsActive: true}, userToken, expires)
	store.PutUser(entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleAdmin, IsActive: true}, adminToken, expires)

	config := &utils.Config{Idempotency: utils.IdempotencyConfig{StaleAfter: 5 * time.Minute}}
	gateway := &stubGateway{}
	app := Wiring(repo, gateway, broker.NoopPublisher{}, config, zap.NewNop())

	server := httptest.NewServer(app.Router)
	t.Cleanup(server.Close)

	return &testApp{
		t:          t,
		server:     server,
		store:      store,
		gateway:    gateway,
		roomID:     roomID,
		userToken:  userToken.String(),
		adminToken: adminToken.String(),
	}
}

func (a *testApp) do(method, path, token string, body any, headers ...string) (int, envelope) {
	a.t.Helper()

	var reader *bytes.Reader
	if raw, ok := body.([]byte); ok {
		reader = bytes.NewReader(raw)
	} else if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	var env envelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env
}

func stayDates(offset, nights int) (string, string) {
	checkIn := time.Now().UTC().AddDate(0, 0, offset)
	return checkIn.Format(utils.DateLayout), checkIn.AddDate(0, 0, nights).Format(utils.DateLayout)
}

func (a *testApp) bookingBody(checkIn, checkOut string) map[string]any {
	return map[string]any{
		"room_id":   a.roomID.String(),
		"check_in":  checkIn,
		"check_out": checkOut,
		"guests":    []map[string]int{{"adults": 2}},
	}
}

func (a *testApp) createBooking(token string, offset int) string {
	a.t.Helper()
	checkIn, checkOut := stayDates(offset, 2)
	status, env := a.do(http.MethodPost, "/api/bookings/rooms", token, a.bookingBody(checkIn, checkOut))
	require.Equal(a.t, http.StatusCreated, status, env.Message)

	var booking struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &booking))
	return booking.ID
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReportsDatabaseOutage(t *testing.T) {
	app := newTestApp(t)
	app.store.SetPingError(fmt.Errorf("connection refused"))

	status, env := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.False(t, env.Status)
	assert.Equal(t, "Database unavailable", env.Message)
}

func TestGuestBookingAndCapacity(t *testing.T) {
	app := newTestApp(t)

	app.createBooking("", 10)

	checkIn, checkOut := stayDates(10, 2)
	status, env := app.do(http.MethodPost, "/api/bookings/rooms", "", app.bookingBody(checkIn, checkOut))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Status)

	status, _ = app.do(http.MethodPost, "/api/bookings/rooms", "", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = app.do(http.MethodPost, "/api/bookings/rooms", "", map[string]any{"room_id": app.roomID.String()})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = app.do(http.MethodGet, fmt.Sprintf("/api/rooms/%s/availability?from=%s&to=%s", app.roomID, checkIn, checkOut), "", nil)
	require.Equal(t, http.StatusOK, status)
	var availability struct {
		Available       bool `json:"available"`
		MaxRoomsCanBook int  `json:"max_rooms_can_book"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &availability))
	assert.False(t, availability.Available)
	assert.Zero(t, availability.MaxRoomsCanBook)
}

func TestUserRoutesRequireSession(t *testing.T) {
	app := newTestApp(t)

	status, _ := app.do(http.MethodGet, "/api/user/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = app.do(http.MethodGet, "/api/user/bookings", "not-a-uuid", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = app.do(http.MethodGet, "/api/user/bookings", uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = app.do(http.MethodPost, "/api/bookings/rooms", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status, "optional auth still rejects a bad token")
}

func TestUserCancelsOwnBooking(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(app.userToken, 5)

	status, env := app.do(http.MethodGet, "/api/user/bookings?page=1&per_page=10", app.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	var page struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, id, page.Data[0].ID)

	status, _ = app.do(http.MethodPut, "/api/bookings/"+id+"/cancel", app.userToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = app.do(http.MethodPut, "/api/bookings/"+id+"/cancel", app.userToken, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = app.do(http.MethodGet, "/api/user/bookings/"+id, app.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status, "bookings are scoped to their owner")
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking("", 3)

	status, _ := app.do(http.MethodGet, "/api/admin/bookings/"+id, app.userToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = app.do(http.MethodGet, "/api/admin/bookings/"+id, app.adminToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = app.do(http.MethodGet, "/api/admin/bookings/"+uuid.NewString(), app.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = app.do(http.MethodGet, "/api/admin/rooms/"+app.roomID.String()+"/inventory/future-count", app.adminToken, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestPaymentIntentIsIdempotent(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(app.userToken, 4)
	body := map[string]string{"booking_id": id}

	status, _ := app.do(http.MethodPost, "/api/payments/intent", app.userToken, body)
	assert.Equal(t, http.StatusBadRequest, status, "Idempotency-Key is required")

	status, first := app.do(http.MethodPost, "/api/payments/intent", app.userToken, body, "Idempotency-Key", "intent-1")
	require.Equal(t, http.StatusCreated, status, first.Message)

	status, second := app.do(http.MethodPost, "/api/payments/intent", app.userToken, body, "Idempotency-Key", "intent-1")
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, string(first.Data), string(second.Data))

	status, _ = app.do(http.MethodPost, "/api/payments/intent", app.userToken,
		map[string]string{"booking_id": uuid.NewString()}, "Idempotency-Key", "intent-1")
	assert.Equal(t, http.StatusConflict, status, "same key, different body")

	assert.Equal(t, 1, app.gateway.Intents())

	status, env := app.do(http.MethodGet, "/api/payments/booking/"+id+"/status", app.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"status":"PENDING"`)
}

func TestWebhook(t *testing.T) {
	app := newTestApp(t)
	id := app.createBooking(app.userToken, 4)

	status, env := app.do(http.MethodPost, "/api/payments/intent", app.userToken,
		map[string]string{"booking_id": id}, "Idempotency-Key", "k")
	require.Equal(t, http.StatusCreated, status)
	var intent struct {
		IntentID string `json:"intent_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &intent))

	event := map[string]string{"ID": "evt_1", "Type": payment.EventIntentSucceeded, "IntentID": intent.IntentID}

	status, _ = app.do(http.MethodPost, "/api/payments/webhook", "", event, "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = app.do(http.MethodPost, "/api/payments/webhook", "", event, "Stripe-Signature", "valid")
	assert.Equal(t, http.StatusOK, status)

	status, env = app.do(http.MethodGet, "/api/user/bookings/"+id, app.userToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"status":"CONFIRMED"`)
}
