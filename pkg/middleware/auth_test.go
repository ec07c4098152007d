package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/internal/data/repository/memrepo"
	"hotel-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type seenUser struct {
	called bool
	userID string
	role   string
	token  string
}

func (s *seenUser) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.called = true
		if id := utils.GetOptionalUserID(r.Context()); id != nil {
			s.userID = id.String()
		}
		s.role, _ = utils.GetRoleFromContext(r.Context())
		s.token, _ = utils.GetTokenFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func request(authorization string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		r.Header.Set("Authorization", authorization)
	}
	return r
}

func seed(t *testing.T) (*memrepo.Store, entity.User, uuid.UUID, entity.User, uuid.UUID) {
	t.Helper()
	store := memrepo.NewStore()

	customer := entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleCustomer, IsActive: true}
	admin := entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleAdmin, IsActive: true}
	customerToken, adminToken := uuid.New(), uuid.New()

	store.PutUser(customer, customerToken, time.Now().Add(time.Hour))
	store.PutUser(admin, adminToken, time.Now().Add(time.Hour))
	return store, customer, customerToken, admin, adminToken
}

func TestAuthSession(t *testing.T) {
	store, customer, token, _, _ := seed(t)
	repo := store.Repository()

	expired := uuid.New()
	store.PutUser(entity.User{Base: entity.Base{ID: uuid.New()}, IsActive: true}, expired, time.Now().Add(-time.Minute))

	cases := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token.String(), http.StatusUnauthorized},
		{"lowercase scheme", "bearer " + token.String(), http.StatusUnauthorized},
		{"not a uuid", "Bearer abc", http.StatusUnauthorized},
		{"unknown session", "Bearer " + uuid.NewString(), http.StatusUnauthorized},
		{"expired session", "Bearer " + expired.String(), http.StatusUnauthorized},
		{"valid", "Bearer " + token.String(), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen := &seenUser{}
			rec := httptest.NewRecorder()

			AuthSession(repo.Session, zap.NewNop())(seen.handler()).ServeHTTP(rec, request(tc.header))

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.code == http.StatusNoContent, seen.called)
			if seen.called {
				assert.Equal(t, customer.ID.String(), seen.userID)
				assert.Equal(t, token.String(), seen.token)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	store, customer, token, _, _ := seed(t)
	repo := store.Repository()
	mw := OptionalAuth(repo.Session, zap.NewNop())

	guest := &seenUser{}
	rec := httptest.NewRecorder()
	mw(guest.handler()).ServeHTTP(rec, request(""))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, guest.userID)

	user := &seenUser{}
	rec = httptest.NewRecorder()
	mw(user.handler()).ServeHTTP(rec, request("Bearer "+token.String()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, customer.ID.String(), user.userID)

	bad := &seenUser{}
	rec = httptest.NewRecorder()
	mw(bad.handler()).ServeHTTP(rec, request("Bearer "+uuid.NewString()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, bad.called)
}

func TestAdmin(t *testing.T) {
	store, _, customerToken, _, adminToken := seed(t)
	repo := store.Repository()

	chain := func(next http.Handler) http.Handler {
		return AuthSession(repo.Session, zap.NewNop())(Admin(repo.User, zap.NewNop())(next))
	}

	customer := &seenUser{}
	rec := httptest.NewRecorder()
	chain(customer.handler()).ServeHTTP(rec, request("Bearer "+customerToken.String()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, customer.called)

	admin := &seenUser{}
	rec = httptest.NewRecorder()
	chain(admin.handler()).ServeHTTP(rec, request("Bearer "+adminToken.String()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, string(entity.RoleAdmin), admin.role)
}

func TestRecover(t *testing.T) {
	rec := httptest.NewRecorder()
	Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, request(""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":false,"message":"Internal server error"}`, rec.Body.String())
}
