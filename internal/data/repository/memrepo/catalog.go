package memrepo

import (
	"context"

	"hotel-booking/internal/data/entity"

	"github.com/google/uuid"
)

type roomRepository struct {
	s *Store
}

func (r *roomRepository) FindPolicy(ctx context.Context, roomID uuid.UUID) (*entity.RoomPolicy, error) {
	defer r.s.lock(ctx)()

	room, ok := r.s.data.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return &room, nil
}

type sessionRepository struct {
	s *Store
}

func (r *sessionRepository) FindValidSession(ctx context.Context, token string) (*entity.Session, error) {
	defer r.s.lock(ctx)()

	parsed, err := uuid.Parse(token)
	if err != nil {
		return nil, nil
	}
	session, ok := r.s.data.sessions[parsed]
	if !ok || !session.ActiveAt(r.s.now()) {
		return nil, nil
	}
	return &session, nil
}

type userRepository struct {
	s *Store
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	defer r.s.lock(ctx)()

	user, ok := r.s.data.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, nil
	}
	return &user, nil
}
