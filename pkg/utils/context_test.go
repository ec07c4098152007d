package utils

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetOptionalUserID(ctx))

	_, ok := GetRoleFromContext(ctx)
	assert.False(t, ok)

	userID := uuid.New()
	ctx = SetUserContext(ctx, userID, "customer")

	got, ok := GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
	assert.Equal(t, &userID, GetOptionalUserID(ctx))

	role, _ := GetRoleFromContext(ctx)
	assert.Equal(t, "customer", role)
}

func TestNilUserIsGuest(t *testing.T) {
	ctx := SetUserContext(context.Background(), uuid.Nil, "customer")
	assert.Nil(t, GetOptionalUserID(ctx))
}
