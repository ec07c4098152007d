package usecase

import (
	"context"
	"sync"
	"testing"

	"hotel-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureExistsIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-04")))
	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-04")))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-02"), day("2024-06-05")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, f.store.InventoryCount())
	assert.Equal(t, 2, f.available(t, "2024-06-01"))
	assert.Equal(t, 2, f.available(t, "2024-06-04"))
}

func TestEnsureExistsUnknownRoom(t *testing.T) {
	f := newFixture(t)

	err := f.inventory.EnsureExists(context.Background(), uuid.New(), day("2024-06-01"), day("2024-06-02"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCheckAvailabilityTreatsMissingNightAsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.inventory.CheckAvailability(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02")))

	ok, err = f.inventory.CheckAvailability(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03"))
	require.NoError(t, err)
	assert.False(t, ok, "second night has no row")

	ok, err = f.inventory.CheckAvailability(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReserveIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-04")))
	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-02"), day("2024-06-03"), 2))

	err := f.inventory.Reserve(ctx, f.room.ID, day("2024-06-01"), day("2024-06-04"), 1)
	assert.ErrorIs(t, err, ErrInsufficientAvailability)

	assert.Equal(t, 2, f.available(t, "2024-06-01"), "first night must not stay decremented")
	assert.Equal(t, 0, f.available(t, "2024-06-02"))
	assert.Equal(t, 2, f.available(t, "2024-06-03"))
}

func TestReserveRejectsEmptyStay(t *testing.T) {
	f := newFixture(t)

	err := f.inventory.Reserve(context.Background(), f.room.ID, day("2024-06-01"), day("2024-06-01"), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRollbackRestoresCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03")))
	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03"), 2))
	require.NoError(t, f.inventory.Rollback(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03"), 2))

	assert.Equal(t, 2, f.available(t, "2024-06-01"))
	assert.Equal(t, 2, f.available(t, "2024-06-02"))
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room.ID.String()

	resp, err := f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-06-01", To: "2024-06-03"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.MaxRoomsCanBook, "no ledger rows means the static total")
	assert.Equal(t, 2, resp.Nights)
	assert.True(t, resp.Available)

	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03")))
	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-02"), day("2024-06-03"), 1))

	resp, err = f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-06-01", To: "2024-06-03"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.MaxRoomsCanBook, "the scarcest night binds")

	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-02"), day("2024-06-03"), 1))
	resp, err = f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-06-01", To: "2024-06-03"})
	require.NoError(t, err)
	assert.Zero(t, resp.MaxRoomsCanBook)
	assert.False(t, resp.Available)
}

func TestGetAvailabilityRejectsPastOrEmptyRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room.ID.String()

	_, err := f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-05-01", To: "2024-05-03"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-06-01", To: "2024-06-01"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRangeQueriesAreCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.room.ID.String()
	huge := &request.DateRangeRequest{From: "0001-01-01", To: "9999-12-31"}

	_, err := f.inventory.GetInventoryByRange(ctx, roomID, huge)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.inventory.GetAvailability(ctx, roomID, &request.DateRangeRequest{From: "2024-06-01", To: "9999-12-31"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	year := &request.DateRangeRequest{From: "2024-06-01", To: "2025-06-01"}
	_, err = f.inventory.GetInventoryByRange(ctx, roomID, year)
	require.NoError(t, err)
	resp, err := f.inventory.GetAvailability(ctx, roomID, year)
	require.NoError(t, err)
	assert.Equal(t, 365, resp.Nights)

	err = f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2026-06-01"))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, f.store.InventoryCount())
}

func TestGetInventoryByRangeAndDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03")))

	list, err := f.inventory.GetInventoryByRange(ctx, f.room.ID.String(), &request.DateRangeRequest{From: "2024-06-01", To: "2024-06-05"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2024-06-01", list[0].Date)
	assert.Equal(t, "2024-06-02", list[1].Date)

	inv, err := f.inventory.GetInventoryByDate(ctx, f.room.ID.String(), "2024-06-02")
	require.NoError(t, err)
	assert.Equal(t, 2, inv.Total)

	_, err = f.inventory.GetInventoryByDate(ctx, f.room.ID.String(), "2024-06-09")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateInventoryTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02")))
	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02"), 1))

	inv, ok := f.store.Inventory(f.room.ID, day("2024-06-01"))
	require.True(t, ok)

	_, err := f.inventory.UpdateInventoryTotal(ctx, inv.ID.String(), &request.UpdateInventoryRequest{Total: 3})
	assert.ErrorIs(t, err, ErrInvalidInput, "cannot exceed the room's unit count")

	_, err = f.inventory.UpdateInventoryTotal(ctx, inv.ID.String(), &request.UpdateInventoryRequest{Total: 0})
	assert.ErrorIs(t, err, ErrInvalidInput, "cannot drop below booked units")

	resp, err := f.inventory.UpdateInventoryTotal(ctx, inv.ID.String(), &request.UpdateInventoryRequest{Total: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, 0, resp.Available)
	assert.Equal(t, 1, resp.Booked)

	_, err = f.inventory.UpdateInventoryTotal(ctx, uuid.NewString(), &request.UpdateInventoryRequest{Total: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-06-01"), day("2024-06-03")))
	require.NoError(t, f.inventory.Reserve(ctx, f.room.ID, day("2024-06-01"), day("2024-06-02"), 1))

	booked, _ := f.store.Inventory(f.room.ID, day("2024-06-01"))
	free, _ := f.store.Inventory(f.room.ID, day("2024-06-02"))

	assert.ErrorIs(t, f.inventory.DeleteInventory(ctx, booked.ID.String()), ErrConflict)
	require.NoError(t, f.inventory.DeleteInventory(ctx, free.ID.String()))
	require.NoError(t, f.inventory.DeleteInventory(ctx, free.ID.String()), "deleting a missing row is a no-op")

	assert.Equal(t, 1, f.store.InventoryCount())
}

func TestCountFutureInventories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.inventory.EnsureExists(ctx, f.room.ID, day("2024-05-18"), day("2024-05-23")))

	resp, err := f.inventory.CountFutureInventories(ctx, f.room.ID.String())
	require.NoError(t, err)
	assert.EqualValues(t, 3, resp.Count, "20th, 21st and 22nd of May")
}
